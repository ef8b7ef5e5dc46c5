package auth

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSigninHandler(t *testing.T) {
	ctx := context.Background()

	hash, err := HashPassword("open-sesame1", 4)
	assert.NoError(t, err)

	t.Run("valid credentials yield sanitized view", func(t *testing.T) {
		users := &mockUsers{}
		users.On("GetByUnameTx", mock.Anything, mock.Anything, "alice").
			Return(&User{Uname: "alice", PswHash: hash, Permission: LimitPermit | BasicPermit}, nil).Once()
		users.On("UpdateLastSeenTx", mock.Anything, mock.Anything, "alice").
			Return(nil).Once()

		sink := &recordingSink{}
		handler := SigninHandler{repo: &mockRepo{users: users}, activity: sink}

		var user *CheckUser
		err := handler.Execute(ctx, SigninMessage{
			Uname:    "alice",
			Password: "open-sesame1",
			OnResponse: func(u *CheckUser) {
				user = u
			},
		})

		assert.NoError(t, err)
		assert.Equal(t, "alice", user.Uname)
		assert.Equal(t, LimitPermit|BasicPermit, user.Permission)
		assert.Len(t, sink.events, 1)
		assert.Equal(t, ActivityEventLoginSuccess, sink.events[0].EventType)
		users.AssertExpectations(t)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		missing := &mockUsers{}
		missing.On("GetByUnameTx", mock.Anything, mock.Anything, "nobody12").
			Return(nil, repository.NewRecordNotFound()).Once()

		wrongPsw := &mockUsers{}
		wrongPsw.On("GetByUnameTx", mock.Anything, mock.Anything, "alice123").
			Return(&User{Uname: "alice123", PswHash: hash}, nil).Once()

		onResponse := func(u *CheckUser) {
			t.Fatal("should not respond on failure")
		}

		errMissing := (&SigninHandler{repo: &mockRepo{users: missing}}).Execute(ctx, SigninMessage{
			Uname:      "nobody12",
			Password:   "open-sesame1",
			OnResponse: onResponse,
		})
		errWrong := (&SigninHandler{repo: &mockRepo{users: wrongPsw}}).Execute(ctx, SigninMessage{
			Uname:      "alice123",
			Password:   "wrong-psw-12",
			OnResponse: onResponse,
		})

		var richMissing, richWrong *goerrors.Error
		assert.ErrorAs(t, errMissing, &richMissing)
		assert.ErrorAs(t, errWrong, &richWrong)
		assert.Equal(t, richWrong.Message, richMissing.Message)
		assert.Equal(t, "Auth Failed", richWrong.Message)
	})

	t.Run("length limits reject before touching the store", func(t *testing.T) {
		handler := SigninHandler{repo: &mockRepo{users: &mockUsers{}}}

		err := handler.Execute(ctx, SigninMessage{
			Uname:    "ab",
			Password: "open-sesame1",
			OnResponse: func(u *CheckUser) {
				t.Fatal("should not respond on failure")
			},
		})

		var richErr *goerrors.Error
		assert.ErrorAs(t, err, &richErr)
		assert.Equal(t, "Invalid username or password", richErr.Message)
	})
}
