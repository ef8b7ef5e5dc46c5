package auth

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUpdateProfileMessageValidate(t *testing.T) {
	t.Run("empty optional fields pass", func(t *testing.T) {
		msg := UpdateProfileMessage{Uname: "alice"}
		assert.NoError(t, msg.Validate())
	})

	t.Run("bad nickname fails", func(t *testing.T) {
		msg := UpdateProfileMessage{Uname: "alice", Nickname: "a b"}
		assert.Error(t, msg.Validate())
	})

	t.Run("bad avatar url fails", func(t *testing.T) {
		msg := UpdateProfileMessage{Uname: "alice", Avatar: "not a url"}
		assert.Error(t, msg.Validate())
	})

	t.Run("long location fails", func(t *testing.T) {
		loc := make([]byte, MidLen+1)
		for i := range loc {
			loc[i] = 'x'
		}
		msg := UpdateProfileMessage{Uname: "alice", Location: string(loc)}
		assert.Error(t, msg.Validate())
	})
}

func TestUpdateProfileHandler(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig{secret: "test-secret"}

	t.Run("nothing changed is rejected", func(t *testing.T) {
		users := &mockUsers{}
		users.On("GetByUnameTx", mock.Anything, mock.Anything, "alice").
			Return(&User{
				Uname: "alice",
				Intro: "hello",
				Email: "alice@example.com",
			}, nil).Once()

		handler := UpdateProfileHandler{
			repo:   &mockRepo{users: users},
			tokens: NewTokenService(cfg, nil),
			mailer: &mockMailer{},
		}

		err := handler.Execute(ctx, UpdateProfileMessage{
			Uname: "alice",
			Intro: "hello",
			Email: "alice@example.com",
			OnResponse: func(u *CheckUser) {
				t.Fatal("should not respond on failure")
			},
		})

		var richErr *goerrors.Error
		assert.ErrorAs(t, err, &richErr)
		assert.Equal(t, "Nothing Changed", richErr.Message)
		users.AssertExpectations(t)
	})

	t.Run("new unique email resets confirmation and sends mail", func(t *testing.T) {
		users := &mockUsers{}
		users.On("GetByUnameTx", mock.Anything, mock.Anything, "alice").
			Return(&User{
				Uname:          "alice",
				Email:          "old@example.com",
				EmailConfirmed: true,
			}, nil).Once()
		users.On("GetByEmailTx", mock.Anything, mock.Anything, "new@example.com").
			Return(nil, repository.NewRecordNotFound()).Once()
		users.On("UpdateProfileTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *User) bool {
			return u.Uname == "alice" &&
				u.Email == "new@example.com" &&
				!u.EmailConfirmed
		})).Return(&User{Uname: "alice", Email: "new@example.com"}, nil).Once()

		mailer := &mockMailer{}
		mailer.On("SendConfirmEmail", mock.Anything, "new@example.com", "alice", mock.Anything).
			Return(nil).Once()

		handler := UpdateProfileHandler{
			repo:   &mockRepo{users: users},
			tokens: NewTokenService(cfg, nil),
			mailer: mailer,
		}

		var user *CheckUser
		err := handler.Execute(ctx, UpdateProfileMessage{
			Uname: "alice",
			Email: "new@example.com",
			Intro: "now with a bio",
			OnResponse: func(u *CheckUser) {
				user = u
			},
		})

		assert.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
		users.AssertExpectations(t)
		mailer.AssertExpectations(t)
	})

	t.Run("link survives a profile update", func(t *testing.T) {
		users := &mockUsers{}
		users.On("GetByUnameTx", mock.Anything, mock.Anything, "alice").
			Return(&User{
				Uname: "alice",
				Link:  "https://alice.example.com",
			}, nil).Once()
		users.On("UpdateProfileTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *User) bool {
			return u.Link == "https://alice.example.com"
		})).Return(&User{Uname: "alice", Link: "https://alice.example.com"}, nil).Once()

		handler := UpdateProfileHandler{
			repo:   &mockRepo{users: users},
			tokens: NewTokenService(cfg, nil),
			mailer: &mockMailer{},
		}

		var user *CheckUser
		err := handler.Execute(ctx, UpdateProfileMessage{
			Uname: "alice",
			Intro: "changed only intro",
			OnResponse: func(u *CheckUser) {
				user = u
			},
		})

		assert.NoError(t, err)
		assert.Equal(t, "https://alice.example.com", user.Link)
		users.AssertExpectations(t)
	})

	t.Run("claimed email keeps the old address", func(t *testing.T) {
		users := &mockUsers{}
		users.On("GetByUnameTx", mock.Anything, mock.Anything, "alice").
			Return(&User{Uname: "alice", Email: "old@example.com"}, nil).Once()
		users.On("GetByEmailTx", mock.Anything, mock.Anything, "taken@example.com").
			Return(&User{Uname: "someone"}, nil).Once()
		users.On("UpdateProfileTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *User) bool {
			return u.Email == "old@example.com"
		})).Return(&User{Uname: "alice", Email: "old@example.com"}, nil).Once()

		handler := UpdateProfileHandler{
			repo:   &mockRepo{users: users},
			tokens: NewTokenService(cfg, nil),
			mailer: &mockMailer{},
		}

		var user *CheckUser
		err := handler.Execute(ctx, UpdateProfileMessage{
			Uname: "alice",
			Email: "taken@example.com",
			Intro: "changed",
			OnResponse: func(u *CheckUser) {
				user = u
			},
		})

		assert.NoError(t, err)
		assert.Equal(t, "old@example.com", user.Email)
		users.AssertExpectations(t)
	})
}
