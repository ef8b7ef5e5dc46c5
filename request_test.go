package auth_test

import (
	"testing"

	auth "github.com/danloh/top-blog-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeRequest is an in-memory RequestContext.
type fakeRequest struct {
	headers map[string]string
	cookies map[string]string
}

func (f fakeRequest) Header(name string) string { return f.headers[name] }
func (f fakeRequest) Cookie(name string) string { return f.cookies[name] }

func TestAuthenticate(t *testing.T) {
	service := auth.NewTokenService(tokenTestConfig{secret: "test-signing-key"}, nil)
	user := auth.CheckUser{ID: uuid.New(), Uname: "alice", Permission: auth.BasicPermit}

	token, err := service.IssueSession(user)
	assert.NoError(t, err)

	t.Run("reads the authorization header", func(t *testing.T) {
		rc := fakeRequest{headers: map[string]string{"authorization": token}}

		got, err := auth.Authenticate(service, rc)
		assert.NoError(t, err)
		assert.Equal(t, "alice", got.Uname)
	})

	t.Run("falls back to the session cookie", func(t *testing.T) {
		rc := fakeRequest{cookies: map[string]string{auth.CookieTok: token}}

		got, err := auth.Authenticate(service, rc)
		assert.NoError(t, err)
		assert.Equal(t, "alice", got.Uname)
	})

	t.Run("bad header falls back to the cookie", func(t *testing.T) {
		rc := fakeRequest{
			headers: map[string]string{"authorization": "garbage-token"},
			cookies: map[string]string{auth.CookieTok: token},
		}

		got, err := auth.Authenticate(service, rc)
		assert.NoError(t, err)
		assert.Equal(t, "alice", got.Uname)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		rc := fakeRequest{
			headers: map[string]string{"authorization": token},
			cookies: map[string]string{auth.CookieTok: "stale-garbage"},
		}

		_, err := auth.Authenticate(service, rc)
		assert.NoError(t, err)
	})

	t.Run("missing token is Unauthorized", func(t *testing.T) {
		_, err := auth.Authenticate(service, fakeRequest{})
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("tampered token is Unauthorized", func(t *testing.T) {
		rc := fakeRequest{headers: map[string]string{"authorization": token + "x"}}

		_, err := auth.Authenticate(service, rc)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})
}

func TestAuthenticateOptional(t *testing.T) {
	service := auth.NewTokenService(tokenTestConfig{secret: "test-signing-key"}, nil)

	t.Run("no session yields the anonymous zero value", func(t *testing.T) {
		can := auth.AuthenticateOptional(service, fakeRequest{})
		assert.Equal(t, auth.CheckCan{}, can)
	})

	t.Run("bad session also yields anonymous", func(t *testing.T) {
		rc := fakeRequest{cookies: map[string]string{auth.CookieTok: "garbage"}}
		can := auth.AuthenticateOptional(service, rc)
		assert.Equal(t, auth.CheckCan{}, can)
	})

	t.Run("bad header falls back to the cookie", func(t *testing.T) {
		token, err := service.IssueSession(auth.CheckUser{
			ID:         uuid.New(),
			Uname:      "alice",
			Permission: auth.BasicPermit,
		})
		assert.NoError(t, err)

		rc := fakeRequest{
			headers: map[string]string{"authorization": "garbage-token"},
			cookies: map[string]string{auth.CookieTok: token},
		}
		can := auth.AuthenticateOptional(service, rc)
		assert.Equal(t, "alice", can.Uname)
	})

	t.Run("valid session yields the pair", func(t *testing.T) {
		token, err := service.IssueSession(auth.CheckUser{
			ID:         uuid.New(),
			Uname:      "alice",
			Permission: auth.BasicPermit,
		})
		assert.NoError(t, err)

		rc := fakeRequest{headers: map[string]string{"authorization": token}}
		can := auth.AuthenticateOptional(service, rc)
		assert.Equal(t, "alice", can.Uname)
		assert.Equal(t, auth.BasicPermit, can.Permission)
	})
}

func TestAuthenticateElevated(t *testing.T) {
	cfg := tokenTestConfig{secret: "test-signing-key"}
	service := auth.NewTokenService(cfg, nil)

	editor, err := service.IssueSession(auth.CheckUser{
		ID:         uuid.New(),
		Uname:      "mod",
		Permission: auth.EditPermit,
	})
	assert.NoError(t, err)

	plain, err := service.IssueSession(auth.CheckUser{
		ID:         uuid.New(),
		Uname:      "alice",
		Permission: auth.BasicPermit,
	})
	assert.NoError(t, err)

	t.Run("edit bit passes", func(t *testing.T) {
		rc := fakeRequest{headers: map[string]string{"authorization": editor}}
		can, err := auth.AuthenticateElevated(service, cfg, rc)
		assert.NoError(t, err)
		assert.Equal(t, "mod", can.Uname)
	})

	t.Run("plain account fails the same as no session", func(t *testing.T) {
		rc := fakeRequest{headers: map[string]string{"authorization": plain}}
		_, errPlain := auth.AuthenticateElevated(service, cfg, rc)
		_, errNone := auth.AuthenticateElevated(service, cfg, fakeRequest{})

		assert.ErrorIs(t, errPlain, auth.ErrUnauthorized)
		assert.ErrorIs(t, errNone, auth.ErrUnauthorized)
	})
}

func TestVerifyCSRF(t *testing.T) {
	service := auth.NewTokenService(tokenTestConfig{secret: "test-signing-key"}, nil)

	token, err := service.IssueAction("alice", "alice@example.com", 120)
	assert.NoError(t, err)

	t.Run("live action token in the CsrfToken header passes", func(t *testing.T) {
		rc := fakeRequest{headers: map[string]string{"CsrfToken": token}}
		assert.NoError(t, auth.VerifyCSRF(service, rc))
	})

	t.Run("expired token fails", func(t *testing.T) {
		stale, err := service.IssueAction("alice", "alice@example.com", -1)
		assert.NoError(t, err)

		rc := fakeRequest{headers: map[string]string{"CsrfToken": stale}}
		assert.ErrorIs(t, auth.VerifyCSRF(service, rc), auth.ErrUnauthorized)
	})

	t.Run("garbage token fails", func(t *testing.T) {
		rc := fakeRequest{headers: map[string]string{"CsrfToken": "garbage"}}
		assert.ErrorIs(t, auth.VerifyCSRF(service, rc), auth.ErrUnauthorized)
	})

	t.Run("missing header fails", func(t *testing.T) {
		assert.ErrorIs(t, auth.VerifyCSRF(service, fakeRequest{}), auth.ErrUnauthorized)
	})

	t.Run("cookie token is not checked", func(t *testing.T) {
		rc := fakeRequest{cookies: map[string]string{auth.CookieTok: token}}
		assert.ErrorIs(t, auth.VerifyCSRF(service, rc), auth.ErrUnauthorized)
	})
}
