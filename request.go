package auth

import (
	"github.com/gofiber/fiber/v2"
)

// Header names checked by the extraction functions.
const (
	HeaderAuthorization = "authorization"
	HeaderCsrfToken     = "CsrfToken"
)

// RequestContext is the minimal view of an incoming request the extraction
// functions need. Transport adapters implement it so the extraction logic
// stays framework free.
type RequestContext interface {
	Header(name string) string
	Cookie(name string) string
}

// Authenticate requires a valid session and returns the caller's sanitized
// view. The authorization header is tried first; a header that fails to
// verify does not prevent falling back to the session cookie. Missing or
// invalid tokens yield ErrUnauthorized.
func Authenticate(ts *TokenService, rc RequestContext) (CheckUser, error) {
	if tok := rc.Header(HeaderAuthorization); tok != "" {
		if user, err := ts.VerifySession(tok); err == nil {
			return user, nil
		}
	}
	if tok := rc.Cookie(CookieTok); tok != "" {
		return ts.VerifySession(tok)
	}
	return CheckUser{}, ErrUnauthorized
}

// AuthenticateCan is Authenticate narrowed to the authorization pair.
func AuthenticateCan(ts *TokenService, rc RequestContext) (CheckCan, error) {
	user, err := Authenticate(ts, rc)
	if err != nil {
		return CheckCan{}, err
	}
	return user.AsCheckCan(), nil
}

// AuthenticateOptional extracts the caller when a valid session is present
// and falls back to the anonymous zero value otherwise. It never fails.
func AuthenticateOptional(ts *TokenService, rc RequestContext) CheckCan {
	user, err := Authenticate(ts, rc)
	if err != nil {
		return CheckCan{}
	}
	return user.AsCheckCan()
}

// AuthenticateElevated requires a valid session whose caller passes the
// elevation check. Non-elevated callers get ErrUnauthorized, same as
// missing sessions.
func AuthenticateElevated(ts *TokenService, cfg Config, rc RequestContext) (CheckCan, error) {
	can, err := AuthenticateCan(ts, rc)
	if err != nil {
		return CheckCan{}, err
	}
	if !IsElevated(cfg.GetAdminUname(), can) {
		return CheckCan{}, ErrUnauthorized
	}
	return can, nil
}

// VerifyCSRF checks the CsrfToken header carries a live action-shaped token.
// It proves token possession only; the claim is not bound to the
// authenticated session.
func VerifyCSRF(ts *TokenService, rc RequestContext) error {
	tok := rc.Header(HeaderCsrfToken)
	if tok == "" {
		return ErrUnauthorized
	}
	claim, ok := ts.VerifyAction(tok)
	if !ok || claim.Expired() {
		return ErrUnauthorized
	}
	return nil
}

// fiberRequestContext adapts *fiber.Ctx to RequestContext.
type fiberRequestContext struct {
	ctx *fiber.Ctx
}

// FiberRequest wraps a fiber context for the extraction functions.
func FiberRequest(c *fiber.Ctx) RequestContext {
	return fiberRequestContext{ctx: c}
}

func (f fiberRequestContext) Header(name string) string {
	return f.ctx.Get(name)
}

func (f fiberRequestContext) Cookie(name string) string {
	return f.ctx.Cookies(name)
}
