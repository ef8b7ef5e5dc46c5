package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService issues and verifies the two claim shapes: session tokens
// (identity + permission, hard-fail verification) and action tokens
// (username + email, tagged-result verification).
type TokenService struct {
	signingKey []byte
	logger     Logger
}

// NewTokenService creates a TokenService signing with the process secret.
func NewTokenService(cfg Config, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		logger:     logger,
	}
}

// IssueSession signs session claims for the account view.
func (ts *TokenService) IssueSession(user CheckUser) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, NewClaims(user))

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}
	return signed, nil
}

// VerifySession decodes and validates a session token in one step. Signature
// mismatch, malformed structure, wrong issuer and expiry all collapse into
// ErrUnauthorized; callers cannot distinguish them.
func (ts *TokenService) VerifySession(tokenString string) (CheckUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, ts.keyFunc, jwt.WithIssuer(TokenIssuer))
	if err != nil {
		return CheckUser{}, ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService could not decode session claims")
		return CheckUser{}, ErrUnauthorized
	}

	return claims.CheckUser(), nil
}

// IssueAction signs an action token bound to (uname, email) with a
// caller-chosen lifetime in minutes.
func (ts *TokenService) IssueAction(uname, email string, ttlMinutes int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, NewTokClaim(uname, email, ttlMinutes))

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign action token")
	}
	return signed, nil
}

// VerifyAction decodes an action token. It never fails: any decode problem
// (bad signature, malformed token, expiry) yields the zero claim and false,
// and callers must still check expiry and match uname+email themselves
// before trusting a valid result.
func (ts *TokenService) VerifyAction(tokenString string) (TokClaim, bool) {
	claim := &TokClaim{}
	token, err := jwt.ParseWithClaims(tokenString, claim, ts.keyFunc)
	if err != nil || !token.Valid {
		return TokClaim{}, false
	}
	return *claim, true
}

func (ts *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		ts.logger.Error("TokenService encountered unexpected signing method: %v", t.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return ts.signingKey, nil
}
