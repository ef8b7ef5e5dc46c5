package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenIssuer is the iss claim stamped on session tokens.
	TokenIssuer = "toplog"
	// SessionTokenTTL is the fixed session lifetime from issuance.
	SessionTokenTTL = 5 * 24 * time.Hour
	// SessionTokenExpDays is the advisory value surfaced in AuthMsg.Exp.
	SessionTokenExpDays = 5
)

// Claims is the session token payload: identity plus permission bits.
// Profile fields are never carried in tokens.
type Claims struct {
	jwt.RegisteredClaims
	UID        string `json:"uid"`
	Uname      string `json:"uname"`
	Permission int16  `json:"permission"`
}

// NewClaims builds session claims for the account view, expiring
// SessionTokenTTL from now.
func NewClaims(user CheckUser) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   "auth",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenTTL)),
		},
		UID:        user.ID.String(),
		Uname:      user.Uname,
		Permission: user.Permission,
	}
}

// CheckUser reconstructs the sanitized view from the claims. Profile fields
// come back empty; only identity and permission round-trip.
func (c *Claims) CheckUser() CheckUser {
	id, err := uuid.Parse(c.UID)
	if err != nil {
		id = uuid.Nil
	}
	return CheckUser{
		ID:         id,
		Uname:      c.Uname,
		Permission: c.Permission,
	}
}

// TokClaim is the single-purpose action token payload, binding a username
// and email for password reset or email confirmation. It deliberately shares
// no shape with Claims so one kind can never verify as the other.
type TokClaim struct {
	jwt.RegisteredClaims
	Uname string `json:"uname"`
	Email string `json:"email"`
}

// NewTokClaim builds action claims expiring ttlMinutes from now.
func NewTokClaim(uname, email string, ttlMinutes int) *TokClaim {
	return &TokClaim{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(ttlMinutes) * time.Minute)),
		},
		Uname: uname,
		Email: email,
	}
}

// Expiry returns the exp claim, zero time when absent.
func (t *TokClaim) Expiry() time.Time {
	if t.ExpiresAt != nil {
		return t.ExpiresAt.Time
	}
	return time.Time{}
}

// Expired reports whether the claim's expiry has passed. The zero claim is
// always expired.
func (t *TokClaim) Expired() bool {
	return time.Now().After(t.Expiry())
}
