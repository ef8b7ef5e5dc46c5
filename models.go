package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Permission bits. A capability check passes only when every requested bit
// is set on the account.
const (
	LimitPermit int16 = 0x01 // follow, star...
	BasicPermit int16 = 0x02 // create, edit own content
	EditPermit  int16 = 0x04 // edit or delete others' content
	ModPermit   int16 = 0x10 // moderation role
	AdminPermit int16 = 0x80 // admin
)

// CookieTok is the session cookie name, shared with the frontend.
const CookieTok = "NoSeSNekoTr"

// User is the persisted account. The password hash never leaves the
// persistence boundary; everything else sees CheckUser.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Uname          string    `bun:"uname,notnull,unique" json:"uname"`
	PswHash        string    `bun:"psw_hash,notnull" json:"-"`
	JoinAt         time.Time `bun:"join_at,nullzero,notnull,default:current_timestamp" json:"join_at,omitempty"`
	LastSeen       time.Time `bun:"last_seen,nullzero,notnull,default:current_timestamp" json:"last_seen,omitempty"`
	Avatar         string    `bun:"avatar" json:"avatar"`
	Email          string    `bun:"email" json:"email"` // unique but can be ""
	Link           string    `bun:"link" json:"link"`
	Intro          string    `bun:"intro" json:"intro"`
	Location       string    `bun:"location" json:"location"`
	Nickname       string    `bun:"nickname" json:"nickname"`
	Permission     int16     `bun:"permission,notnull" json:"permission"`
	AuthFrom       string    `bun:"auth_from" json:"auth_from"` // origin marker, "" = native
	EmailConfirmed bool      `bun:"email_confirmed" json:"email_confirmed"`
	Karma          int32     `bun:"karma" json:"karma"`
}

// NewUser builds an unsaved account draft with the default permission set.
func NewUser(uname, pswHash string) *User {
	return &User{
		Uname:      uname,
		PswHash:    pswHash,
		Permission: LimitPermit | BasicPermit,
	}
}

// Can reports whether every bit of permission is set on the account.
func (u *User) Can(permission int16) bool {
	return (u.Permission & permission) == permission
}

// Sanitize projects the account into the client-safe view.
func (u *User) Sanitize() CheckUser {
	return CheckUser{
		ID:             u.ID,
		Uname:          u.Uname,
		JoinAt:         u.JoinAt,
		Avatar:         u.Avatar,
		Email:          u.Email,
		Intro:          u.Intro,
		Location:       u.Location,
		Nickname:       u.Nickname,
		Permission:     u.Permission,
		Link:           u.Link,
		AuthFrom:       u.AuthFrom,
		EmailConfirmed: u.EmailConfirmed,
	}
}

// CheckUser is the sanitized account view, the only account representation
// serialized to clients or embedded in session tokens.
type CheckUser struct {
	ID             uuid.UUID `json:"id"`
	Uname          string    `json:"uname"`
	JoinAt         time.Time `json:"join_at"`
	Avatar         string    `json:"avatar"`
	Email          string    `json:"email"`
	Intro          string    `json:"intro"`
	Location       string    `json:"location"`
	Nickname       string    `json:"nickname"`
	Permission     int16     `json:"permission"`
	Link           string    `json:"link"`
	AuthFrom       string    `json:"auth_from"`
	EmailConfirmed bool      `json:"email_confirmed"`
}

// Can reports whether every bit of permission is set on the view.
func (u CheckUser) Can(permission int16) bool {
	return (u.Permission & permission) == permission
}

// AsCheckCan narrows the view to the pair needed for authorization.
func (u CheckUser) AsCheckCan() CheckCan {
	return CheckCan{Uname: u.Uname, Permission: u.Permission}
}

// CheckCan is the minimal pair sufficient for authorization decisions.
// Its zero value is the anonymous sentinel.
type CheckCan struct {
	Uname      string `json:"uname"`
	Permission int16  `json:"permission"`
}

// Can reports whether every bit of permission is set.
func (c CheckCan) Can(permission int16) bool {
	return (c.Permission & permission) == permission
}

// Msg is the plain response envelope.
type Msg struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// AuthMsg is the signin/update response envelope. Exp is an advisory TTL in
// days; the token carries its real expiry. Omg flags elevation.
type AuthMsg struct {
	Status  int       `json:"status"`
	Message string    `json:"message"`
	Token   string    `json:"token"`
	Exp     int       `json:"exp"`
	User    CheckUser `json:"user"`
	Omg     bool      `json:"omg"`
}

// UserMsg is the profile lookup response envelope.
type UserMsg struct {
	Status  int       `json:"status"`
	Message string    `json:"message"`
	User    CheckUser `json:"user"`
}
