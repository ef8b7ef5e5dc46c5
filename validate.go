package auth

import (
	"encoding/base64"
	"regexp"
)

// MidLen is the token/identifier length ceiling shared with the frontend.
const MidLen = 32

var (
	reName = regexp.MustCompile(`^[A-Za-z0-9_-]{3,42}$`)
	rePsw  = regexp.MustCompile(`^[\w#@~%^$&*-]{8,18}$`)
)

// ValidName reports whether uname is an acceptable username.
func ValidName(uname string) bool {
	return reName.MatchString(uname)
}

// ValidPassword reports whether psw is an acceptable cleartext password.
func ValidPassword(psw string) bool {
	return rePsw.MatchString(psw)
}

// DeBase64 decodes a transport-encoded field. Anything that fails to decode
// comes back as "", which downstream validation then rejects.
func DeBase64(s string) string {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(b)
}

// EnBase64 encodes a field for transport.
func EnBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
