package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrUnauthorized covers every session verification failure: missing token,
// bad signature, malformed structure, or expiry. Callers must not be able to
// tell these apart.
var ErrUnauthorized = errors.New("Unauthorized", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// BadRequest builds an input or business-rule rejection with a short message
// that is safe to surface to the client.
func BadRequest(reason string) *errors.Error {
	return errors.New(reason, errors.CategoryBadInput)
}

// NotExisting builds the lookup failure used by flows that reveal absence.
func NotExisting() *errors.Error {
	return errors.New("Not Existing", errors.CategoryNotFound).
		WithCode(errors.CodeNotFound)
}

// Internal wraps a persistence or signing failure.
func Internal(err error, msg string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
