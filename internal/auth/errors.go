package auth

import "errors"

var (
	// ErrUnauthenticated means no usable token was presented; the client should log in.
	ErrUnauthenticated = errors.New("auth: no token provided")
	// ErrForbidden means a token was presented but failed signature, expiry or type checks.
	ErrForbidden = errors.New("auth: invalid or expired token")
	// ErrNotFound means the token was valid but its subject no longer exists.
	ErrNotFound = errors.New("auth: patient not found")

	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken         = errors.New("auth: email already exists")
)

// ValidationError carries a message that is safe to return to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}
