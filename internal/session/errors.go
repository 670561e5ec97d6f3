package session

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call so callers can decide what to do next, for example
// sending the user back to login on KindUnauthenticated.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindRateLimited
	KindServer
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is returned by every Client call that does not succeed. Status is zero for
// transport failures.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a *Error anywhere in err's chain, or zero.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// IsAuthFailure reports whether err means the stored session can no longer be used.
func IsAuthFailure(err error) bool {
	switch KindOf(err) {
	case KindUnauthenticated, KindForbidden, KindNotFound:
		return true
	default:
		return false
	}
}

func statusError(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}

	kind := KindValidation
	switch {
	case status == http.StatusUnauthorized:
		kind = KindUnauthenticated
	case status == http.StatusForbidden:
		kind = KindForbidden
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= http.StatusInternalServerError:
		kind = KindServer
	}

	return &Error{Kind: kind, Status: status, Message: message}
}
