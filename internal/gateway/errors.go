package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure so callers can branch without string
// matching. Auth is fatal for the current coordinator call; RateLimit is
// retried at the client layer and only surfaces once the budget is spent.
type Kind int

const (
	KindGeneric Kind = iota
	KindAuth
	KindRateLimit
	KindNotFound
	KindDuplicate
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindTransport:
		return "transport"
	default:
		return "gateway"
	}
}

// Error is the failure type every Gateway operation returns. Op names the
// operation that failed ("create_offer", "get_watchers", ...).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a gateway Error of the given kind.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a gateway Error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func isKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return isKind(err, KindAuth) }

// IsRateLimit reports whether err is a rate-limit failure.
func IsRateLimit(err error) bool { return isKind(err, KindRateLimit) }

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsDuplicate reports whether err is a duplicate-resource rejection.
func IsDuplicate(err error) bool { return isKind(err, KindDuplicate) }
