package domain

import (
	"errors"
	"fmt"
)

// Category sentinels — wrap these with %w or DomainError so callers can
// match with errors.Is.
var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrUnavailable     = fmt.Errorf("service unavailable")
	ErrUnsupported     = fmt.Errorf("unsupported operation")
	ErrEmptyResponse   = fmt.Errorf("AI returned empty response")
	ErrMissingOriginal = fmt.Errorf("missing original request")
	ErrNotRetryable    = fmt.Errorf("message is not retryable")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "MessageStore.Update")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorKind is the stable failure taxonomy every heterogeneous cause is
// reduced to. Consumers switch on it to decide retry behavior.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindUnauthorized
	KindNotFound
	KindServiceUnavailable
	KindValidation
)

// String returns the kind's monitoring label.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "NETWORK"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case KindValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether retrying the same operation might succeed
// without a configuration change. Bad input never self-corrects; everything
// else is conservatively retryable (re-authentication may fix auth failures,
// transient backend trouble may clear).
func (k ErrorKind) Retryable() bool {
	return k != KindValidation
}

// Classified is an error reduced to a taxonomy kind. Recoverable usually
// follows Kind.Retryable; the remote-call classifier overrides it for
// permission-denied outcomes.
type Classified struct {
	Kind        ErrorKind
	Cause       error
	Recoverable bool
}

func (e *Classified) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

func (e *Classified) Unwrap() error { return e.Cause }

// ClassifiedFrom extracts a *Classified from err's chain, or nil.
func ClassifiedFrom(err error) *Classified {
	var c *Classified
	if errors.As(err, &c) {
		return c
	}
	return nil
}
