package observed

import (
	"errors"
	"fmt"
)

var (
	ErrUnlinked     = errors.New("unit is unlinked")
	ErrCycle        = errors.New("attachment would create an ownership cycle")
	ErrDuplicate    = errors.New("item is already present")
	ErrRestricted   = errors.New("item rejected by restriction")
	ErrNotFound     = errors.New("item not found")
	ErrStreamFailed = errors.New("event stream failed")
)

// UsageError is returned synchronously when a call is invalid: the operation
// that failed, the offending argument and the underlying sentinel.
type UsageError struct {
	Op  string
	Arg any
	Err error
}

func NewUsageError(op string, arg any, err error) *UsageError {
	return &UsageError{Op: op, Arg: arg, Err: err}
}

func (e *UsageError) Error() string {
	if e.Arg == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %v: %v", e.Op, e.Arg, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError reports whether err was produced by an invalid call.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// CallbackError wraps a failure raised by a listener, interceptor, hook or
// binding observer. These never reach the caller of Emit; they are handed to
// the error sink instead.
type CallbackError struct {
	Op    string
	Event string
	Err   error
	Panic any
}

func (e *CallbackError) Error() string {
	where := e.Op
	if e.Event != "" {
		where = fmt.Sprintf("%s %q", e.Op, e.Event)
	}
	if e.Panic != nil {
		return fmt.Sprintf("%s: panic: %v", where, e.Panic)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
