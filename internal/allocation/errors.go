package allocation

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the engine wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrCapacityExceeded = errors.New("task capacity exceeded")
	ErrOverAllocated    = errors.New("employee over-allocated")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
)

// Error describes a rejected engine operation.
type Error struct {
	Kind       error
	Op         string
	TaskID     string
	EmployeeID string
	Detail     string
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) onTask(id string) *Error {
	e.TaskID = id
	return e
}

func (e *Error) onEmployee(id string) *Error {
	e.EmployeeID = id
	return e
}

// Kind returns the error kind wrapped by err, or nil if err did not come
// from the engine.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrCapacityExceeded, ErrOverAllocated, ErrNotFound, ErrInvalidState} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
