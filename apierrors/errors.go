// Package apierrors carries the error taxonomy shared by the whole
// pipeline: transient-external, schema, permanent-source, configuration,
// and cancellation, per the design in spec section 7.
package apierrors

import (
	"errors"
	"fmt"
)

// UnretriableError wraps an error to mark it as one the caller should not
// retry, e.g. because it is a permanent-source failure. Mirrors the
// teacher's wrapper so that errors.As still finds the underlying cause.
type UnretriableError struct{ error }

func Unretriable(err error) error {
	return UnretriableError{err}
}

func (e UnretriableError) Unwrap() error {
	return e.error
}

// IsUnretriable reports whether err (or something it wraps) is marked
// unretriable.
func IsUnretriable(err error) bool {
	return errors.As(err, &UnretriableError{})
}

// ObjectNotFoundError indicates a permanent-source failure: the requested
// object genuinely doesn't exist upstream, so retrying is pointless.
type ObjectNotFoundError struct {
	msg   string
	cause error
}

func (e ObjectNotFoundError) Error() string { return e.msg }
func (e ObjectNotFoundError) Unwrap() error { return e.cause }

func NewObjectNotFoundError(msg string, cause error) error {
	if cause != nil {
		msg = fmt.Sprintf("object not found: %s: %s", msg, cause)
	} else {
		msg = fmt.Sprintf("object not found: %s", msg)
	}
	return Unretriable(ObjectNotFoundError{msg: msg, cause: cause})
}

func IsObjectNotFound(err error) bool {
	return errors.As(err, &ObjectNotFoundError{})
}

// SchemaError indicates the LM returned a response that tolerant JSON
// repair still could not parse into the expected shape. Callers substitute
// a fallback; it is never propagated further than the call site that knows
// how to do that (spec section 9's "never propagate a null further than
// the component that knows how to substitute it").
type SchemaError struct {
	Op  string
	Raw string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("lm response for %s could not be parsed as JSON", e.Op)
}

func NewSchemaError(op, raw string) error {
	return SchemaError{Op: op, Raw: raw}
}

func IsSchemaError(err error) bool {
	var s SchemaError
	return errors.As(err, &s)
}

// CancelledError is returned when a job's cooperative cancellation signal
// fires between pipeline stages.
var CancelledError = errors.New("cancelled")

func IsCancelled(err error) bool {
	return errors.Is(err, CancelledError)
}
