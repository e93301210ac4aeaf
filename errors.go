package viewport

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrNilHost is returned by New when the host is nil.
	ErrNilHost = errors.New("viewport: nil host")

	// ErrNilViewport is returned by New when the viewport is nil.
	ErrNilViewport = errors.New("viewport: nil viewport")
)

// OptionError is returned by New when an [Option] is invalid.
type OptionError struct {
	Cause   error
	Option  string
	Message string
}

// Error implements the error interface.
func (e *OptionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "invalid value"
	}
	if e.Cause != nil {
		return fmt.Sprintf("viewport: option %s: %s: %v", e.Option, msg, e.Cause)
	}
	return fmt.Sprintf("viewport: option %s: %s", e.Option, msg)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *OptionError) Unwrap() error {
	return e.Cause
}

// PanicError wraps a value recovered from a panicking [Task].
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("viewport: task panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error, enabling use with
// [errors.Is] and [errors.As]. Otherwise, it returns nil.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
