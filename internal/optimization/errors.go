package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the optimization packages. Use errors.Is to
// test for them; they are usually wrapped in an *Error carrying context.
var (
	// ErrDimensionMismatch is returned when two vectors that must have the
	// same length do not.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrObjectiveEvaluation wraps any failure raised by a caller-supplied
	// objective function.
	ErrObjectiveEvaluation = errors.New("objective evaluation failed")
	// ErrInvalidStep is returned for step vectors with negative or non-finite entries.
	ErrInvalidStep = errors.New("invalid step vector")
	// ErrInvalidCenter is returned for a starting point with NaN or infinite entries.
	ErrInvalidCenter = errors.New("invalid center point")
	// ErrZeroDivisor is returned when dividing a vector by zero.
	ErrZeroDivisor = errors.New("division by zero")
	// ErrNilObjective is returned when no objective function was supplied.
	ErrNilObjective = errors.New("objective function is nil")
	// ErrInvalidTolerance is returned for a NaN tolerance, or a non-positive
	// one without an iteration limit, since the search could never stop.
	ErrInvalidTolerance = errors.New("invalid convergence tolerance")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	switch {
	case e.Component != "" && e.Op != "":
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	case e.Component != "":
		prefix = e.Component
	case e.Op != "":
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// DimensionMismatch builds an ErrDimensionMismatch error describing both lengths.
func DimensionMismatch(op string, got, want int) *Error {
	return WrapErrorf(ErrDimensionMismatch, "got length %d, want %d", got, want).WithOperation(op)
}

// ObjectiveFailure wraps err, raised by the objective at point x, so that it
// matches both ErrObjectiveEvaluation and the original cause.
func ObjectiveFailure(op string, x []float64, err error) *Error {
	return WrapErrorf(fmt.Errorf("%w: %w", ErrObjectiveEvaluation, err), "at %v", x).WithOperation(op)
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
