package composable

// This file defines composable's internal failure taxonomy: a small
// ES2022-flavored set of error types with cause-chain support via
// [errors.Unwrap]/[errors.Is].

import (
	"errors"
	"fmt"
)

// PanicError wraps a value recovered from a panic inside a reducer or task.
// A reducer panic propagates out of the Store's drive step and surfaces on
// the next [Store.Sync] or [Store.IntoInner] call; a task panic is
// contained within the [Executor] and never reaches the caller directly.
type PanicError struct {
	// Value is whatever was passed to panic().
	Value any
	// Stack is the captured goroutine stack at the point of recovery.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("composable: panic recovered: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is itself an error,
// enabling [errors.Is]/[errors.As] to see through to the original cause.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// AggregateError collects multiple errors observed during one operation,
// such as several reducer panics recovered by a Store between two
// Sync/IntoInner calls.
type AggregateError struct {
	Errors  []error
	Message string
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("composable: %d errors occurred", len(e.Errors))
}

// Unwrap returns the wrapped errors for multi-error unwrapping (Go 1.20+),
// enabling [errors.Is]/[errors.As] to check against all contained errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is reports whether target is an *AggregateError (regardless of contents),
// allowing callers to detect "more than one failure occurred" without
// inspecting the slice.
func (e *AggregateError) Is(target error) bool {
	var aggTarget *AggregateError
	return errors.As(target, &aggTarget)
}

// ScheduleOverflowError describes a repeating schedule (see
// [Scheduler.Every]) ending because its internal duration arithmetic would
// overflow. Every itself stops silently on overflow and does not produce
// this error; no function in this package returns it.
type ScheduleOverflowError struct {
	// Elapsed is the number of firings successfully scheduled before the
	// overflow was detected.
	Elapsed int
}

// Error implements the error interface.
func (e *ScheduleOverflowError) Error() string {
	return fmt.Sprintf("composable: schedule duration overflow after %d firings", e.Elapsed)
}

// AssertionError describes a test expectation that did not hold, such as an
// unexpected state delta or a mismatched action. [TestStore] reports its own
// failures through testify/require and does not return this type.
type AssertionError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *AssertionError) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with a message, preserving the cause chain so
// that errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
