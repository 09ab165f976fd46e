// Package apperr defines the error taxonomy shared across the service.
//
// Validation errors are rejected before any I/O. Store errors surface failed
// writes or dropped subscriptions. Suggestion errors cover everything the
// external generation service can do wrong. None of them are fatal; callers
// report them and return to an idle state.
package apperr

import "fmt"

// ValidationError rejects bad input before any store or network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StoreWriteError wraps a failed merge, replace or batch commit. The write is
// not retried; any optimistic local state must be rolled back by the caller.
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string { return fmt.Sprintf("store %s failed: %v", e.Op, e.Err) }
func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreSubscriptionError signals a dropped change stream.
type StoreSubscriptionError struct {
	Path string
	Err  error
}

func (e *StoreSubscriptionError) Error() string {
	return fmt.Sprintf("subscription to %s dropped: %v", e.Path, e.Err)
}
func (e *StoreSubscriptionError) Unwrap() error { return e.Err }

// SuggestionServiceError covers non-2xx responses, malformed structured
// output and missing credentials from the generation service.
type SuggestionServiceError struct {
	Step string
	Err  error
}

func (e *SuggestionServiceError) Error() string {
	return fmt.Sprintf("suggestion %s failed: %v", e.Step, e.Err)
}
func (e *SuggestionServiceError) Unwrap() error { return e.Err }
