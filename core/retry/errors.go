package retry

import "errors"

// ErrRetryExhausted is returned by [Do] when every attempt has failed. The
// error is joined with the last underlying failure so callers can use
// [errors.Is] / [errors.As] to inspect the root cause.
var ErrRetryExhausted = errors.New("deepresearch: all retry attempts exhausted")

// PanicError carries the value recovered from a panicking operation.
type PanicError struct {
	Value any
}

func (panicError *PanicError) Error() string {
	if err, isError := panicError.Value.(error); isError {
		return "operation panicked: " + err.Error()
	}
	return "operation panicked: " + toString(panicError.Value)
}

// Unwrap exposes the recovered value when it was itself an error.
func (panicError *PanicError) Unwrap() error {
	err, _ := panicError.Value.(error)
	return err
}
