package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Option is a functional option for tuning [Do].
type Option func(*config)

type config struct {
	// maxDelay caps the doubled backoff. Zero means uncapped.
	maxDelay time.Duration

	// retryable decides whether a failure is worth another attempt.
	retryable func(error) bool

	// onRetry is invoked before every backoff wait.
	onRetry func(attempt int, delay time.Duration, err error)
}

// WithMaxDelay caps the backoff between attempts. The delay still starts at
// the initial value and doubles, but never exceeds maxDelay.
func WithMaxDelay(maxDelay time.Duration) Option {
	return func(retryConfig *config) {
		retryConfig.maxDelay = maxDelay
	}
}

// WithRetryable overrides the predicate that decides whether an error should
// trigger another attempt. Non-retryable errors are returned immediately and
// are not wrapped with [ErrRetryExhausted].
//
// Example:
//
//	retry.Do(ctx, op, 3, time.Second, retry.WithRetryable(func(err error) bool {
//	    return !errors.Is(err, ErrInvalidInput)
//	}))
func WithRetryable(retryable func(error) bool) Option {
	return func(retryConfig *config) {
		retryConfig.retryable = retryable
	}
}

// WithOnRetry registers a hook called after a failed attempt and before the
// backoff wait. attempt is 1-based and refers to the attempt that just failed.
func WithOnRetry(onRetry func(attempt int, delay time.Duration, err error)) Option {
	return func(retryConfig *config) {
		retryConfig.onRetry = onRetry
	}
}

// defaultRetryable retries everything except caller cancellation.
func defaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// Do invokes operation up to maxAttempts times, waiting initialDelay before
// the second attempt and doubling the wait after every further failure.
//
// The first successful value is returned as-is. When every attempt fails the
// returned error wraps both [ErrRetryExhausted] and the last failure. Panics
// inside operation are recovered and treated as failures ([PanicError]).
// A maxAttempts below 1 is treated as 1.
//
// Cancellation of ctx interrupts a backoff wait immediately; the returned
// error then wraps the context error together with the last failure.
func Do[T any](ctx context.Context, operation func(context.Context) (T, error), maxAttempts int, initialDelay time.Duration, opts ...Option) (T, error) {
	retryConfig := &config{retryable: defaultRetryable}
	for _, opt := range opts {
		opt(retryConfig)
	}

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		value, err := invoke(ctx, operation)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !retryConfig.retryable(err) {
			return zero, err
		}

		if attempt == maxAttempts {
			break
		}

		if retryConfig.maxDelay > 0 && delay > retryConfig.maxDelay {
			delay = retryConfig.maxDelay
		}

		if retryConfig.onRetry != nil {
			retryConfig.onRetry(attempt, delay, err)
		}

		if waitErr := wait(ctx, delay); waitErr != nil {
			return zero, fmt.Errorf("retry interrupted after %d attempts: %w", attempt, errors.Join(waitErr, lastErr))
		}

		delay *= 2
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

// invoke calls operation once, converting a panic into a *PanicError.
func invoke[T any](ctx context.Context, operation func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			var zero T
			value = zero
			err = &PanicError{Value: recovered}
		}
	}()

	return operation(ctx)
}

// wait suspends for delay or until ctx is done, whichever comes first.
func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func toString(value any) string {
	if stringer, isStringer := value.(fmt.Stringer); isStringer {
		return stringer.String()
	}
	return fmt.Sprint(value)
}
