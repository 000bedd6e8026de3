package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// flakyOperation fails the first failures calls and succeeds afterwards.
type flakyOperation struct {
	failures  int
	callCount int
}

func (operation *flakyOperation) call(_ context.Context) (string, error) {
	operation.callCount++
	if operation.callCount <= operation.failures {
		return "", errors.New("transient failure")
	}
	return "ok", nil
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	operation := &flakyOperation{}

	value, err := Do(context.Background(), operation.call, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "ok" {
		t.Errorf("expected 'ok', got %q", value)
	}
	if operation.callCount != 1 {
		t.Errorf("expected 1 call, got %d", operation.callCount)
	}
}

// TestDo_SucceedsAfterFailures verifies that k < maxAttempts failures lead to
// exactly k+1 invocations and the successful value.
func TestDo_SucceedsAfterFailures(t *testing.T) {
	for failures := 0; failures < 3; failures++ {
		operation := &flakyOperation{failures: failures}

		value, err := Do(context.Background(), operation.call, 3, time.Millisecond)
		if err != nil {
			t.Fatalf("failures=%d: unexpected error: %v", failures, err)
		}
		if value != "ok" {
			t.Errorf("failures=%d: expected 'ok', got %q", failures, value)
		}
		if operation.callCount != failures+1 {
			t.Errorf("failures=%d: expected %d calls, got %d", failures, failures+1, operation.callCount)
		}
	}
}

func TestDo_ExhaustedReturnsLastError(t *testing.T) {
	callCount := 0
	operation := func(_ context.Context) (int, error) {
		callCount++
		return 0, errors.New("attempt failed " + strings.Repeat("!", callCount))
	}

	_, err := Do(context.Background(), operation, 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected ErrRetryExhausted, got %v", err)
	}
	if !strings.Contains(err.Error(), "attempt failed !!!") {
		t.Errorf("expected last error in message, got %q", err.Error())
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_NonPositiveAttemptsRunsOnce(t *testing.T) {
	operation := &flakyOperation{failures: 5}

	_, err := Do(context.Background(), operation.call, 0, time.Millisecond)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if operation.callCount != 1 {
		t.Errorf("expected 1 call, got %d", operation.callCount)
	}
}

func TestDo_PanicWithErrorIsRecovered(t *testing.T) {
	sentinel := errors.New("boom")
	operation := func(_ context.Context) (string, error) {
		panic(sentinel)
	}

	_, err := Do(context.Background(), operation, 2, time.Millisecond)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var panicError *PanicError
	if !errors.As(err, &panicError) {
		t.Fatalf("expected *PanicError in chain, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("expected panic value to be unwrappable, got %v", err)
	}
}

func TestDo_PanicWithNonErrorValueIsRecovered(t *testing.T) {
	operation := func(_ context.Context) (string, error) {
		panic(42)
	}

	_, err := Do(context.Background(), operation, 1, time.Millisecond)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "operation panicked: 42") {
		t.Errorf("expected panic value in message, got %q", err.Error())
	}
}

func TestDo_BackoffDoubles(t *testing.T) {
	var delays []time.Duration
	operation := &flakyOperation{failures: 10}

	_, _ = Do(context.Background(), operation.call, 4, time.Millisecond,
		WithOnRetry(func(_ int, delay time.Duration, _ error) {
			delays = append(delays, delay)
		}),
	)

	expected := []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	if len(delays) != len(expected) {
		t.Fatalf("expected %d waits, got %d", len(expected), len(delays))
	}
	for index := range expected {
		if delays[index] != expected[index] {
			t.Errorf("wait %d: expected %v, got %v", index, expected[index], delays[index])
		}
	}
}

func TestDo_MaxDelayCapsBackoff(t *testing.T) {
	var delays []time.Duration
	operation := &flakyOperation{failures: 10}

	_, _ = Do(context.Background(), operation.call, 4, 2*time.Millisecond,
		WithMaxDelay(3*time.Millisecond),
		WithOnRetry(func(_ int, delay time.Duration, _ error) {
			delays = append(delays, delay)
		}),
	)

	for index, delay := range delays {
		if delay > 3*time.Millisecond {
			t.Errorf("wait %d exceeded cap: %v", index, delay)
		}
	}
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	callCount := 0
	operation := func(_ context.Context) (string, error) {
		callCount++
		return "", fatal
	}

	_, err := Do(context.Background(), operation, 5, time.Millisecond,
		WithRetryable(func(err error) bool { return !errors.Is(err, fatal) }),
	)
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("non-retryable error must not be reported as exhausted")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	operation := &flakyOperation{failures: 10}

	start := time.Now()
	_, err := Do(ctx, operation.call, 5, time.Hour,
		WithOnRetry(func(_ int, _ time.Duration, _ error) { cancel() }),
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("backoff wait was not interrupted by cancellation")
	}
	if operation.callCount != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", operation.callCount)
	}
}
