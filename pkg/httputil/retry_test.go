package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryRetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("transient")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent errors should not retry, got %d calls", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	transient := errors.New("still down")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: transient}
	})
	if !errors.Is(err, transient) {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Minute, func() error {
		return &RetryableError{Err: errors.New("transient")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryLinearBackoff(t *testing.T) {
	step := 10 * time.Millisecond
	start := time.Now()
	_ = Retry(context.Background(), 3, step, func() error {
		return &RetryableError{Err: errors.New("transient")}
	})
	// Waits are step and 2*step between the three attempts.
	if elapsed := time.Since(start); elapsed < 3*step {
		t.Errorf("expected at least %v elapsed, got %v", 3*step, elapsed)
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(2)
	ctx := context.Background()

	running := make(chan struct{}, 4)
	release := make(chan struct{})
	done := make(chan error, 4)

	for i := 0; i < 4; i++ {
		go func() {
			done <- l.Do(ctx, func() error {
				running <- struct{}{}
				<-release
				return nil
			})
		}()
	}

	// Only two should get in.
	<-running
	<-running
	select {
	case <-running:
		t.Fatal("limiter admitted more than 2 concurrent holders")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestLimiterAcquireCancelled(t *testing.T) {
	l := NewLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	l.Release()
}

func TestRetryNotifyReportsEachWait(t *testing.T) {
	var attempts []int
	calls := 0
	err := RetryNotify(context.Background(), 4, time.Millisecond, func(a int) {
		attempts = append(attempts, a)
	}, func() error {
		calls++
		return &RetryableError{Err: errors.New("still down")}
	})
	if err == nil {
		t.Fatal("expected the last error")
	}
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
	// Three waits between four attempts, no notification after the last.
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("notified attempts = %v, want [1 2 3]", attempts)
	}
}
