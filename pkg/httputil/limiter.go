package httputil

import "context"

// Limiter bounds the number of concurrent in-flight requests against one
// quota regime. Excess callers block in Acquire until a slot frees up;
// requests queue rather than fail, so the limiter is pure admission
// control and never drops work.
//
// GitHub exposes three independent budgets (code search, REST, GraphQL
// cost points), so callers hold one Limiter per regime.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a limiter allowing up to n concurrent holders.
// n < 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is available or ctx is cancelled.
// On success the caller must call Release exactly once.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire.
func (l *Limiter) Release() {
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
