package engine

import (
	"context"
	"time"
)

// Clock abstracts wall-clock time so convergence waits can run against
// simulated time in tests.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until the context is done, returning the
	// context error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
