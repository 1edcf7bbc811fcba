package stages

import (
	"context"
	"time"
)

// Clock abstracts wall time and sleeping so polling can be tested without waiting
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock
type RealClock struct{}

// Now implements Clock
func (RealClock) Now() time.Time { return time.Now() }

// Sleep implements Clock
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
