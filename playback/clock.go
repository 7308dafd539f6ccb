package playback

import (
	"context"
	"math/rand/v2"
	"time"
)

// Clock supplies time to the scheduler. Sleep must return early with the
// context's error when ctx is cancelled.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Rand is a source of uniform values in [0, 1).
type Rand interface {
	Float64() float64
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
