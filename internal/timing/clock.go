// Package timing provides the monotonic clock and deferred-execution
// primitives the trial engines are driven with.
package timing

import (
	"context"
	"time"
)

// Clock abstracts a monotonic time source so engine behaviour can be
// reproduced in tests. time.Time values obtained from a real clock carry
// Go's monotonic reading, so differences are immune to wall-clock jumps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SleepFunc suspends the caller for the given duration or until the context
// is cancelled. Session drivers use it to turn a scheduling request into a
// re-injected event.
type SleepFunc func(ctx context.Context, d time.Duration)

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// DurationMs converts the difference between two timestamps to milliseconds,
// clamped at zero so out-of-order stamps never produce negative durations.
func DurationMs(start, end time.Time) float64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// MsToMinutes converts milliseconds to minutes.
func MsToMinutes(ms float64) float64 {
	return ms / 1000.0 / 60.0
}
