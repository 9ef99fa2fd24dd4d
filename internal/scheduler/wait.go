package scheduler

import (
	"context"
	"time"
)

// pollInterval bounds how often Wait re-checks a job's presence
// between scheduler ticks driven by the real timer.
const pollInterval = 10 * time.Millisecond

// Wait blocks until handle h is no longer in the job list (it expired
// and was swept, or was destroyed and then swept) or ctx is cancelled.
// It does not drive Tick itself; the scheduler's own timer (or another
// goroutine calling Tick) is assumed to be doing that.
func (s *Scheduler) Wait(ctx context.Context, h Handle) error {
	if s.find(h) == nil {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.find(h) == nil {
				return nil
			}
		}
	}
}
