package scheduler

import "time"

// Timer is the external timer collaborator the scheduler drives: it
// knows nothing about jobs, only how to fire a callback once after a
// duration, and how to cancel a pending fire. Tests supply a fake
// Timer to drive the scheduler deterministically without real sleeps.
type Timer interface {
	// Arm schedules fn to run after d, replacing any previously armed
	// fire.
	Arm(d time.Duration, fn func())
	// Cancel stops a previously armed fire, if any.
	Cancel()
}

// realTimer is the production Timer, backed by time.AfterFunc.
type realTimer struct {
	t *time.Timer
}

// NewRealTimer returns a Timer backed by the standard library.
func NewRealTimer() Timer {
	return &realTimer{}
}

func (r *realTimer) Arm(d time.Duration, fn func()) {
	r.Cancel()
	r.t = time.AfterFunc(d, fn)
}

func (r *realTimer) Cancel() {
	if r.t != nil {
		r.t.Stop()
		r.t = nil
	}
}
