// Package scheduler drives a set of recurring user actions from a
// single monotonic time source and a single timer primitive: a
// single-threaded, cooperative scheduler where jobs fire in insertion
// order, may mutate the job list from within their own command, and are
// re-armed against one external timer between passes.
package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// Status is a job's externally visible lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusRunning   Status = "running"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// Command is the user action bound to a job. It receives the job's own
// handle so it can call Current, Configure, or Destroy on itself, and
// returns an error if the action failed.
type Command func(h Handle) error

// Handle identifies one scheduled job. It is opaque and comparable.
type Handle string

// Options configures a job at creation or via Configure.
type Options struct {
	Interval   time.Duration
	Iterations int // 0 = unbounded
	Tags       []string
	Command    Command
	// ExitCmd runs once, with no further retries on failure, when the
	// job is removed by the sweep (natural expiry or Destroy).
	ExitCmd Command
	// ErrorCmd runs in place of the background-error handler when
	// Command returns a non-nil error.
	ErrorCmd Command
}

// DefaultInterval is the interval Create applies when Options.Interval
// is left zero; a zero Options.Iterations means unbounded.
const DefaultInterval = 1000 * time.Millisecond

// job is the scheduler's internal record for one handle.
type job struct {
	handle Handle
	opts   Options

	status  Status
	remtime time.Duration

	// pendingCommand holds a queued -command replacement: it takes
	// effect at the next fire boundary, never mid-fire.
	pendingCommand Command
	hasPending     bool

	tags []string

	// attrs is the job's free-form attribute store, read and written via
	// Scheduler.Attribute. Allocated lazily on first write.
	attrs map[string]string
}

// matchesTags reports whether every pattern in patterns glob-matches at
// least one of the job's tags. An empty patterns list always matches.
func (j *job) matchesTags(patterns []string) bool {
	for _, pat := range patterns {
		if !anyTagMatches(pat, j.tags) {
			return false
		}
	}
	return true
}

func newJob(opts Options) *job {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &job{
		handle:  Handle(uuid.NewString()),
		opts:    opts,
		status:  StatusWaiting,
		remtime: opts.Interval,
		tags:    opts.Tags,
	}
}
