package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives a list of jobs against a single monotonic time
// source and a single external Timer. It is single-threaded and
// cooperative: Create, Configure, Destroy, Find, and Current are all
// meant to be called from the same goroutine that drives Tick, and may
// themselves be called from within a running Command.
type Scheduler struct {
	logger *zap.Logger
	timer  Timer
	now    func() time.Time

	jobs []*job

	lastTime time.Time
	current  Handle

	// onBackgroundError receives a Command's error when the job has no
	// ErrorCmd of its own. Defaults to logging at warn level.
	onBackgroundError func(h Handle, err error)
}

// New creates an idle Scheduler. timer is the external timer
// collaborator; pass NewRealTimer() in production. now, if nil,
// defaults to time.Now and exists so tests can drive AdjustTime with a
// fake clock instead of a real one.
func New(logger *zap.Logger, timer Timer, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	s := &Scheduler{
		logger:   logger,
		timer:    timer,
		now:      now,
		lastTime: now(),
	}
	s.onBackgroundError = func(h Handle, err error) {
		s.logger.Warn("scheduler: unhandled job error", zap.String("handle", string(h)), zap.Error(err))
	}
	return s
}

// SetBackgroundErrorHandler overrides the default logger-based handler
// for Command errors on jobs with no ErrorCmd of their own.
func (s *Scheduler) SetBackgroundErrorHandler(fn func(h Handle, err error)) {
	s.onBackgroundError = fn
}

// Create allocates a new job and rearms the external timer. Interval
// defaults to DefaultInterval when left zero; Iterations of 0 means
// unbounded.
func (s *Scheduler) Create(opts Options) Handle {
	j := newJob(opts)
	s.jobs = append(s.jobs, j)
	s.rearm()
	return j.handle
}

// Configure mutates an existing job's options. A Command replacement
// takes effect at the job's next fire boundary rather than immediately,
// so a job cannot observe its own command changing mid-fire.
func (s *Scheduler) Configure(h Handle, opts Options) error {
	j := s.find(h)
	if j == nil {
		return fmt.Errorf("scheduler: unknown handle %q", h)
	}
	if opts.Interval > 0 {
		j.opts.Interval = opts.Interval
	}
	if opts.Iterations != 0 {
		j.opts.Iterations = opts.Iterations
	}
	if opts.Tags != nil {
		j.opts.Tags = opts.Tags
		j.tags = opts.Tags
	}
	if opts.ExitCmd != nil {
		j.opts.ExitCmd = opts.ExitCmd
	}
	if opts.ErrorCmd != nil {
		j.opts.ErrorCmd = opts.ErrorCmd
	}
	if opts.Command != nil {
		j.pendingCommand = opts.Command
		j.hasPending = true
	}
	s.rearm()
	return nil
}

// Cget reads a single named field of a job: "interval", "iterations",
// "tags", "status", or "remtime".
func (s *Scheduler) Cget(h Handle, field string) (any, error) {
	j := s.find(h)
	if j == nil {
		return nil, fmt.Errorf("scheduler: unknown handle %q", h)
	}
	switch field {
	case "interval":
		return j.opts.Interval, nil
	case "iterations":
		return j.opts.Iterations, nil
	case "tags":
		return append([]string(nil), j.tags...), nil
	case "status":
		return j.status, nil
	case "remtime":
		return j.remtime, nil
	default:
		return nil, fmt.Errorf("scheduler: unknown field %q", field)
	}
}

// Attribute reads or writes an arbitrary per-job attribute, a free-form
// key/value store independent of the job's scheduling options. With no
// value it returns the attribute's current value, or "" when unset;
// with a value it stores it and returns what was stored.
func (s *Scheduler) Attribute(h Handle, name string, value ...string) (string, error) {
	j := s.find(h)
	if j == nil {
		return "", fmt.Errorf("scheduler: unknown handle %q", h)
	}
	if len(value) == 0 {
		return j.attrs[name], nil
	}
	if j.attrs == nil {
		j.attrs = make(map[string]string)
	}
	j.attrs[name] = value[0]
	return value[0], nil
}

// Destroy marks a job expired; it is removed from the list, and its
// ExitCmd (if any) runs, on the next sweep.
func (s *Scheduler) Destroy(h Handle) error {
	j := s.find(h)
	if j == nil {
		return fmt.Errorf("scheduler: unknown handle %q", h)
	}
	j.status = StatusExpired
	s.rearm()
	return nil
}

// Suspend freezes a waiting job's remaining time: AdjustTime skips
// suspended jobs, so they never become eligible to fire until Resume.
func (s *Scheduler) Suspend(h Handle) error {
	j := s.find(h)
	if j == nil {
		return fmt.Errorf("scheduler: unknown handle %q", h)
	}
	if j.status == StatusWaiting {
		j.status = StatusSuspended
	}
	return nil
}

// Resume returns a suspended job to waiting and rearms the timer, since
// its remaining time may now be the new earliest.
func (s *Scheduler) Resume(h Handle) error {
	j := s.find(h)
	if j == nil {
		return fmt.Errorf("scheduler: unknown handle %q", h)
	}
	if j.status == StatusSuspended {
		j.status = StatusWaiting
	}
	s.rearm()
	return nil
}

// Find lists handles matching the given status/tag filter, in
// insertion order.
func (s *Scheduler) Find(opts FindOptions) []Handle {
	var out []Handle
	for _, j := range s.jobs {
		if opts.Status != nil && j.status != *opts.Status {
			continue
		}
		if !j.matchesTags(opts.Tags) {
			continue
		}
		out = append(out, j.handle)
	}
	return out
}

// Current returns the handle of the job presently executing its
// Command, or "" if no job is firing.
func (s *Scheduler) Current() Handle {
	return s.current
}

func (s *Scheduler) find(h Handle) *job {
	for _, j := range s.jobs {
		if j.handle == h {
			return j
		}
	}
	return nil
}
