package scheduler

import "time"

// Tick runs one full pass of the scheduling algorithm: charge elapsed
// time against every waiting job, fire every job whose remaining time
// has reached zero, sweep away expired jobs, charge fire cost against
// what's left, and rearm the external timer for the next wake-up. The
// external Timer normally calls Tick for itself; callers only need it
// directly to drive the scheduler deterministically in tests or to
// force an out-of-band pass.
func (s *Scheduler) Tick() {
	s.adjustTime()
	s.firePass()
	s.sweep()
	s.adjustTime()
	s.rearm()
}

// Schedule is an alias for Tick: the external event that tells the
// scheduler "time may have passed, re-evaluate."
func (s *Scheduler) Schedule() {
	s.Tick()
}

// adjustTime subtracts the elapsed wall-clock time since the last call
// from every waiting job's remaining time. A clock that runs backwards
// produces no adjustment rather than a negative one.
func (s *Scheduler) adjustTime() {
	now := s.now()
	delta := now.Sub(s.lastTime)
	s.lastTime = now
	if delta <= 0 {
		return
	}
	for _, j := range s.jobs {
		if j.status == StatusWaiting {
			j.remtime -= delta
		}
	}
}

// firePass fires every waiting job whose remaining time has reached
// zero, in insertion order. Firing a job may mutate the job list (via
// Create/Destroy/Configure called from within its Command), so the pass
// restarts from the front after each fire rather than continuing a
// stale iteration.
func (s *Scheduler) firePass() {
	for {
		fired := false
		for _, j := range s.jobs {
			if j.status == StatusWaiting && j.remtime <= 0 {
				s.fire(j)
				fired = true
				break
			}
		}
		if !fired {
			return
		}
	}
}

func (s *Scheduler) fire(j *job) {
	if j.hasPending {
		j.opts.Command = j.pendingCommand
		j.pendingCommand = nil
		j.hasPending = false
	}

	j.status = StatusRunning
	prevCurrent := s.current
	s.current = j.handle

	var cmdErr error
	if j.opts.Command != nil {
		cmdErr = j.opts.Command(j.handle)
	}

	s.current = prevCurrent
	if j.status == StatusRunning {
		j.status = StatusWaiting
	}

	if cmdErr != nil {
		if j.opts.ErrorCmd != nil {
			j.opts.ErrorCmd(j.handle)
		} else {
			if s.onBackgroundError != nil {
				s.onBackgroundError(j.handle, cmdErr)
			}
			// With no ErrorCmd of its own, an erroring job expires: the
			// next sweep removes it after running its ExitCmd.
			j.status = StatusExpired
		}
	}

	j.remtime = j.opts.Interval
	if j.opts.Iterations > 0 {
		j.opts.Iterations--
		if j.opts.Iterations == 0 {
			j.status = StatusExpired
		}
	}
}

// sweep removes every expired job, running its ExitCmd first. Like
// firePass, it restarts after each removal since ExitCmd may itself
// destroy other jobs.
func (s *Scheduler) sweep() {
	for {
		removed := false
		for i, j := range s.jobs {
			if j.status != StatusExpired {
				continue
			}
			if j.opts.ExitCmd != nil {
				j.opts.ExitCmd(j.handle)
			}
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			removed = true
			break
		}
		if !removed {
			return
		}
	}
}

// rearm computes the smallest remaining time across waiting and
// expired jobs, floored at zero, and installs the external timer for
// that duration. Expired jobs count as immediate candidates so the
// sweep that removes them runs on the very next fire rather than
// whenever some other job happens to wake the scheduler. Suspended and
// running jobs are excluded: their remtime is either frozen or about to
// be reset. With no candidates left it cancels the timer instead of
// arming a wait on nothing.
func (s *Scheduler) rearm() {
	if s.timer == nil {
		return
	}

	var earliest time.Duration
	found := false
	for _, j := range s.jobs {
		switch j.status {
		case StatusWaiting:
			if !found || j.remtime < earliest {
				earliest = j.remtime
				found = true
			}
		case StatusExpired:
			earliest = 0
			found = true
		}
	}
	if !found {
		s.timer.Cancel()
		return
	}
	if earliest < 0 {
		earliest = 0
	}
	s.timer.Arm(earliest, s.Tick)
}
