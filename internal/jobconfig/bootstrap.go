package jobconfig

import (
	"fmt"
	"time"

	"github.com/netvigil/tnmcore/internal/scheduler"
)

// HookRegistry maps the hook names used in a bootstrap file to the
// scheduler commands they run. Callers populate this with whatever
// actions their daemon supports (e.g. "icmp.sweep", "dns.refresh")
// before calling Bootstrap.
type HookRegistry map[string]scheduler.Command

// Bootstrap creates one scheduler job per entry in f, resolving each
// entry's Hook against hooks. It returns the handles created, in file
// order, or an error (creating none) if any hook name is unknown.
func Bootstrap(s *scheduler.Scheduler, f File, hooks HookRegistry) ([]scheduler.Handle, error) {
	for _, j := range f.Jobs {
		if _, ok := hooks[j.Hook]; !ok {
			return nil, fmt.Errorf("jobconfig: job %q references unknown hook %q", j.Name, j.Hook)
		}
	}

	handles := make([]scheduler.Handle, 0, len(f.Jobs))
	for _, j := range f.Jobs {
		h := s.Create(scheduler.Options{
			Interval:   time.Duration(j.Interval),
			Iterations: j.Iterations,
			Tags:       append([]string{"name:" + j.Name}, j.Tags...),
			Command:    hooks[j.Hook],
		})
		handles = append(handles, h)
	}
	return handles, nil
}
