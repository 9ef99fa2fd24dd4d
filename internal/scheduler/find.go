package scheduler

import "path"

// anyTagMatches reports whether pattern glob-matches at least one tag,
// using shell-style wildcards (path.Match's "*", "?", "[...]").
func anyTagMatches(pattern string, tags []string) bool {
	for _, tag := range tags {
		ok, err := path.Match(pattern, tag)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// FindOptions filters the result of Scheduler.Find.
type FindOptions struct {
	// Status, when non-nil, restricts the result to jobs in this
	// status.
	Status *Status
	// Tags, when non-empty, requires every pattern to glob-match at
	// least one of the job's own tags.
	Tags []string
}
