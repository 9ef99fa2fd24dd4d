package resolver

import (
	"errors"
	"fmt"

	"github.com/netvigil/tnmcore/internal/wire"
)

// ErrNoAnswer is returned when the search list (or a single-shot query)
// is exhausted without a usable answer.
var ErrNoAnswer = errors.New("resolver: no answer")

// rcodeError turns a non-success RCODE into an error using its
// human-readable error-kind mapping.
func rcodeError(kind wire.RcodeKind) error {
	if kind == wire.RcodeNoError {
		return nil
	}
	return fmt.Errorf("resolver: %s", kind)
}

// noRecordError reports an empty-answer-section failure for the RR
// types that skip search-list fallback, surfacing "no X record"
// immediately.
func noRecordError(rrName string) error {
	return fmt.Errorf("resolver: no %s record", rrName)
}
