// Package resolver implements a DNS resolver façade: UDP/53 queries
// with retry/timeout, the address/name and name/ip lookup semantics,
// the RR-type query family, and a process-lifetime lookup cache.
package resolver

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/wire"
)

// Resolver issues DNS queries on behalf of one configured nameserver
// set/search list and memoizes successful lookups.
type Resolver struct {
	cfg    Config
	logger *zap.Logger
	cache  *lookupCache
}

// New returns a Resolver for the given configuration.
func New(cfg Config, logger *zap.Logger) *Resolver {
	return &Resolver{cfg: cfg, logger: logger, cache: newLookupCache()}
}

// AddressName implements "address name": resolve input to an IPv4
// address. If input is already a dotted quad, the mapping is confirmed
// with a PTR lookup; otherwise input is validated as a host name and
// resolved by walking the search list.
func (r *Resolver) AddressName(ctx context.Context, input string) (net.IP, error) {
	if quad, ok := ParseQuad(input); ok {
		name, err := r.ptrLookup(ctx, quad)
		if err != nil {
			return nil, err
		}
		r.cache.putForward(name, quad)
		return quad, nil
	}

	if !IsValidHostName(input) {
		return nil, fmt.Errorf("resolver: invalid host name %q", input)
	}
	if ip, ok := r.cache.getForward(input); ok {
		return ip, nil
	}

	var lastErr error
	for _, candidate := range searchCandidates(input, r.cfg.SearchList) {
		reply, err := r.exchange(ctx, wire.QTypeA, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if err := rcodeError(reply.RcodeKind); err != nil {
			lastErr = err
			continue
		}
		if len(reply.Addresses) == 0 {
			lastErr = ErrNoAnswer
			continue
		}
		r.cache.putForward(input, reply.Addresses[0])
		return reply.Addresses[0], nil
	}
	if lastErr == nil {
		lastErr = ErrNoAnswer
	}
	return nil, lastErr
}

// NameIP implements "name ip": validate input as a dotted quad, build
// its in-addr.arpa name, and perform a single PTR query with no
// search-list recursion.
func (r *Resolver) NameIP(ctx context.Context, input string) (string, error) {
	quad, ok := ParseQuad(input)
	if !ok {
		return "", fmt.Errorf("resolver: invalid address %q", input)
	}
	return r.ptrLookup(ctx, quad)
}

func (r *Resolver) ptrLookup(ctx context.Context, quad net.IP) (string, error) {
	if name, ok := r.cache.getReverse(quad.String()); ok {
		return name, nil
	}
	ptrName, err := wire.BuildPTRName(quad)
	if err != nil {
		return "", fmt.Errorf("resolver: %w", err)
	}
	reply, err := r.exchange(ctx, wire.QTypePTR, ptrName)
	if err != nil {
		return "", err
	}
	if err := rcodeError(reply.RcodeKind); err != nil {
		return "", err
	}
	if len(reply.Strings) == 0 {
		return "", ErrNoAnswer
	}
	r.cache.putReverse(quad.String(), reply.Strings[0])
	return reply.Strings[0], nil
}

// rrTypeName names the record type for "no X record" error messages.
func rrTypeName(qtype wire.QType) string {
	switch qtype {
	case wire.QTypeHINFO:
		return "hinfo"
	case wire.QTypeMX:
		return "mx"
	case wire.QTypeNS:
		return "ns"
	case wire.QTypeSOA:
		return "soa"
	case wire.QTypeTXT:
		return "txt"
	case wire.QTypeCNAME:
		return "cname"
	default:
		return "record"
	}
}

// recursesSearchList reports whether qtype's forward lookups walk the
// search list. Only NS and MX do; PTR/SOA/TXT/HINFO/CNAME are queried
// once, exactly as entered.
func recursesSearchList(qtype wire.QType) bool {
	return qtype == wire.QTypeNS || qtype == wire.QTypeMX
}

// QueryRR implements the hinfo/mx/ns/soa/txt/cname query family: if
// input is a dotted quad, it is first resolved to its canonical name by
// PTR lookup (no search-list recursion applies in that case either way);
// otherwise it is validated as a host name, and (for NS/MX only) the
// search list is walked until an answer is found.
func (r *Resolver) QueryRR(ctx context.Context, qtype wire.QType, input string) (*wire.Reply, error) {
	name := input
	quadInput := false
	if quad, ok := ParseQuad(input); ok {
		canonical, err := r.ptrLookup(ctx, quad)
		if err != nil {
			return nil, err
		}
		name = canonical
		quadInput = true
	} else if !IsValidHostName(input) {
		return nil, fmt.Errorf("resolver: invalid host name %q", input)
	}

	candidates := []string{name}
	if recursesSearchList(qtype) && !quadInput {
		candidates = searchCandidates(name, r.cfg.SearchList)
	}

	var lastErr error
	for _, candidate := range candidates {
		reply, err := r.exchange(ctx, qtype, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if err := rcodeError(reply.RcodeKind); err != nil {
			lastErr = err
			continue
		}
		if len(reply.Strings) == 0 && len(reply.Addresses) == 0 {
			if !recursesSearchList(qtype) {
				return nil, noRecordError(rrTypeName(qtype))
			}
			lastErr = ErrNoAnswer
			continue
		}
		return reply, nil
	}
	if lastErr == nil {
		lastErr = ErrNoAnswer
	}
	return nil, lastErr
}

// searchCandidates returns name qualified with each search-list domain
// in turn. The bare, unqualified name is tried on its own only when no
// search list is configured at all; once a search list exists, every
// candidate is domain-qualified by it.
func searchCandidates(name string, searchList []string) []string {
	if len(searchList) == 0 {
		return []string{name}
	}
	candidates := make([]string, 0, len(searchList))
	for _, domain := range searchList {
		if domain == "" {
			continue
		}
		candidates = append(candidates, name+"."+domain)
	}
	return candidates
}
