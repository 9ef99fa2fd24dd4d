package icmpdaemon

import (
	"net"

	"github.com/netvigil/tnmcore/internal/wire"
	"github.com/netvigil/tnmcore/pkg/probe"
)

// ICMPv4 message types this daemon cares about on receive. Address Mask
// and Timestamp replies are not among the body types golang.org/x/net/icmp
// knows how to unmarshal, so incoming packets are classified directly off
// the raw type byte rather than through icmp.ParseMessage.
const (
	icmpTypeEchoReply          = 0
	icmpTypeDestUnreachable    = 3
	icmpTypeTimestampReply     = 14
	icmpTypeTimeExceeded       = 11
	icmpTypeAddressMaskReply   = 18
	codeDestUnreachablePort    = 3
)

// matchResult is what recv extracted from one inbound packet, ready to
// be applied to whichever job it matches.
type matchResult struct {
	typ     probe.Type
	icmpID  uint16
	seq     uint16
	sport   uint16
	dport   uint16
	addr    uint32
	result  uint32
	lastHop bool
	ok      bool
}

// classify parses a raw ICMPv4 packet from peer and extracts the fields
// needed to find its job, per the daemon's matching rules. Packets that
// are too short or carry an irrelevant type/code are reported as !ok and
// silently dropped by the caller.
func classify(buf []byte, peer net.IP) matchResult {
	if len(buf) < 8 {
		return matchResult{}
	}
	typ := buf[0]
	code := buf[1]
	body := buf[4:]

	switch typ {
	case icmpTypeEchoReply:
		id, seq, err := wire.IdentifierAndSequence(body)
		if err != nil {
			return matchResult{}
		}
		addr, aerr := wire.IPToUint32(peer)
		if aerr != nil {
			return matchResult{}
		}
		return matchResult{typ: probe.TypeEcho, icmpID: id, seq: seq, addr: addr, ok: true}

	case icmpTypeAddressMaskReply:
		id, seq, err := wire.IdentifierAndSequence(body)
		if err != nil {
			return matchResult{}
		}
		mask, merr := wire.AddressMaskFromReply(body)
		if merr != nil {
			return matchResult{}
		}
		addr, aerr := wire.IPToUint32(peer)
		if aerr != nil {
			return matchResult{}
		}
		return matchResult{typ: probe.TypeMask, icmpID: id, seq: seq, addr: addr, result: mask, ok: true}

	case icmpTypeTimestampReply:
		id, seq, err := wire.IdentifierAndSequence(body)
		if err != nil {
			return matchResult{}
		}
		delta, derr := wire.TimestampReplyDelta(body)
		if derr != nil {
			return matchResult{}
		}
		addr, aerr := wire.IPToUint32(peer)
		if aerr != nil {
			return matchResult{}
		}
		return matchResult{typ: probe.TypeTimestamp, icmpID: id, seq: seq, addr: addr, result: uint32(delta), ok: true}

	case icmpTypeTimeExceeded:
		if code != 0 || len(body) < 12 {
			return matchResult{}
		}
		sport, dport, err := wire.ParseEmbeddedUDPHeader(body[4:])
		if err != nil {
			return matchResult{}
		}
		addr, aerr := wire.IPToUint32(peer)
		if aerr != nil {
			return matchResult{}
		}
		return matchResult{typ: probe.TypeTrace, sport: sport, dport: dport, addr: addr, ok: true}

	case icmpTypeDestUnreachable:
		if code != codeDestUnreachablePort || len(body) < 12 {
			return matchResult{}
		}
		sport, dport, err := wire.ParseEmbeddedUDPHeader(body[4:])
		if err != nil {
			return matchResult{}
		}
		addr, aerr := wire.IPToUint32(peer)
		if aerr != nil {
			return matchResult{}
		}
		return matchResult{typ: probe.TypeTrace, sport: sport, dport: dport, addr: addr, lastHop: true, ok: true}

	default:
		return matchResult{}
	}
}

// find locates the in-flight job this packet resolves, applying the
// byte-swap alias tolerance for traceroute replies.
func find(jobs map[uint32]*job, m matchResult) *job {
	if !m.ok {
		return nil
	}
	for _, j := range jobs {
		if j.state != stateInFlight || j.typ != m.typ {
			continue
		}
		switch m.typ {
		case probe.TypeTrace:
			if wire.PortsMatch(j.sport, j.dport, m.sport, m.dport) {
				return j
			}
		default:
			dst, err := wire.IPToUint32(net.IP(j.dst[:]))
			if err == nil && j.icmpID == m.icmpID && dst == m.addr {
				return j
			}
		}
	}
	return nil
}
