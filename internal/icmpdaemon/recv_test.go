package icmpdaemon

import (
	"net"
	"testing"

	"github.com/netvigil/tnmcore/pkg/probe"
)

func TestClassifyEchoReply(t *testing.T) {
	body := make([]byte, 8)
	body[0], body[1] = 0, 0       // type=0 echo reply, code=0
	body[4], body[5] = 0x00, 0x07 // id=7
	body[6], body[7] = 0x00, 0x01 // seq=1

	m := classify(body, net.ParseIP("192.0.2.1"))
	if !m.ok || m.typ != probe.TypeEcho || m.icmpID != 7 {
		t.Errorf("classify echo reply = %+v", m)
	}
}

func TestClassifyTooShortIsDropped(t *testing.T) {
	m := classify(make([]byte, 4), net.ParseIP("192.0.2.1"))
	if m.ok {
		t.Error("expected short packet to be dropped")
	}
}

func TestClassifyDestUnreachableWrongCodeDropped(t *testing.T) {
	body := make([]byte, 32)
	body[0] = icmpTypeDestUnreachable
	body[1] = 1 // not code 3 (port unreachable)
	m := classify(body, net.ParseIP("192.0.2.1"))
	if m.ok {
		t.Error("expected non-port dest-unreachable to be dropped")
	}
}

func TestFindMatchesEchoByIDAndAddr(t *testing.T) {
	target := &job{state: stateInFlight, typ: probe.TypeEcho, icmpID: 7, dst: [4]byte{192, 0, 2, 1}}
	other := &job{state: stateInFlight, typ: probe.TypeEcho, icmpID: 8, dst: [4]byte{192, 0, 2, 1}}
	jobs := map[uint32]*job{1: other, 2: target}

	m := matchResult{ok: true, typ: probe.TypeEcho, icmpID: 7, addr: 0xC0000201}
	got := find(jobs, m)
	if got != target {
		t.Errorf("find returned %+v, want the job with matching icmpID", got)
	}
}

func TestFindMatchesTraceWithByteSwappedAlias(t *testing.T) {
	target := &job{state: stateInFlight, typ: probe.TypeTrace, sport: 0x1234, dport: 0x5678}
	jobs := map[uint32]*job{1: target}

	m := matchResult{ok: true, typ: probe.TypeTrace, sport: 0x3412, dport: 0x5678}
	if got := find(jobs, m); got != target {
		t.Error("expected trace match via byte-swapped sport alias")
	}
}

func TestFindIgnoresDoneJobs(t *testing.T) {
	j := &job{state: stateDone, typ: probe.TypeEcho, icmpID: 7, dst: [4]byte{192, 0, 2, 1}}
	jobs := map[uint32]*job{1: j}
	m := matchResult{ok: true, typ: probe.TypeEcho, icmpID: 7, addr: 0xC0000201}
	if got := find(jobs, m); got != nil {
		t.Error("expected done job to be ignored")
	}
}
