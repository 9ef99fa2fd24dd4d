// Package icmpdaemon implements the privileged ICMP probe daemon: it owns
// the raw socket, issues echo/mask/timestamp and UDP-TTL probes on behalf
// of jobs read from stdin, and writes reply frames to stdout as each job
// resolves. It is the process spawned by internal/icmpclient.
package icmpdaemon

import (
	"time"

	"github.com/netvigil/tnmcore/internal/wire"
	"github.com/netvigil/tnmcore/pkg/probe"
)

// jobState is a job's position in the per-job state machine.
type jobState int

const (
	statePending jobState = iota
	stateInFlight
	stateDone
)

// job tracks one target's progress through the retry state machine. A
// Request with N targets becomes N jobs, each independently admitted to
// the in-flight window and independently retried.
type job struct {
	tid     uint32
	typ     probe.Type
	dst     [4]byte
	ttl     uint8
	timeout uint8
	retries uint8
	delay   uint8
	size    uint16
	window  uint16

	state   jobState
	attempt int // 0-based index of the current/next attempt

	// icmpID is the 16-bit identifier used to match echo/mask/timestamp
	// replies; sport/dport are the UDP ports used to match traceroute
	// replies. Only one pair is meaningful per job, keyed by typ.
	icmpID uint16
	sport  uint16
	dport  uint16

	sentAt   time.Time
	deadline time.Time

	status probe.Status
	addr   uint32
	result uint32
	flags  uint8
}

// newJob builds a pending job from a decoded request frame. icmpID,
// sport and dport are assigned by the daemon when the job is first sent
// (icmpID and trace sport from a shared counter, trace dport from the
// trace port pool) since the wire frame carries none of them.
func newJob(f wire.RequestFrame) *job {
	return &job{
		tid:     f.TID,
		typ:     f.Type,
		dst:     uint32ToBytes(f.Dst),
		ttl:     f.TTL,
		timeout: f.Timeout,
		retries: f.Retries,
		delay:   f.Delay,
		size:    f.Size,
		window:  f.Window,
		state:   statePending,
	}
}

func uint32ToBytes(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// attemptTimeout returns the deadline duration for the job's current
// attempt, per the request's AttemptTimeoutMillis schedule (pkg/probe).
func (j *job) attemptTimeout() time.Duration {
	req := probe.Request{Timeout: j.timeout, Retries: j.retries}
	return time.Duration(req.AttemptTimeoutMillis(j.attempt)) * time.Millisecond
}

// finish transitions the job to done with the given status/result and
// records the values that will populate its reply frame.
func (j *job) finish(status probe.Status, addr, result uint32, lastHop bool) {
	j.state = stateDone
	j.status = status
	j.addr = addr
	j.result = result
	j.flags = wire.SetLastHop(0, lastHop)
}

// replyFrame converts a done job into its wire reply.
func (j *job) replyFrame() wire.ReplyFrame {
	return wire.ReplyFrame{
		Version: wire.ProtocolVersion,
		Type:    j.typ,
		Status:  j.status,
		Flags:   j.flags,
		TID:     j.tid,
		Addr:    j.addr,
		Result:  j.result,
	}
}
