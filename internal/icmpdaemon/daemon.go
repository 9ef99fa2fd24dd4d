package icmpdaemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/icmp"

	"github.com/netvigil/tnmcore/internal/wire"
	"github.com/netvigil/tnmcore/pkg/probe"
)

// Daemon is the privileged ICMP probe engine: it owns the raw socket and
// the per-job retry state machine, consuming request frames from stdin
// and producing reply frames on stdout.
type Daemon struct {
	logger *zap.Logger

	conn   *icmp.PacketConn
	sender *sender
	pool   *wire.PortPool
	idSeq  uint16

	jobs    map[uint32]*job
	pending []uint32 // tids awaiting their first attempt, in admission order
	window  *window

	// sendGate is the earliest time a new attempt may go out. Every
	// send pushes it forward by the job's delay, so pumpWindow/
	// sweepDeadlines never issue packets faster than the request asked
	// for, without blocking the select loop from servicing replies in
	// the meantime.
	sendGate time.Time
}

// New opens the raw ICMPv4 socket and returns a Daemon ready to Run.
// Opening the socket is the one operation that requires root; callers
// are expected to invoke dropPrivileges immediately after New succeeds.
func New(logger *zap.Logger) (*Daemon, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("icmpdaemon: open raw socket: %w", err)
	}
	return &Daemon{
		logger: logger,
		conn:   conn,
		sender: newSender(conn),
		pool:   wire.NewPortPool(),
		jobs:   make(map[uint32]*job),
	}, nil
}

func (d *Daemon) Close() error {
	if d.sender.rawTrace != nil {
		d.sender.rawTrace.close()
	}
	return d.conn.Close()
}

// Run drives the daemon's select loop: it wakes on stdin, on
// the raw socket, or on the earliest per-job retry deadline, admitting
// new jobs as the in-flight window allows and draining completed jobs
// to stdout after every event.
func (d *Daemon) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	reqCh := make(chan wire.RequestFrame)
	replyCh := make(chan wire.ReplyFrame, 256)
	readErrCh := make(chan error, 1)
	writeErrCh := make(chan error, 1)
	pktCh := make(chan rawPacket, 64)

	go readRequests(stdin, reqCh, readErrCh)
	go writeReplies(stdout, replyCh, writeErrCh)
	go d.readSocket(ctx, pktCh, readErrCh)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		d.rearmTimer(timer)

		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrCh:
			d.drainAll(replyCh, writeErrCh)
			return err

		case err := <-writeErrCh:
			return err

		case f, ok := <-reqCh:
			if !ok {
				// stdin closed: stop admitting new requests, but let
				// whatever is outstanding resolve through the normal
				// reply-match/retry-exhaustion path (pumpWindow,
				// sweepDeadlines, handlePacket) instead of forcing it.
				// Setting reqCh to nil removes this case from future
				// selects rather than spinning on a closed channel.
				reqCh = nil
				if len(d.jobs) == 0 {
					close(replyCh)
					return nil
				}
				continue
			}
			if err := d.admit(f); err != nil {
				d.logger.Warn("reject malformed request", zap.Error(err))
				continue
			}
			d.pumpWindow()
			if err := d.drainDone(replyCh, writeErrCh); err != nil {
				return err
			}

		case pkt := <-pktCh:
			d.handlePacket(pkt)
			if err := d.drainDone(replyCh, writeErrCh); err != nil {
				return err
			}
			d.pumpWindow()
			if reqCh == nil && len(d.jobs) == 0 {
				close(replyCh)
				return nil
			}

		case <-timer.C:
			d.sweepDeadlines()
			if err := d.drainDone(replyCh, writeErrCh); err != nil {
				return err
			}
			d.pumpWindow()
			if reqCh == nil && len(d.jobs) == 0 {
				close(replyCh)
				return nil
			}
		}
	}
}

// admit converts an incoming request frame into a pending job. The
// window is (re)computed whenever no jobs are currently tracked, so
// each client call's window setting takes effect for that call's batch
// without being pinned by a window value from an earlier, now-drained
// call.
func (d *Daemon) admit(f wire.RequestFrame) error {
	j := newJob(f)
	if d.window == nil || len(d.jobs) == 0 {
		d.window = newWindow(f.Window)
	}
	d.jobs[j.tid] = j
	d.pending = append(d.pending, j.tid)
	return nil
}

// pumpWindow promotes pending jobs to in-flight in admission order
// while the window has room, sending the first attempt for each and
// arming its deadline. It stops as soon as the window fills or the
// post-send delay gate is in the future, leaving the remaining pending
// jobs for the next wake.
func (d *Daemon) pumpWindow() {
	for len(d.pending) > 0 {
		j, ok := d.jobs[d.pending[0]]
		if !ok || j.state != statePending {
			d.pending = d.pending[1:]
			continue
		}
		if d.window != nil && !d.window.canAdmit() {
			return
		}
		if time.Now().Before(d.sendGate) {
			return
		}
		d.pending = d.pending[1:]
		if err := assignProbeIdentity(j, &d.idSeq, d.pool); err != nil {
			j.finish(probe.StatusGenError, 0, 0, false)
			continue
		}
		d.sendAttempt(j)
		if d.window != nil {
			d.window.admit()
		}
	}
}

// sendAttempt transmits the current attempt for j, arms its per-attempt
// deadline, and pushes the shared send gate forward by the job's delay:
// after each packet send the loop holds off on new sends for at least
// delay ms, while still servicing replies. EHOSTDOWN is treated as a
// retryable send error rather than a terminal one.
func (d *Daemon) sendAttempt(j *job) {
	j.state = stateInFlight
	j.sentAt = time.Now()
	j.deadline = j.sentAt.Add(j.attemptTimeout())
	d.sendGate = j.sentAt.Add(time.Duration(j.delay) * time.Millisecond)

	err := d.sender.send(j)
	if err != nil && !isEHostDown(err) {
		d.releaseJob(j)
		j.finish(probe.StatusGenError, 0, 0, false)
	}
}

// sweepDeadlines advances every in-flight job whose deadline has
// passed: either to the next attempt, or to done(timeout) if retries
// are exhausted.
func (d *Daemon) sweepDeadlines() {
	now := time.Now()
	for _, j := range d.jobs {
		if j.state != stateInFlight || now.Before(j.deadline) {
			continue
		}
		if j.attempt >= int(j.retries) {
			d.releaseJob(j)
			j.finish(probe.StatusTimeout, 0, 0, false)
			continue
		}
		if now.Before(d.sendGate) {
			continue // retry next wake, once the send gate clears
		}
		j.attempt++
		d.sendAttempt(j)
	}
}

// handlePacket classifies one inbound ICMP packet and, if it resolves
// an in-flight job, finishes that job.
func (d *Daemon) handlePacket(pkt rawPacket) {
	peer, ok := pkt.peer.(*net.IPAddr)
	if !ok {
		return
	}
	m := classify(pkt.data[:pkt.n], peer.IP)
	j := find(d.jobs, m)
	if j == nil {
		return
	}
	d.releaseJob(j)
	j.finish(probe.StatusNoError, m.addr, resultFor(j.typ, m, j.sentAt), m.lastHop)
}

// resultFor computes the reply's result field per its type-specific
// meaning: elapsed microseconds for echo/trace, the raw address
// mask for mask, the signed millisecond delta already computed for
// timestamp.
func resultFor(typ probe.Type, m matchResult, sentAt time.Time) uint32 {
	switch typ {
	case probe.TypeMask:
		return m.result
	case probe.TypeTimestamp:
		return m.result
	default:
		return uint32(time.Since(sentAt).Microseconds())
	}
}

// hasPending reports whether any job is still waiting for its first
// attempt, used by rearmTimer to know whether the send gate matters.
func (d *Daemon) hasPending() bool {
	for _, j := range d.jobs {
		if j.state == statePending {
			return true
		}
	}
	return false
}

func (d *Daemon) releaseJob(j *job) {
	if d.window != nil {
		d.window.release()
	}
	if j.typ == probe.TypeTrace && j.dport != 0 {
		d.pool.Release(j.dport)
	}
}

// drainDone writes and removes every job in the done state. If the
// write goroutine has died (a stalled client blew its write deadline),
// its error is returned instead of blocking forever on a reply channel
// nothing is reading.
func (d *Daemon) drainDone(replyCh chan<- wire.ReplyFrame, writeErrCh <-chan error) error {
	for tid, j := range d.jobs {
		if j.state != stateDone {
			continue
		}
		select {
		case replyCh <- j.replyFrame():
			delete(d.jobs, tid)
		case err := <-writeErrCh:
			return err
		}
	}
	return nil
}

// drainAll force-finishes every outstanding job. Used only on a fatal
// read error, where the daemon cannot trust its input stream enough to
// keep driving jobs to a real outcome; a clean stdin EOF instead lets
// outstanding jobs resolve through pumpWindow/sweepDeadlines/
// handlePacket as usual. A dead writer cuts the drain short; the
// daemon is exiting either way.
func (d *Daemon) drainAll(replyCh chan<- wire.ReplyFrame, writeErrCh <-chan error) {
	for _, j := range d.jobs {
		if j.state != stateDone {
			d.releaseJob(j)
			j.finish(probe.StatusGenError, 0, 0, false)
		}
	}
	d.drainDone(replyCh, writeErrCh)
}

// rearmTimer resets timer to fire at the earliest in-flight deadline,
// or far in the future if nothing is in flight.
func (d *Daemon) rearmTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	earliest := time.Now().Add(time.Hour)
	found := false
	for _, j := range d.jobs {
		if j.state == stateInFlight && (!found || j.deadline.Before(earliest)) {
			earliest = j.deadline
			found = true
		}
	}
	// Pending jobs only justify a wake-up when the window could actually
	// admit one; a full window is woken by a reply or deadline instead.
	if d.hasPending() && (d.window == nil || d.window.canAdmit()) && (!found || d.sendGate.Before(earliest)) {
		earliest = d.sendGate
		found = true
	}
	d.timerResetAndDelay(timer, earliest, found)
}

func (d *Daemon) timerResetAndDelay(timer *time.Timer, earliest time.Time, found bool) {
	if !found {
		timer.Reset(time.Hour)
		return
	}
	wait := time.Until(earliest)
	if wait < 0 {
		wait = 0
	}
	timer.Reset(wait)
}
