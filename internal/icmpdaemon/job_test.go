package icmpdaemon

import (
	"testing"

	"github.com/netvigil/tnmcore/internal/wire"
	"github.com/netvigil/tnmcore/pkg/probe"
)

func TestNewJobFromRequestFrame(t *testing.T) {
	f := wire.RequestFrame{
		Version: wire.ProtocolVersion,
		Type:    probe.TypeEcho,
		TID:     99,
		Dst:     0xC0000201, // 192.0.2.1
		Timeout: 5,
		Retries: 2,
		Delay:   10,
		Size:    64,
		Window:  4,
	}
	j := newJob(f)
	if j.state != statePending {
		t.Errorf("state = %v, want pending", j.state)
	}
	if j.dst != [4]byte{192, 0, 2, 1} {
		t.Errorf("dst = %v, want 192.0.2.1", j.dst)
	}
	if j.tid != 99 {
		t.Errorf("tid = %d, want 99", j.tid)
	}
	if j.size != 64 {
		t.Errorf("size = %d, want 64", j.size)
	}
}

func TestJobAttemptTimeoutSchedule(t *testing.T) {
	j := &job{timeout: 3, retries: 2} // 3s timeout, 2 retries => 3 attempts
	want := []int64{1000, 2000, 3000}
	for i, w := range want {
		j.attempt = i
		if got := j.attemptTimeout().Milliseconds(); got != w {
			t.Errorf("attempt %d timeout = %dms, want %dms", i, got, w)
		}
	}
}

func TestJobFinishAndReplyFrame(t *testing.T) {
	j := &job{tid: 5, typ: probe.TypeTrace}
	j.finish(probe.StatusNoError, 0xC0000205, 4200, true)

	f := j.replyFrame()
	if f.TID != 5 || f.Status != probe.StatusNoError || f.Result != 4200 {
		t.Errorf("unexpected reply frame: %+v", f)
	}
	if !wire.LastHop(f.Flags) {
		t.Error("expected LastHop flag set")
	}
}
