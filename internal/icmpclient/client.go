// Package icmpclient exposes a synchronous "probe this batch of
// targets" call to callers that must not themselves hold the raw-socket
// privilege the ICMP probe daemon requires. It spawns and owns a single
// long-lived helper process and speaks the fixed-length frame protocol
// in internal/wire over its stdin/stdout pipes.
package icmpclient

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/wire"
	"github.com/netvigil/tnmcore/pkg/probe"
)

// HelperPathEnv names the environment variable that overrides the
// compiled-in default path to the icmpd helper binary.
const HelperPathEnv = "TNMCORE_ICMPD_PATH"

// DefaultHelperPath is used when HelperPathEnv is unset.
const DefaultHelperPath = "/usr/libexec/tnmcore/icmpd"

// Transport owns the helper process and its pipes. It is safe for
// concurrent use; calls are serialized so that replies are never
// attributed to the wrong caller's batch.
type Transport struct {
	logger *zap.Logger
	path   string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	nextID uint32
}

// New returns a Transport that lazily spawns its helper on first Probe
// call. Callers normally construct one Transport per process and reuse
// it for the process lifetime.
func New(logger *zap.Logger) *Transport {
	path := os.Getenv(HelperPathEnv)
	if path == "" {
		path = DefaultHelperPath
	}
	return &Transport{logger: logger, path: path}
}

// Probe validates req's targets, drives one round-trip through the
// helper, and fills in each Target's Res, Value, Status and LastHop
// flag in place. It returns a call-level error if the helper pipe
// fails or any target comes back generror.
func (t *Transport) Probe(req *probe.Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("icmpclient: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureSpawned(); err != nil {
		return err
	}

	tids := make([]uint32, len(req.Targets))
	for i, tgt := range req.Targets {
		tids[i] = t.nextTID()
		if err := t.sendTarget(req, tgt, tids[i]); err != nil {
			t.teardownLocked()
			return fmt.Errorf("icmpclient: write request: %w", err)
		}
	}

	byTID := make(map[uint32]int, len(tids))
	for i, id := range tids {
		byTID[id] = i
	}

	var callErr error
	for range req.Targets {
		reply, err := t.readReply()
		if err != nil {
			t.teardownLocked()
			return fmt.Errorf("icmpclient: read reply: %w", err)
		}
		idx, ok := byTID[reply.TID]
		if !ok {
			continue
		}
		applyReply(&req.Targets[idx], reply)
		if reply.Status == probe.StatusGenError && callErr == nil {
			callErr = fmt.Errorf("icmpclient: target %s: generror", req.Targets[idx].Dst)
		}
	}

	return callErr
}

func (t *Transport) nextTID() uint32 {
	t.nextID++
	return t.nextID
}

func (t *Transport) sendTarget(req *probe.Request, tgt probe.Target, tid uint32) error {
	dst, err := wire.IPToUint32(tgt.Dst)
	if err != nil {
		return err
	}
	f := wire.RequestFrame{
		Version: wire.ProtocolVersion,
		Type:    req.Type,
		TID:     tid,
		Dst:     dst,
		TTL:     req.TTL,
		Timeout: req.Timeout,
		Retries: req.Retries,
		Delay:   req.Delay,
		Size:    req.Size,
		Window:  req.Window,
	}
	_, err = t.stdin.Write(wire.EncodeRequest(f))
	return err
}

func (t *Transport) readReply() (wire.ReplyFrame, error) {
	buf := make([]byte, wire.ReplyFrameLen)
	if _, err := io.ReadFull(t.stdout, buf); err != nil {
		return wire.ReplyFrame{}, err
	}
	return wire.DecodeReply(buf)
}

// applyReply copies a decoded reply frame's fields into the caller-owned
// target row, applying the type-specific result-decoding rules.
func applyReply(tgt *probe.Target, f wire.ReplyFrame) {
	tgt.TID = f.TID
	tgt.Res = wire.Uint32ToIP(f.Addr)
	tgt.Status = f.Status
	tgt.Flags = probe.Flags{LastHop: wire.LastHop(f.Flags)}

	switch f.Type {
	case probe.TypeTimestamp:
		tgt.Value = int64(int32(f.Result))
	default:
		tgt.Value = int64(f.Result)
	}
}
