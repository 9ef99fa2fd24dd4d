package icmpclient

import (
	"bufio"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// ensureSpawned starts the helper if it isn't already running. Callers
// hold t.mu.
func (t *Transport) ensureSpawned() error {
	if t.cmd != nil {
		return nil
	}

	cmd := exec.Command(t.path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = bufio.NewReader(stdout)

	// This happens on GC if Close is never called explicitly, so it
	// may be delayed; it is a backstop, not the primary teardown path.
	runtime.SetFinalizer(t, func(t *Transport) { t.Close() })

	t.logger.Info("spawned icmp probe helper", zap.String("path", t.path), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// teardownLocked kills and reaps the helper after a pipe failure.
// Callers hold t.mu.
func (t *Transport) teardownLocked() {
	if t.cmd == nil {
		return
	}
	t.stdin.Close()
	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	t.cmd.Wait()
	t.cmd = nil
	t.stdin = nil
	t.stdout = nil
}

// Close terminates the helper process, if running. It is safe to call
// multiple times and safe to call even if the helper was never spawned.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.teardownLocked()
	return nil
}
