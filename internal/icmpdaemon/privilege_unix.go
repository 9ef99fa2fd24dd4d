//go:build linux || darwin

package icmpdaemon

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// cpuRlimitSeconds bounds the daemon's CPU time: a malfunctioning retry
// loop burns CPU, not wall clock, so an RLIMIT_CPU kill switch is cheaper
// to reason about than a wall-clock watchdog.
const cpuRlimitSeconds = 10

// dropPrivileges releases root once the raw socket is open: the daemon
// drops root privileges right after opening its raw socket.
// setuid(getuid()) is the traditional idiom for "become whoever invoked
// us"; it is a no-op, not an error, when already unprivileged.
func dropPrivileges() error {
	uid := unix.Getuid()
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("icmpdaemon: drop privileges: %w", err)
	}
	return nil
}

// limitCPU installs the daemon's RLIMIT_CPU ceiling.
func limitCPU() error {
	limit := &unix.Rlimit{Cur: cpuRlimitSeconds, Max: cpuRlimitSeconds}
	if err := unix.Setrlimit(unix.RLIMIT_CPU, limit); err != nil {
		return fmt.Errorf("icmpdaemon: set cpu rlimit: %w", err)
	}
	return nil
}

// isEHostDown reports whether err is EHOSTDOWN, the one send failure
// treated as retryable rather than terminal.
func isEHostDown(err error) bool {
	return errors.Is(err, unix.EHOSTDOWN)
}

// isRetryable reports whether a raw-socket read error is the kind of
// transient interruption (EINTR/EAGAIN) that should simply be retried.
func isRetryable(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)
}
