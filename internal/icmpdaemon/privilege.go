package icmpdaemon

import "os"

// DropPrivileges releases root once the raw socket is open. Callers
// (normally cmd/icmpd) invoke this immediately after New succeeds.
func DropPrivileges() error {
	return dropPrivileges()
}

// LimitCPU installs the daemon's RLIMIT_CPU ceiling, a kill switch for
// a malfunctioning retry loop.
func LimitCPU() error {
	return limitCPU()
}

// NonblockingStdout returns the process's stdout reopened in
// non-blocking mode, so the reply stream's write deadlines take effect
// and a stalled client cannot wedge the daemon.
func NonblockingStdout() (*os.File, error) {
	return nonblockingStdout()
}
