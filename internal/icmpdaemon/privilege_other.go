//go:build !linux && !darwin

package icmpdaemon

// dropPrivileges and limitCPU are unix-specific (setuid/setrlimit); on
// other platforms the daemon runs without either and relies on the host
// environment's own sandboxing.
func dropPrivileges() error { return nil }

func limitCPU() error { return nil }

func isEHostDown(err error) bool { return false }

func isRetryable(err error) bool { return false }
