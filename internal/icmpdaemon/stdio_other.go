//go:build !linux && !darwin

package icmpdaemon

import "os"

// Non-blocking stdout is unix-specific; elsewhere the daemon writes to
// the inherited stdout as-is and relies on the client reading promptly.
func nonblockingStdout() (*os.File, error) {
	return os.Stdout, nil
}
