//go:build linux || darwin

package icmpdaemon

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// nonblockingStdout puts fd 1 into non-blocking mode and re-wraps it so
// the file registers with the runtime poller and write deadlines work
// on the reply pipe. A client that stops reading then surfaces as a
// deadline error instead of wedging the daemon's write goroutine.
func nonblockingStdout() (*os.File, error) {
	if err := unix.SetNonblock(1, true); err != nil {
		return nil, fmt.Errorf("icmpdaemon: set stdout non-blocking: %w", err)
	}
	return os.NewFile(1, "stdout"), nil
}
