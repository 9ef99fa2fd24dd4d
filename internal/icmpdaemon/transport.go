package icmpdaemon

import (
	"io"
	"time"

	"github.com/netvigil/tnmcore/internal/wire"
)

// readRequests decodes fixed-length request frames from r until EOF or
// a decode error, pushing each onto reqCh, then closes reqCh. It runs in
// its own goroutine so the daemon's main loop can select on stdin
// readiness instead of blocking on io.Read.
func readRequests(r io.Reader, reqCh chan<- wire.RequestFrame, errCh chan<- error) {
	defer close(reqCh)
	buf := make([]byte, wire.RequestFrameLen)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err != io.EOF {
				errCh <- err
			}
			return
		}
		f, err := wire.DecodeRequest(buf)
		if err != nil {
			errCh <- err
			return
		}
		reqCh <- f
	}
}

// writeTimeout bounds how long one reply write may stall on a client
// that has stopped reading before the daemon gives up on that client.
const writeTimeout = 5 * time.Second

// writeDeadliner is the slice of *os.File that writeReplies needs; the
// daemon's stdout is put into non-blocking mode at startup (see
// cmd/icmpd) so these deadlines actually take effect on the pipe.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// writeReplies drains replyCh and writes each frame to w under
// writeTimeout. A reader that has wedged entirely surfaces as a
// deadline error on errCh instead of blocking this goroutine forever,
// which would eventually fill replyCh and freeze the select loop for
// every other job.
func writeReplies(w io.Writer, replyCh <-chan wire.ReplyFrame, errCh chan<- error) {
	wd, _ := w.(writeDeadliner)
	for f := range replyCh {
		buf := wire.EncodeReply(f)
		if wd != nil {
			wd.SetWriteDeadline(time.Now().Add(writeTimeout))
		}
		if _, err := w.Write(buf); err != nil {
			errCh <- err
			return
		}
	}
}
