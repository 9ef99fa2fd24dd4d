package icmpdaemon

import (
	"context"
	"net"
)

// rawPacket is one datagram read off the raw ICMP socket, handed from
// readSocket to the daemon's main loop over pktCh.
type rawPacket struct {
	peer net.Addr
	data []byte
	n    int
}

// readSocket blocks in ReadFrom and forwards each packet to pktCh,
// giving the daemon's select loop a channel to wake on instead of
// calling ReadFrom directly. EINTR/EAGAIN are retried; any
// other error is reported once and the goroutine exits.
func (d *Daemon) readSocket(ctx context.Context, pktCh chan<- rawPacket, errCh chan<- error) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, peer, err := d.conn.ReadFrom(buf)
		if err != nil {
			if isRetryable(err) {
				continue
			}
			errCh <- err
			return
		}

		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case pktCh <- rawPacket{peer: peer, data: cp, n: n}:
		case <-ctx.Done():
			return
		}
	}
}
