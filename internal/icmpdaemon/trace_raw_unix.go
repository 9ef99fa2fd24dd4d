//go:build linux || darwin

package icmpdaemon

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/netvigil/tnmcore/internal/wire"
)

// rawTraceSender transmits trace probes with a hand-built IP header over
// an IP_HDRINCL raw socket, for platforms whose socket API does not
// honor per-socket TTL. The socket is opened at daemon startup, before
// privileges are dropped.
type rawTraceSender struct {
	fd   int
	ipID uint16
}

func openRawTraceSender() (*rawTraceSender, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		return nil, fmt.Errorf("icmpdaemon: open raw trace socket: %w", err)
	}
	return &rawTraceSender{fd: fd}, nil
}

func (r *rawTraceSender) close() error {
	return unix.Close(r.fd)
}

func (r *rawTraceSender) send(j *job) error {
	src, err := localIPFor(j.dst)
	if err != nil {
		return err
	}
	udp := wire.BuildUDPTraceProbe(src, j.dst, j.sport, j.dport, tracePayloadLen)
	r.ipID++
	hdr := wire.BuildIPv4Header(src, j.dst, r.ipID, j.ttl, uint16(20+len(udp)))
	pkt := append(hdr, udp...)

	sa := &unix.SockaddrInet4{}
	copy(sa.Addr[:], j.dst[:])
	return unix.Sendto(r.fd, pkt, 0, sa)
}

// localIPFor learns the source address the kernel routes toward dst by
// dialing a throwaway UDP socket at it; no packet is sent.
func localIPFor(dst [4]byte) ([4]byte, error) {
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IP(dst[:]), Port: 9})
	if err != nil {
		return [4]byte{}, fmt.Errorf("icmpdaemon: pick trace source address: %w", err)
	}
	defer conn.Close()
	var out [4]byte
	copy(out[:], conn.LocalAddr().(*net.UDPAddr).IP.To4())
	return out, nil
}
