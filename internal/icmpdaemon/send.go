package icmpdaemon

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/netvigil/tnmcore/internal/wire"
	"github.com/netvigil/tnmcore/pkg/probe"
)

// sender owns the sockets used to transmit probes: the raw ICMP socket
// shared by every echo/mask/timestamp job and trace's ICMP-error
// listener, plus a UDP socket opened per trace job for the TTL-limited
// datagram itself. Whether the socket API honors per-socket TTL is
// probed once at construction; platforms where it does not get trace
// probes with a hand-built IP header instead, via rawTrace. Both paths
// put identical bytes on the wire.
type sender struct {
	icmpConn *icmp.PacketConn
	ipv4Conn *ipv4.PacketConn
	rawTrace *rawTraceSender // non-nil only when SetTTL is unavailable
}

func newSender(conn *icmp.PacketConn) *sender {
	s := &sender{icmpConn: conn, ipv4Conn: conn.IPv4PacketConn()}
	if !canSetTTL() {
		if rt, err := openRawTraceSender(); err == nil {
			s.rawTrace = rt
		}
	}
	return s
}

// canSetTTL probes whether this platform's socket API honors per-socket
// TTL control. Run once, before privileges are dropped, so the raw
// fallback socket can still be opened if needed.
func canSetTTL() bool {
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9})
	if err != nil {
		return true
	}
	defer conn.Close()
	return ipv4.NewConn(conn).SetTTL(1) == nil
}

// sendEcho, sendMask and sendTimestamp each build and transmit one
// ICMP probe for the job's current attempt over the shared raw socket.
func (s *sender) sendEcho(j *job) error {
	msg, err := wire.BuildEcho(int(j.icmpID), j.attempt, int(j.size), time.Now())
	if err != nil {
		return err
	}
	return s.writeTo(msg, j.dst, j.ttl)
}

func (s *sender) sendMask(j *job) error {
	msg, err := wire.BuildAddressMaskRequest(int(j.icmpID), j.attempt)
	if err != nil {
		return err
	}
	return s.writeTo(msg, j.dst, j.ttl)
}

func (s *sender) sendTimestamp(j *job) error {
	msg, err := wire.BuildTimestampRequest(int(j.icmpID), j.attempt, time.Now())
	if err != nil {
		return err
	}
	return s.writeTo(msg, j.dst, j.ttl)
}

// defaultTTL is used whenever a job's request frame left ttl at zero,
// which is the common case for plain echo/mask/timestamp probes (only
// traceroute jobs set ttl deliberately).
const defaultTTL = 64

func (s *sender) writeTo(msg []byte, dst [4]byte, ttl uint8) error {
	effective := int(ttl)
	if effective == 0 {
		effective = defaultTTL
	}
	if err := s.ipv4Conn.SetTTL(effective); err != nil {
		return fmt.Errorf("icmpdaemon: set ttl: %w", err)
	}
	_, err := s.icmpConn.WriteTo(msg, &net.IPAddr{IP: net.IP(dst[:])})
	return err
}

// tracePayloadLen is the filler length of every trace probe datagram.
const tracePayloadLen = 12

// sendTrace transmits a TTL-limited UDP datagram toward the job's
// destination on a freshly opened UDP socket bound to the job's claimed
// source port, then closes that socket immediately: the daemon only
// needs it to originate the packet with the right (sport, ttl), since
// the ICMP error comes back on the shared raw socket. On platforms
// where the socket API cannot set TTL, the datagram is built with a
// hand-constructed IP header instead.
func (s *sender) sendTrace(j *job) error {
	if s.rawTrace != nil {
		return s.rawTrace.send(j)
	}

	laddr := &net.UDPAddr{Port: int(j.sport)}
	raddr := &net.UDPAddr{IP: net.IP(j.dst[:]), Port: int(j.dport)}

	conn, err := net.DialUDP("udp4", laddr, raddr)
	if err != nil {
		return fmt.Errorf("icmpdaemon: dial trace probe: %w", err)
	}
	defer conn.Close()

	pc := ipv4.NewConn(conn)
	if err := pc.SetTTL(int(j.ttl)); err != nil {
		return fmt.Errorf("icmpdaemon: set trace ttl: %w", err)
	}

	_, err = conn.Write(wire.TraceProbePayload(tracePayloadLen))
	return err
}

// assignProbeIdentity fills in the fields the wire frame does not carry:
// the ICMP identifier for echo/mask/timestamp jobs, or the source/
// destination port pair for trace jobs. For trace jobs the source port
// encodes the request's identity (the same sequential counter used as
// the ICMP identifier for the other probe types), while the destination
// port is claimed from the dedicated pool so replies can be told apart
// without relying on the identity counter alone.
func assignProbeIdentity(j *job, idCounter *uint16, pool *wire.PortPool) error {
	switch j.typ {
	case probe.TypeTrace:
		dport, err := pool.Claim()
		if err != nil {
			return err
		}
		*idCounter++
		j.sport = *idCounter
		j.dport = dport
	default:
		*idCounter++
		j.icmpID = *idCounter
	}
	return nil
}

func (s *sender) send(j *job) error {
	switch j.typ {
	case probe.TypeEcho:
		return s.sendEcho(j)
	case probe.TypeMask:
		return s.sendMask(j)
	case probe.TypeTimestamp:
		return s.sendTimestamp(j)
	case probe.TypeTrace:
		return s.sendTrace(j)
	default:
		return fmt.Errorf("icmpdaemon: unknown probe type %d", j.typ)
	}
}
