package wire

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Traceroute UDP destination ports are drawn from this range.
const (
	TracePortBase  = 50000
	TracePortCount = 10000 // [50000, 60000)
)

// swap16 byte-swaps a 16-bit port, modeling the legacy host/network
// byte-order bug some responders exhibit (Design Note 6).
func swap16(p uint16) uint16 {
	return (p << 8) | (p >> 8)
}

// PortPool hands out UDP destination ports for traceroute probes from the
// fixed [50000, 60000) range, skipping any port whose canonical value or
// byte-swapped alias collides with one already claimed. A bitset keyed on
// canonical port, checked against both the candidate and its swap, is
// required: a hashmap keyed on canonical form alone would miss the alias
// (Design Note 6).
type PortPool struct {
	mu     sync.Mutex
	inUse  [TracePortCount]bool
	cursor int
}

// NewPortPool creates an empty traceroute port pool.
func NewPortPool() *PortPool {
	return &PortPool{}
}

// index converts a port to its slot in the bitset, or -1 if out of range.
func index(port uint16) int {
	if int(port) < TracePortBase || int(port) >= TracePortBase+TracePortCount {
		return -1
	}
	return int(port) - TracePortBase
}

// collides reports whether claiming candidate would collide with any
// currently-claimed port, considering both the canonical and byte-swapped
// forms of every live port (the four-way alias check).
func (p *PortPool) collides(candidate uint16) bool {
	if i := index(candidate); i >= 0 && p.inUse[i] {
		return true
	}
	if i := index(swap16(candidate)); i >= 0 && p.inUse[i] {
		return true
	}
	return false
}

// Claim allocates the next free port, round-robin from the last claimed
// position, skipping collisions (including byte-swapped aliases). Returns
// an error if the pool is exhausted.
func (p *PortPool) Claim() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for attempts := 0; attempts < TracePortCount; attempts++ {
		candidate := uint16(TracePortBase + p.cursor)
		p.cursor = (p.cursor + 1) % TracePortCount
		if !p.collides(candidate) {
			p.inUse[index(candidate)] = true
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("wire: traceroute port pool exhausted")
}

// Release returns a previously-claimed port to the pool.
func (p *PortPool) Release(port uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := index(port); i >= 0 {
		p.inUse[i] = false
	}
}

// PortsMatch reports whether (gotSport, gotDport) identifies the same
// traceroute probe as (wantSport, wantDport), accepting any of the four
// combinations: identity, swapped source, swapped destination, or
// both swapped.
func PortsMatch(wantSport, wantDport, gotSport, gotDport uint16) bool {
	combos := [4][2]uint16{
		{wantSport, wantDport},
		{swap16(wantSport), wantDport},
		{wantSport, swap16(wantDport)},
		{swap16(wantSport), swap16(wantDport)},
	}
	for _, c := range combos {
		if c[0] == gotSport && c[1] == gotDport {
			return true
		}
	}
	return false
}

// BuildUDPTraceProbe constructs a UDP datagram payload (the portion after
// the IP header) for a traceroute probe: an 8-byte UDP header with the
// given source/destination ports and a fixed small payload, then the UDP
// checksum over a pseudo-header + payload. IPv4 UDP checksums are
// optional (may be zero); the payload is kept non-zero to avoid
// ambiguity on receivers that do validate it.
func BuildUDPTraceProbe(srcIP, dstIP [4]byte, sport, dport uint16, payloadLen int) []byte {
	if payloadLen < 1 {
		payloadLen = 1
	}
	udpLen := 8 + payloadLen
	buf := make([]byte, udpLen)
	binary.BigEndian.PutUint16(buf[0:2], sport)
	binary.BigEndian.PutUint16(buf[2:4], dport)
	binary.BigEndian.PutUint16(buf[4:6], uint16(udpLen))
	// buf[6:8] checksum, computed below.
	copy(buf[8:], TraceProbePayload(payloadLen))

	pseudo := make([]byte, 12+udpLen)
	copy(pseudo[0:4], srcIP[:])
	copy(pseudo[4:8], dstIP[:])
	pseudo[8] = 0
	pseudo[9] = 17 // UDP protocol number
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(udpLen))
	copy(pseudo[12:], buf)
	binary.BigEndian.PutUint16(buf[6:8], Checksum(pseudo))
	return buf
}

// TraceProbePayload returns the fixed filler bytes a trace probe
// carries. Both send paths (socket-API TTL and hand-built IP header)
// use it so they put identical bytes on the wire.
func TraceProbePayload(n int) []byte {
	if n < 1 {
		n = 1
	}
	p := make([]byte, n)
	for i := range p {
		p[i] = 'x'
	}
	return p
}

// BuildIPv4Header constructs a minimal 20-byte IPv4 header for platforms
// where the socket API does not expose per-packet TTL control (Design
// Note 3: "the original constructs IP headers manually on some
// platforms"). id is the IP identification field; ttl is the hop count;
// totalLen is the full datagram length including this header.
func BuildIPv4Header(srcIP, dstIP [4]byte, id uint16, ttl uint8, totalLen uint16) []byte {
	buf := make([]byte, 20)
	buf[0] = 0x45 // version 4, IHL 5 (no options)
	buf[1] = 0    // DSCP/ECN
	binary.BigEndian.PutUint16(buf[2:4], totalLen)
	binary.BigEndian.PutUint16(buf[4:6], id)
	binary.BigEndian.PutUint16(buf[6:8], 0) // flags/fragment offset
	buf[8] = ttl
	buf[9] = 17 // protocol UDP
	// buf[10:12] checksum, computed below.
	copy(buf[12:16], srcIP[:])
	copy(buf[16:20], dstIP[:])
	binary.BigEndian.PutUint16(buf[10:12], Checksum(buf))
	return buf
}

// ParseEmbeddedUDPHeader extracts the UDP source/destination ports from
// the IP+UDP header embedded in an ICMP Time-Exceeded or
// Destination-Unreachable error body. The body begins with the original
// IP header (IHL in the low 4 bits of the first byte) followed by at
// least the first 8 bytes of the original UDP header.
func ParseEmbeddedUDPHeader(body []byte) (sport, dport uint16, err error) {
	if len(body) < 1 {
		return 0, 0, fmt.Errorf("wire: empty embedded header")
	}
	ihl := int(body[0]&0x0f) * 4
	if ihl < 20 {
		return 0, 0, fmt.Errorf("wire: embedded IP header length %d too small", ihl)
	}
	if len(body) < ihl+8 {
		return 0, 0, fmt.Errorf("wire: embedded header too short (%d bytes, need %d)", len(body), ihl+8)
	}
	udp := body[ihl:]
	return binary.BigEndian.Uint16(udp[0:2]), binary.BigEndian.Uint16(udp[2:4]), nil
}
