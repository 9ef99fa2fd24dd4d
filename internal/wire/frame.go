// Package wire implements the binary codecs shared by the ICMP probe
// daemon and its client transport: the fixed-length request/reply frames
// that cross the daemon's stdin/stdout pipe, the ICMP and UDP-traceroute
// packets that cross the wire to the network, and the trap envelope that
// crosses the wire to a trap-sink subscriber.
//
// Every codec here is pure: no I/O, no sockets, just byte slices in and
// structured values out (or vice versa). That keeps it testable without a
// network and reusable from both the daemon process and the client.
package wire

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/netvigil/tnmcore/pkg/probe"
)

// ProtocolVersion is the only version this codec understands.
const ProtocolVersion = 0

// RequestFrameLen and ReplyFrameLen are the fixed record sizes.
const (
	RequestFrameLen = 20
	ReplyFrameLen   = 16
)

// flagLastHop is bit 0 of the Flags byte.
const flagLastHop = 1 << 0

// RequestFrame is the 20-byte record the client transport writes to the
// daemon's stdin, one per target.
type RequestFrame struct {
	Version uint8
	Type    probe.Type
	Status  probe.Status
	Flags   uint8
	TID     uint32
	Dst     uint32 // network-order IPv4, host-endian uint32 in memory
	TTL     uint8
	Timeout uint8
	Retries uint8
	Delay   uint8
	Size    uint16
	Window  uint16
}

// ReplyFrame is the 16-byte record the daemon writes to stdout, one per
// completed job: version+type+status+flags+tid+addr+result. size and
// window are request-side policy, not reply state, and are not echoed
// back.
type ReplyFrame struct {
	Version uint8
	Type    probe.Type
	Status  probe.Status
	Flags   uint8
	TID     uint32
	Addr    uint32
	Result  uint32
}

// IPToUint32 converts a 4-byte IPv4 address to a host-order uint32 holding
// the address in the same bit order it would appear on the wire (i.e. the
// first octet is the most significant byte).
func IPToUint32(ip net.IP) (uint32, error) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("wire: %v is not an IPv4 address", ip)
	}
	return binary.BigEndian.Uint32(v4), nil
}

// Uint32ToIP is the inverse of IPToUint32.
func Uint32ToIP(v uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, v)
	return ip
}

// EncodeRequest marshals a RequestFrame into its 20-byte wire form.
func EncodeRequest(f RequestFrame) []byte {
	buf := make([]byte, RequestFrameLen)
	buf[0] = f.Version
	buf[1] = uint8(f.Type)
	buf[2] = uint8(f.Status)
	buf[3] = f.Flags
	binary.BigEndian.PutUint32(buf[4:8], f.TID)
	binary.BigEndian.PutUint32(buf[8:12], f.Dst)
	buf[12] = f.TTL
	buf[13] = f.Timeout
	buf[14] = f.Retries
	buf[15] = f.Delay
	binary.BigEndian.PutUint16(buf[16:18], f.Size)
	binary.BigEndian.PutUint16(buf[18:20], f.Window)
	return buf
}

// DecodeRequest unmarshals a 20-byte wire record into a RequestFrame.
func DecodeRequest(buf []byte) (RequestFrame, error) {
	if len(buf) != RequestFrameLen {
		return RequestFrame{}, fmt.Errorf("wire: request frame is %d bytes, want %d", len(buf), RequestFrameLen)
	}
	return RequestFrame{
		Version: buf[0],
		Type:    probe.Type(buf[1]),
		Status:  probe.Status(buf[2]),
		Flags:   buf[3],
		TID:     binary.BigEndian.Uint32(buf[4:8]),
		Dst:     binary.BigEndian.Uint32(buf[8:12]),
		TTL:     buf[12],
		Timeout: buf[13],
		Retries: buf[14],
		Delay:   buf[15],
		Size:    binary.BigEndian.Uint16(buf[16:18]),
		Window:  binary.BigEndian.Uint16(buf[18:20]),
	}, nil
}

// EncodeReply marshals a ReplyFrame into its 16-byte wire form.
func EncodeReply(f ReplyFrame) []byte {
	buf := make([]byte, ReplyFrameLen)
	buf[0] = f.Version
	buf[1] = uint8(f.Type)
	buf[2] = uint8(f.Status)
	buf[3] = f.Flags
	binary.BigEndian.PutUint32(buf[4:8], f.TID)
	binary.BigEndian.PutUint32(buf[8:12], f.Addr)
	binary.BigEndian.PutUint32(buf[12:16], f.Result)
	return buf
}

// DecodeReply unmarshals a 16-byte wire record into a ReplyFrame.
func DecodeReply(buf []byte) (ReplyFrame, error) {
	if len(buf) != ReplyFrameLen {
		return ReplyFrame{}, fmt.Errorf("wire: reply frame is %d bytes, want %d", len(buf), ReplyFrameLen)
	}
	return ReplyFrame{
		Version: buf[0],
		Type:    probe.Type(buf[1]),
		Status:  probe.Status(buf[2]),
		Flags:   buf[3],
		TID:     binary.BigEndian.Uint32(buf[4:8]),
		Addr:    binary.BigEndian.Uint32(buf[8:12]),
		Result:  binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

// SetLastHop and LastHop encode/decode the lasthop flag bit.
func SetLastHop(flags uint8, v bool) uint8 {
	if v {
		return flags | flagLastHop
	}
	return flags &^ flagLastHop
}

func LastHop(flags uint8) bool {
	return flags&flagLastHop != 0
}
