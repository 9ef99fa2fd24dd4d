package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ICMP types used by the probe daemon. golang.org/x/net/ipv4 already
// defines the echo/echo-reply/time-exceeded/dst-unreachable constants;
// mask and timestamp requests are not in that package, so they're named
// here.
const (
	ICMPTypeAddressMaskRequest = 17
	ICMPTypeAddressMaskReply   = 18
	ICMPTypeTimestampRequest   = 13
	ICMPTypeTimestampReply     = 14
)

// BuildEcho constructs an ICMP Echo Request (type 8) whose payload begins
// with an 8-byte send timestamp (microseconds since the Unix epoch)
// followed by zero padding, so that the whole ICMP message (8-byte echo
// header plus payload) is size bytes; the payload is never shorter than
// the 8-byte timestamp.
func BuildEcho(id, seq int, size int, sentAt time.Time) ([]byte, error) {
	data := echoPayload(sentAt, size)
	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: data},
	}
	return msg.Marshal(nil)
}

func echoPayload(sentAt time.Time, size int) []byte {
	payloadLen := size - 8 // 8-byte ICMP echo header
	if payloadLen < 8 {
		payloadLen = 8
	}
	data := make([]byte, payloadLen)
	binary.BigEndian.PutUint64(data[:8], uint64(sentAt.UnixMicro()))
	return data
}

// BuildAddressMaskRequest constructs an ICMP Address Mask Request (type 17).
func BuildAddressMaskRequest(id, seq int) ([]byte, error) {
	body := make([]byte, 8)
	binary.BigEndian.PutUint16(body[0:2], uint16(id))
	binary.BigEndian.PutUint16(body[2:4], uint16(seq))
	// mask field (body[4:8]) is zero on a request.
	return assembleRaw(ICMPTypeAddressMaskRequest, 0, body)
}

// BuildTimestampRequest constructs an ICMP Timestamp Request (type 13).
// The originate timestamp is milliseconds-since-midnight-UTC.
func BuildTimestampRequest(id, seq int, at time.Time) ([]byte, error) {
	body := make([]byte, 16)
	binary.BigEndian.PutUint16(body[0:2], uint16(id))
	binary.BigEndian.PutUint16(body[2:4], uint16(seq))
	binary.BigEndian.PutUint32(body[4:8], MillisOfDay(at))
	// receive (body[8:12]) and transmit (body[12:16]) timestamps are zero on a request.
	return assembleRaw(ICMPTypeTimestampRequest, 0, body)
}

// MillisOfDay computes (tv_sec mod 86400) * 1000 + tv_usec/1000 for t, in
// UTC, matching the ICMP timestamp wire format.
func MillisOfDay(t time.Time) uint32 {
	u := t.UTC()
	secOfDay := (u.Hour()*3600 + u.Minute()*60 + u.Second())
	return uint32(secOfDay)*1000 + uint32(u.Nanosecond()/1_000_000)
}

// assembleRaw builds a raw ICMP message (type, code, body) and patches in
// the correct checksum, for message kinds golang.org/x/net/icmp doesn't
// model as typed bodies (mask and timestamp requests).
func assembleRaw(typ, code uint8, body []byte) ([]byte, error) {
	buf := make([]byte, 4+len(body))
	buf[0] = typ
	buf[1] = code
	// buf[2:4] checksum, filled below.
	copy(buf[4:], body)
	binary.BigEndian.PutUint16(buf[2:4], Checksum(buf))
	return buf, nil
}

// Checksum computes the ICMP checksum (RFC 1071): the one's-complement sum
// over 16-bit words of the whole message, with an odd trailing byte padded
// with zero, folded to 16 bits and complemented. The checksum field itself
// must be zero in buf when this is called.
func Checksum(buf []byte) uint16 {
	var sum uint32
	n := len(buf)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(buf[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(buf[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// VerifyChecksum recomputes the checksum of a received ICMP message and
// reports whether it is valid (i.e. the stored checksum makes the overall
// one's-complement sum fold to zero). A received reply's checksum, when
// recomputed, should always fold to zero.
func VerifyChecksum(buf []byte) bool {
	var sum uint32
	n := len(buf)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(buf[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(buf[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return sum == 0xffff
}

// TimestampReplyDelta extracts the signed millisecond clock delta from a
// Timestamp Reply body: receive_ts - originate_ts, taken from the reply's
// timestamp triple. The subtraction is done in 32-bit signed space so a
// reply straddling midnight wraps instead of exploding.
func TimestampReplyDelta(body []byte) (int32, error) {
	if len(body) < 16 {
		return 0, fmt.Errorf("wire: timestamp reply body too short (%d bytes)", len(body))
	}
	originate := binary.BigEndian.Uint32(body[4:8])
	receive := binary.BigEndian.Uint32(body[8:12])
	return int32(receive) - int32(originate), nil
}

// IdentifierAndSequence extracts the 16-bit ID and Sequence fields from a
// raw echo/mask/timestamp reply body (they share the same first 4 bytes).
func IdentifierAndSequence(body []byte) (id, seq uint16, err error) {
	if len(body) < 4 {
		return 0, 0, fmt.Errorf("wire: reply body too short (%d bytes) for id/seq", len(body))
	}
	return binary.BigEndian.Uint16(body[0:2]), binary.BigEndian.Uint16(body[2:4]), nil
}

// AddressMaskFromReply extracts the 32-bit mask field from an Address Mask
// Reply body.
func AddressMaskFromReply(body []byte) (uint32, error) {
	if len(body) < 8 {
		return 0, fmt.Errorf("wire: address mask reply body too short (%d bytes)", len(body))
	}
	return binary.BigEndian.Uint32(body[4:8]), nil
}
