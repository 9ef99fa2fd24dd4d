package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// EnvelopeHeaderLen is the fixed 12-byte header the trap sink daemon
// prepends to every forwarded datagram.
const EnvelopeHeaderLen = 12

// EnvelopeVersion is the only envelope version this codec emits.
const EnvelopeVersion = 0

// Envelope is the header a trap-sink subscriber reads before the raw
// datagram body.
type Envelope struct {
	Version uint8
	SrcPort uint16
	SrcAddr uint32 // network-order IPv4, host-endian uint32 in memory
	Length  uint32
}

// EncodeEnvelope marshals the 12-byte envelope header. The reserved byte
// is always zero.
func EncodeEnvelope(e Envelope) []byte {
	buf := make([]byte, EnvelopeHeaderLen)
	buf[0] = e.Version
	buf[1] = 0 // reserved
	binary.BigEndian.PutUint16(buf[2:4], e.SrcPort)
	binary.BigEndian.PutUint32(buf[4:8], e.SrcAddr)
	binary.BigEndian.PutUint32(buf[8:12], e.Length)
	return buf
}

// DecodeEnvelope unmarshals a 12-byte envelope header.
func DecodeEnvelope(buf []byte) (Envelope, error) {
	if len(buf) != EnvelopeHeaderLen {
		return Envelope{}, fmt.Errorf("wire: envelope header is %d bytes, want %d", len(buf), EnvelopeHeaderLen)
	}
	return Envelope{
		Version: buf[0],
		SrcPort: binary.BigEndian.Uint16(buf[2:4]),
		SrcAddr: binary.BigEndian.Uint32(buf[4:8]),
		Length:  binary.BigEndian.Uint32(buf[8:12]),
	}, nil
}

// EnvelopeFor builds the Envelope header describing a datagram received
// from src with the given body, ready to be written immediately before
// the body bytes.
func EnvelopeFor(src *net.UDPAddr, bodyLen int) (Envelope, error) {
	addr, err := IPToUint32(src.IP)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Version: EnvelopeVersion,
		SrcPort: uint16(src.Port),
		SrcAddr: addr,
		Length:  uint32(bodyLen),
	}, nil
}
