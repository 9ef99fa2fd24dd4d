package wire

import (
	"net"
	"testing"

	"github.com/netvigil/tnmcore/pkg/probe"
)

func TestRequestFrameRoundTrip(t *testing.T) {
	dst, err := IPToUint32(net.ParseIP("192.0.2.1"))
	if err != nil {
		t.Fatal(err)
	}
	want := RequestFrame{
		Version: ProtocolVersion,
		Type:    probe.TypeEcho,
		Status:  probe.StatusNoError,
		Flags:   0,
		TID:     42,
		Dst:     dst,
		TTL:     64,
		Timeout: 5,
		Retries: 2,
		Delay:   10,
		Size:    64,
		Window:  4,
	}

	buf := EncodeRequest(want)
	if len(buf) != RequestFrameLen {
		t.Fatalf("encoded length = %d, want %d", len(buf), RequestFrameLen)
	}

	got, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeRequestWrongLength(t *testing.T) {
	if _, err := DecodeRequest(make([]byte, RequestFrameLen-1)); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestReplyFrameRoundTrip(t *testing.T) {
	addr, _ := IPToUint32(net.ParseIP("198.51.100.7"))
	want := ReplyFrame{
		Version: ProtocolVersion,
		Type:    probe.TypeTrace,
		Status:  probe.StatusNoError,
		Flags:   SetLastHop(0, true),
		TID:     7,
		Addr:    addr,
		Result:  123456,
	}

	buf := EncodeReply(want)
	if len(buf) != ReplyFrameLen {
		t.Fatalf("encoded length = %d, want %d", len(buf), ReplyFrameLen)
	}

	got, err := DecodeReply(buf)
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if !LastHop(got.Flags) {
		t.Error("LastHop(got.Flags) = false, want true")
	}
}

func TestIPUint32RoundTrip(t *testing.T) {
	cases := []string{"127.0.0.1", "192.0.2.1", "255.255.255.255", "0.0.0.0"}
	for _, ipStr := range cases {
		ip := net.ParseIP(ipStr)
		v, err := IPToUint32(ip)
		if err != nil {
			t.Fatalf("IPToUint32(%s): %v", ipStr, err)
		}
		back := Uint32ToIP(v)
		if !back.Equal(ip) {
			t.Errorf("round trip %s -> %v -> %v", ipStr, v, back)
		}
	}
}

func TestIPToUint32RejectsIPv6(t *testing.T) {
	if _, err := IPToUint32(net.ParseIP("::1")); err == nil {
		t.Fatal("expected error for IPv6 address")
	}
}
