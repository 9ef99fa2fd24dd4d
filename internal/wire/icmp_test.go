package wire

import (
	"testing"
	"time"
)

func TestChecksumRoundTrip(t *testing.T) {
	msg, err := BuildEcho(0x1234, 1, 64, time.Now())
	if err != nil {
		t.Fatalf("BuildEcho: %v", err)
	}
	if !VerifyChecksum(msg) {
		t.Fatal("VerifyChecksum(freshly built echo) = false, want true")
	}
	// Corrupting a payload byte must break the checksum.
	msg[len(msg)-1] ^= 0xff
	if VerifyChecksum(msg) {
		t.Fatal("VerifyChecksum(corrupted echo) = true, want false")
	}
}

func TestChecksumOddLengthFoldsToZero(t *testing.T) {
	buf := []byte{0, 0, 0x01, 0x02, 0x03} // checksum field + odd-length body
	cs := Checksum(buf)
	buf[0], buf[1] = byte(cs>>8), byte(cs)
	if !VerifyChecksum(buf) {
		t.Fatal("checksum over odd-length buffer did not fold to zero")
	}
}

func TestBuildAddressMaskRequest(t *testing.T) {
	msg, err := BuildAddressMaskRequest(7, 1)
	if err != nil {
		t.Fatalf("BuildAddressMaskRequest: %v", err)
	}
	if msg[0] != ICMPTypeAddressMaskRequest {
		t.Errorf("type = %d, want %d", msg[0], ICMPTypeAddressMaskRequest)
	}
	if !VerifyChecksum(msg) {
		t.Fatal("address mask request checksum invalid")
	}
	id, seq, err := IdentifierAndSequence(msg[4:])
	if err != nil {
		t.Fatal(err)
	}
	if id != 7 || seq != 1 {
		t.Errorf("id/seq = %d/%d, want 7/1", id, seq)
	}
}

func TestBuildTimestampRequest(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 500_000_000, time.UTC)
	msg, err := BuildTimestampRequest(9, 2, at)
	if err != nil {
		t.Fatalf("BuildTimestampRequest: %v", err)
	}
	if msg[0] != ICMPTypeTimestampRequest {
		t.Errorf("type = %d, want %d", msg[0], ICMPTypeTimestampRequest)
	}
	if !VerifyChecksum(msg) {
		t.Fatal("timestamp request checksum invalid")
	}
	wantMillis := uint32(12*3600+0*60+0)*1000 + 500
	gotMillis := MillisOfDay(at)
	if gotMillis != wantMillis {
		t.Errorf("MillisOfDay = %d, want %d", gotMillis, wantMillis)
	}
}

func TestTimestampReplyDelta(t *testing.T) {
	body := make([]byte, 16)
	// originate = 1000, receive = 1250 -> delta = 250
	body[4], body[5], body[6], body[7] = 0, 0, 0x03, 0xe8
	body[8], body[9], body[10], body[11] = 0, 0, 0x04, 0xe2
	delta, err := TimestampReplyDelta(body)
	if err != nil {
		t.Fatal(err)
	}
	if delta != 250 {
		t.Errorf("delta = %d, want 250", delta)
	}
}

func TestTimestampReplyDeltaShortBody(t *testing.T) {
	if _, err := TimestampReplyDelta(make([]byte, 4)); err == nil {
		t.Fatal("expected error for short body")
	}
}
