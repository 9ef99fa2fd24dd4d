package trapsink

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestValidatePortRejectsPrivilegedPortsOtherThanDefault(t *testing.T) {
	if err := ValidatePort(161); err == nil {
		t.Error("expected error for privileged port 161")
	}
	if err := ValidatePort(DefaultTrapPort); err != nil {
		t.Errorf("default trap port should be allowed: %v", err)
	}
	if err := ValidatePort(9162); err != nil {
		t.Errorf("unprivileged port should be allowed: %v", err)
	}
}

func TestDaemonForwardsDatagramToSubscriber(t *testing.T) {
	cfg := Config{TrapPort: 19162, SubscriberPort: 19702}
	d, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	sub, err := net.Dial("tcp", "127.0.0.1:19702")
	if err != nil {
		t.Fatalf("dial subscriber port: %v", err)
	}
	defer sub.Close()

	// Give the accept loop a moment to register the new connection.
	time.Sleep(50 * time.Millisecond)

	src, err := net.Dial("udp4", "127.0.0.1:19162")
	if err != nil {
		t.Fatalf("dial trap port: %v", err)
	}
	defer src.Close()

	payload := []byte("trap-payload")
	if _, err := src.Write(payload); err != nil {
		t.Fatalf("send trap: %v", err)
	}

	sub.SetReadDeadline(time.Now().Add(2 * time.Second))
	header := make([]byte, 12)
	if _, err := io.ReadFull(sub, header); err != nil {
		t.Fatalf("read envelope header: %v", err)
	}
	length := binary.BigEndian.Uint32(header[8:12])
	if int(length) != len(payload) {
		t.Fatalf("envelope length = %d, want %d", length, len(payload))
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(sub, body); err != nil {
		t.Fatalf("read envelope body: %v", err)
	}
	if string(body) != string(payload) {
		t.Errorf("body = %q, want %q", body, payload)
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDaemonExitsWhenSubscribersDrainAfterGrace(t *testing.T) {
	cfg := Config{TrapPort: 19163, SubscriberPort: 19703}
	d, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	d.startup = time.Now().Add(-StartupGrace - time.Second)

	ctx := context.Background()
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	sub, err := net.Dial("tcp", "127.0.0.1:19703")
	if err != nil {
		t.Fatalf("dial subscriber port: %v", err)
	}
	sub.Close()

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit after subscribers drained")
	}
}
