package trapsink

import (
	"net"
	"testing"

	"go.uber.org/zap"
)

func pipeConns(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		acceptCh <- c
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	server = <-acceptCh
	return client, server
}

func TestSubscriberSetBroadcastReachesAllConnections(t *testing.T) {
	set := newSubscriberSet(zap.NewNop())

	_, s1 := pipeConns(t)
	_, s2 := pipeConns(t)
	set.add(s1)
	set.add(s2)

	if set.count() != 2 {
		t.Fatalf("count = %d, want 2", set.count())
	}

	set.broadcast([]byte("trap"))
	set.closeAll()
}

func TestSubscriberSetRemoveOnWriteFailure(t *testing.T) {
	set := newSubscriberSet(zap.NewNop())
	client, server := pipeConns(t)
	set.add(server)

	client.Close() // force the next write on server to fail
	server.Close()

	set.broadcast([]byte("trap"))
	if set.count() != 0 {
		t.Errorf("count = %d, want 0 after failed write", set.count())
	}
}

func TestSubscriberSetDrained(t *testing.T) {
	set := newSubscriberSet(zap.NewNop())
	if set.drained() {
		t.Error("drained should be false before any subscriber connects")
	}

	_, s1 := pipeConns(t)
	set.add(s1)
	if set.drained() {
		t.Error("drained should be false while a subscriber is connected")
	}

	set.remove(s1)
	if !set.drained() {
		t.Error("drained should be true once the only subscriber leaves")
	}
}
