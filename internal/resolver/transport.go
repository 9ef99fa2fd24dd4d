package resolver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/netvigil/tnmcore/internal/wire"
)

const udpReadBufferSize = 512

// exchange sends one query for name/qtype to each configured name
// server in turn, retrying the whole server list up to cfg.Retries
// additional times, and returns the first successful reply. UDP send/
// receive errors are returned with the underlying error intact so
// callers can surface the underlying error number.
func (r *Resolver) exchange(ctx context.Context, qtype wire.QType, name string) (*wire.Reply, error) {
	query, err := wire.BuildQuery(name, qtype)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		for _, ns := range r.cfg.nameservers() {
			reply, err := r.exchangeOnce(ctx, ns, query, qtype)
			if err != nil {
				lastErr = err
				continue
			}
			return reply, nil
		}
	}
	if lastErr == nil {
		lastErr = ErrNoAnswer
	}
	return nil, lastErr
}

func (r *Resolver) exchangeOnce(ctx context.Context, ns net.IP, query []byte, qtype wire.QType) (*wire.Reply, error) {
	addr := net.JoinHostPort(ns.String(), strconv.Itoa(r.cfg.port()))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolver: dial %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(r.cfg.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("resolver: set deadline: %w", err)
	}

	if _, err := conn.Write(query); err != nil {
		return nil, fmt.Errorf("resolver: send query: %w", err)
	}

	buf := make([]byte, udpReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("resolver: read reply: %w", err)
	}

	return wire.ParseReply(buf[:n], qtype)
}
