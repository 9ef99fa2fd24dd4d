// Package trapsink implements the privileged SNMP trap daemon: it owns
// the UDP trap socket (default port 162), optionally joins a multicast
// group on it, and forwards every received datagram, wrapped in a
// fixed envelope header, to every connected stream subscriber.
package trapsink

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/wire"
)

// Daemon is the running trap sink: one UDP listener, one optional
// multicast membership on the same socket, and one TCP listener
// accepting stream subscribers.
type Daemon struct {
	logger *zap.Logger
	cfg    Config

	udpConn *net.UDPConn
	tcpLn   net.Listener
	subs    *subscriberSet
	startup time.Time
}

// New opens the UDP trap socket (joining multicast if configured) and
// the TCP subscriber listener. The caller is expected to drop
// privileges immediately after New returns, once both sockets are
// open.
func New(cfg Config, logger *zap.Logger) (*Daemon, error) {
	if err := ValidatePort(cfg.trapPort()); err != nil {
		return nil, err
	}

	udpConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: cfg.trapPort()})
	if err != nil {
		return nil, fmt.Errorf("trapsink: listen udp :%d: %w", cfg.trapPort(), err)
	}

	if cfg.JoinMulticast {
		if err := joinMulticast(udpConn, cfg); err != nil {
			udpConn.Close()
			return nil, err
		}
	}

	tcpLn, err := net.Listen("tcp4", fmt.Sprintf(":%d", cfg.subscriberPort()))
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("trapsink: listen tcp :%d: %w", cfg.subscriberPort(), err)
	}

	return &Daemon{
		logger:  logger,
		cfg:     cfg,
		udpConn: udpConn,
		tcpLn:   tcpLn,
		subs:    newSubscriberSet(logger),
		startup: time.Now(),
	}, nil
}

func joinMulticast(conn *net.UDPConn, cfg Config) error {
	group := cfg.MulticastGroup
	if group == "" {
		group = DefaultMulticastGroup
	}
	ip := net.ParseIP(group)
	if ip == nil {
		return fmt.Errorf("trapsink: invalid multicast group %q", group)
	}

	var iface *net.Interface
	if cfg.Interface != "" {
		i, err := net.InterfaceByName(cfg.Interface)
		if err != nil {
			return fmt.Errorf("trapsink: multicast interface %q: %w", cfg.Interface, err)
		}
		iface = i
	}

	return joinIPv4Group(conn, iface, ip)
}

// Close releases both sockets and disconnects every subscriber.
func (d *Daemon) Close() error {
	d.subs.closeAll()
	d.tcpLn.Close()
	return d.udpConn.Close()
}

// Run drives the daemon until ctx is cancelled, a fatal socket error
// occurs, or the subscriber list drains (at least one subscriber
// connected, and now none remain) after the startup grace period.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	datagramCh := make(chan datagram)
	acceptCh := make(chan net.Conn)
	errCh := make(chan error, 2)

	go d.readDatagrams(ctx, datagramCh, errCh)
	go d.acceptSubscribers(ctx, acceptCh, errCh)

	drainCheck := time.NewTicker(250 * time.Millisecond)
	defer drainCheck.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		case dg := <-datagramCh:
			d.forward(dg)
		case c := <-acceptCh:
			d.subs.add(c)
			go d.drainSubscriber(c)
		case <-drainCheck.C:
			if time.Since(d.startup) < StartupGrace {
				continue
			}
			if d.subs.drained() {
				d.logger.Info("trap sink exiting: subscriber list drained")
				return nil
			}
		}
	}
}

type datagram struct {
	peer *net.UDPAddr
	body []byte
}

func (d *Daemon) readDatagrams(ctx context.Context, out chan<- datagram, errCh chan<- error) {
	buf := make([]byte, 65535)
	for {
		n, peer, err := d.udpConn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			errCh <- fmt.Errorf("trapsink: read udp: %w", err)
			return
		}
		body := make([]byte, n)
		copy(body, buf[:n])
		select {
		case out <- datagram{peer: peer, body: body}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Daemon) acceptSubscribers(ctx context.Context, out chan<- net.Conn, errCh chan<- error) {
	for {
		c, err := d.tcpLn.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			errCh <- fmt.Errorf("trapsink: accept: %w", err)
			return
		}
		select {
		case out <- c:
		case <-ctx.Done():
			c.Close()
			return
		}
	}
}

// drainSubscriber reads (and discards) from a subscriber connection
// until it closes, so a half-closed or reset peer is noticed and
// removed instead of silently lingering in the subscriber set.
func (d *Daemon) drainSubscriber(c net.Conn) {
	buf := make([]byte, 256)
	for {
		if _, err := c.Read(buf); err != nil {
			d.subs.remove(c)
			return
		}
	}
}

func (d *Daemon) forward(dg datagram) {
	env, err := wire.EnvelopeFor(dg.peer, len(dg.body))
	if err != nil {
		d.logger.Warn("trap sink: dropping datagram with unrepresentable source", zap.Error(err))
		return
	}
	frame := append(wire.EncodeEnvelope(env), dg.body...)
	d.subs.broadcast(frame)
}
