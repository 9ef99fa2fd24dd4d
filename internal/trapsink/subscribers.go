package trapsink

import (
	"net"
	"sync"

	"go.uber.org/zap"
)

// subscriberSet tracks the currently connected stream subscribers and
// fans out envelope bytes to each. Writes are attempted independently
// per subscriber so one slow or dead peer never blocks the others.
type subscriberSet struct {
	logger *zap.Logger

	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	everHadOne bool
}

func newSubscriberSet(logger *zap.Logger) *subscriberSet {
	return &subscriberSet{
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

func (s *subscriberSet) add(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
	s.everHadOne = true
	s.logger.Info("trap subscriber connected", zap.String("remote", c.RemoteAddr().String()), zap.Int("subscribers", len(s.conns)))
}

func (s *subscriberSet) remove(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c]; !ok {
		return
	}
	delete(s.conns, c)
	c.Close()
	s.logger.Info("trap subscriber disconnected", zap.String("remote", c.RemoteAddr().String()), zap.Int("subscribers", len(s.conns)))
}

// broadcast writes frame to every connected subscriber, dropping (and
// closing) any connection whose write fails. EPIPE and other write
// errors are tolerated: they remove the one bad subscriber rather than
// propagating to the caller.
func (s *subscriberSet) broadcast(frame []byte) {
	s.mu.Lock()
	dead := make([]net.Conn, 0)
	for c := range s.conns {
		if _, err := c.Write(frame); err != nil {
			dead = append(dead, c)
		}
	}
	s.mu.Unlock()

	for _, c := range dead {
		s.remove(c)
	}
}

// count returns the number of currently connected subscribers.
func (s *subscriberSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// drained reports whether at least one subscriber has ever connected
// and none remain connected now, the daemon's exit condition.
func (s *subscriberSet) drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.everHadOne && len(s.conns) == 0
}

func (s *subscriberSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
	s.conns = make(map[net.Conn]struct{})
}
