package trapsink

import "time"

// DefaultTrapPort is the conventional SNMP trap port this daemon binds
// by default.
const DefaultTrapPort = 162

// DefaultSubscriberPort is the fixed TCP port subscribers connect to.
const DefaultSubscriberPort = 1702

// DefaultMulticastGroup is optionally joined alongside the unicast
// trap socket.
const DefaultMulticastGroup = "224.0.0.1"

// StartupGrace is how long after opening its sockets the daemon ignores
// its drain check (a subscriber has connected before and none is
// connected now), so the first subscriber has time to attach.
const StartupGrace = 3 * time.Second

// Config controls how the daemon binds its sockets.
type Config struct {
	// TrapPort is the UDP port the daemon listens on for trap
	// datagrams. Defaults to DefaultTrapPort. Any value below 1024
	// other than DefaultTrapPort is rejected at startup: privileged
	// ports are reserved for the conventional trap port.
	TrapPort int
	// SubscriberPort is the TCP port subscribers dial to receive
	// forwarded envelopes. Defaults to DefaultSubscriberPort.
	SubscriberPort int
	// JoinMulticast, when true, additionally joins MulticastGroup on
	// TrapPort as a second datagram source.
	JoinMulticast  bool
	MulticastGroup string
	// Interface, if set, is the network interface multicast group
	// membership is requested on. Empty lets the OS pick.
	Interface string
}

// DefaultConfig returns the daemon's conventional bind configuration.
func DefaultConfig() Config {
	return Config{
		TrapPort:       DefaultTrapPort,
		SubscriberPort: DefaultSubscriberPort,
		MulticastGroup: DefaultMulticastGroup,
	}
}

func (c Config) trapPort() int {
	if c.TrapPort == 0 {
		return DefaultTrapPort
	}
	return c.TrapPort
}

func (c Config) subscriberPort() int {
	if c.SubscriberPort == 0 {
		return DefaultSubscriberPort
	}
	return c.SubscriberPort
}

// ValidatePort rejects a privileged port other than the conventional
// trap port, per the daemon's public contract.
func ValidatePort(port int) error {
	if port >= 1024 {
		return nil
	}
	if port == DefaultTrapPort {
		return nil
	}
	return errPrivilegedPort(port)
}
