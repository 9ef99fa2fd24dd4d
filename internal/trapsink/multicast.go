package trapsink

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// joinIPv4Group wraps conn in an ipv4.PacketConn and joins group on
// iface (nil lets the kernel pick a default interface), treating the
// multicast feed as a second datagram source on the same socket.
func joinIPv4Group(conn *net.UDPConn, iface *net.Interface, group net.IP) error {
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(iface, &net.UDPAddr{IP: group}); err != nil {
		return fmt.Errorf("trapsink: join multicast group %s: %w", group, err)
	}
	return nil
}
