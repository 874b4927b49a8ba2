package transport

import (
	"errors"
	"net"
)

var errNoFamilyAddr = errors.New("transport: interface has no address of the requested family")

// Socket is a UDP endpoint belonging to one address family, either
// multicast (bound to the mDNS group and able to enumerate the interfaces
// it joined on) or unicast (bound to an ephemeral port, used only by the
// querier).
type Socket interface {
	// Read blocks until the next datagram arrives.
	Read() (*InboundPacket, error)

	// Write sends a single datagram. Per-interface multicast delivery is
	// achieved by calling Write once per interface in Joined(), each with
	// Destination.InterfaceIndex set accordingly; sends on one Socket are
	// serialized internally because setting the outbound interface is a
	// stateful operation on the underlying OS socket.
	Write(*OutboundPacket) error

	// Group returns the mDNS multicast group address for this socket's
	// family, regardless of whether this socket itself is bound to it.
	Group() *net.UDPAddr

	// Joined returns the interfaces this socket has joined the multicast
	// group on. It is empty for unicast sockets.
	Joined() []net.Interface

	// Close releases the underlying OS socket.
	Close() error
}
