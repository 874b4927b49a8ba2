// Package memnet provides an in-memory implementation of transport.Socket
// for tests: a network of sockets that routes multicast writes to every
// group member and unicast writes to the socket bound to the destination
// address, without touching the OS network stack.
package memnet

import (
	"net"
	"sync"

	"github.com/jmalloc/mdnssd/transport"
)

// Network routes packets between the sockets created from it.
type Network struct {
	mu      sync.Mutex
	sockets []*Socket
}

// New returns an empty network.
func New() *Network {
	return &Network{}
}

// Multicast creates a socket bound to (addr, 5353) that is a member of the
// given multicast group on the given interfaces.
func (n *Network) Multicast(addr net.IP, group net.IP, joined ...net.Interface) *Socket {
	return n.add(&Socket{
		network: n,
		addr:    &net.UDPAddr{IP: addr, Port: transport.Port},
		group:   &net.UDPAddr{IP: group, Port: transport.Port},
		joined:  joined,
		member:  true,
	})
}

// Unicast creates a socket bound to (addr, port) that receives only packets
// addressed to it directly.
func (n *Network) Unicast(addr net.IP, port int, group net.IP) *Socket {
	return n.add(&Socket{
		network: n,
		addr:    &net.UDPAddr{IP: addr, Port: port},
		group:   &net.UDPAddr{IP: group, Port: transport.Port},
	})
}

func (n *Network) add(s *Socket) *Socket {
	s.in = make(chan *transport.InboundPacket, 64)
	s.closed = make(chan struct{})

	n.mu.Lock()
	n.sockets = append(n.sockets, s)
	n.mu.Unlock()

	return s
}

// deliver routes one packet from src. Multicast destinations reach every
// group member except the sender; unicast destinations reach the socket
// bound to that exact address.
func (n *Network) deliver(src *Socket, p *transport.OutboundPacket) {
	data := append([]byte(nil), p.Data...)
	dest := p.Destination.Address

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, s := range n.sockets {
		if s == src {
			continue
		}

		if dest.IP.IsMulticast() {
			if !s.member || !s.group.IP.Equal(dest.IP) {
				continue
			}
		} else if !s.addr.IP.Equal(dest.IP) || s.addr.Port != dest.Port {
			continue
		}

		in := &transport.InboundPacket{
			Socket: s,
			Source: transport.Endpoint{Address: src.addr},
			Data:   data,
		}

		select {
		case s.in <- in:
		case <-s.closed:
		default:
		}
	}
}

// Socket is one endpoint on a Network. It implements transport.Socket.
type Socket struct {
	network *Network
	addr    *net.UDPAddr
	group   *net.UDPAddr
	joined  []net.Interface
	member  bool

	in     chan *transport.InboundPacket
	closed chan struct{}
	once   sync.Once
}

// Addr returns the address the socket is bound to.
func (s *Socket) Addr() *net.UDPAddr { return s.addr }

// Read implements transport.Socket. Packets delivered before Close are
// still readable afterwards, until the buffer is drained.
func (s *Socket) Read() (*transport.InboundPacket, error) {
	select {
	case in := <-s.in:
		return in, nil
	default:
	}

	select {
	case in := <-s.in:
		return in, nil
	case <-s.closed:
		return nil, net.ErrClosed
	}
}

// Write implements transport.Socket.
func (s *Socket) Write(p *transport.OutboundPacket) error {
	select {
	case <-s.closed:
		return net.ErrClosed
	default:
	}

	s.network.deliver(s, p)
	return nil
}

// Group implements transport.Socket.
func (s *Socket) Group() *net.UDPAddr { return s.group }

// Joined implements transport.Socket.
func (s *Socket) Joined() []net.Interface { return s.joined }

// Close implements transport.Socket.
func (s *Socket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
