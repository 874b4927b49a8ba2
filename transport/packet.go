package transport

import (
	"net"

	"github.com/jmalloc/mdnssd/internal/wire"
)

// Endpoint is the origin or destination of a packet.
type Endpoint struct {
	InterfaceIndex int
	Address        *net.UDPAddr
}

// IsLegacy returns true if this endpoint belongs to a "legacy" querier: one
// that does not speak port 5353 and is therefore expecting a conventional
// unicast response rather than participating in multicast.
//
// See https://tools.ietf.org/html/rfc6762#section-6.7.
func (ep Endpoint) IsLegacy() bool {
	return ep.Address.Port != Port
}

// InboundPacket is a UDP datagram received on a Socket.
type InboundPacket struct {
	Socket Socket
	Source Endpoint
	Data   []byte
}

// Message decodes the DNS message carried in the packet.
func (p *InboundPacket) Message() (*wire.Message, error) {
	return wire.Unpack(p.Data)
}

// Close returns the packet's data buffer to the pool. It must be called
// exactly once the packet's contents are no longer needed.
func (p *InboundPacket) Close() {
	putBuffer(p.Data)
	p.Data = nil
}

// OutboundPacket is a UDP datagram to be sent via a Socket.
type OutboundPacket struct {
	Destination Endpoint
	Data        []byte
}

// Close returns the packet's data buffer to the pool.
func (p *OutboundPacket) Close() {
	putBuffer(p.Data)
	p.Data = nil
}

// NewOutboundPacket packs m into a newly allocated buffer (not one taken
// from the buffer pool) addressed to dest.
func NewOutboundPacket(dest Endpoint, m *wire.Message) (*OutboundPacket, error) {
	buf, err := m.Pack()
	if err != nil {
		return nil, err
	}
	return &OutboundPacket{dest, buf}, nil
}
