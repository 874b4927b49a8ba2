package responder

import (
	"github.com/dogmatiq/dodeca/logging"
	"github.com/jmalloc/mdnssd/internal/wire"
	"github.com/jmalloc/mdnssd/transport"
)

// respond answers a single inbound datagram, splitting the zone's records
// into a multicast and a unicast response per question.
func (r *Responder) respond(in *transport.InboundPacket) {
	defer in.Close()

	m, err := in.Message()
	if err != nil {
		logging.Debug(r.logger(), "dropping malformed mDNS message: %s", err)
		return
	}

	// https://tools.ietf.org/html/rfc6762#section-18.2
	//
	// Responses carry their own answer sets; a responder holds no querier
	// state to correlate them against.
	if m.Header.Response {
		return
	}

	// https://tools.ietf.org/html/rfc6762#section-18.3 (OPCODE) and
	// https://tools.ietf.org/html/rfc6762#section-18.11 (RCODE): multicast
	// DNS messages received with a non-zero value in either MUST be silently
	// ignored.
	if m.Header.Opcode != 0 || m.Header.RCode != 0 {
		return
	}

	var mcast, ucast []wire.RR

	for _, q := range m.Question {
		if q.QClass() != wire.ClassINET {
			continue
		}

		records := r.zone.Records(q)
		if len(records) == 0 {
			continue
		}

		// https://tools.ietf.org/html/rfc6762#section-6.7
		//
		// A query from a source port other than 5353 belongs to a "legacy"
		// querier that is not listening on the multicast group; it is
		// answered via unicast as though the QU bit were set.
		if q.Unicast() || in.Source.IsLegacy() {
			ucast = append(ucast, records...)
		} else {
			mcast = append(mcast, records...)
		}
	}

	if len(mcast) > 0 {
		// https://tools.ietf.org/html/rfc6762#section-18.1 specifies id=0 on
		// all responses; the id is zeroed here for multicast but echoed for
		// unicast below, preserving the behaviour of the system this one
		// interoperates with.
		r.sendMulticast(in, newResponse(0, mcast))
	}

	if len(ucast) > 0 {
		r.sendUnicast(in, newResponse(m.Header.ID, ucast))
	}
}

// newResponse builds an authoritative mDNS response carrying the given
// answers. The cache-flush bit is never set on the records, even for unique
// ones; see https://tools.ietf.org/html/rfc6762#section-10.2.
func newResponse(id uint16, answers []wire.RR) *wire.Message {
	return &wire.Message{
		Header: wire.Header{
			ID:            id,
			Response:      true,
			Authoritative: true,
		},
		Answer: answers,
	}
}

// sendMulticast emits m to the multicast group via the socket the query
// arrived on, once per joined interface.
func (r *Responder) sendMulticast(in *transport.InboundPacket, m *wire.Message) {
	buf, err := m.Pack()
	if err != nil {
		logging.Log(r.logger(), "unable to pack mDNS response: %s", err)
		return
	}

	ifaces := in.Socket.Joined()
	if len(ifaces) == 0 {
		_ = in.Socket.Write(&transport.OutboundPacket{
			Destination: transport.Endpoint{Address: in.Socket.Group()},
			Data:        buf,
		})
		return
	}

	for _, iface := range ifaces {
		_ = in.Socket.Write(&transport.OutboundPacket{
			Destination: transport.Endpoint{
				InterfaceIndex: iface.Index,
				Address:        in.Socket.Group(),
			},
			Data: buf,
		})
	}
}

// sendUnicast emits m back to the source of the query.
func (r *Responder) sendUnicast(in *transport.InboundPacket, m *wire.Message) {
	buf, err := m.Pack()
	if err != nil {
		logging.Log(r.logger(), "unable to pack mDNS response: %s", err)
		return
	}

	_ = in.Socket.Write(&transport.OutboundPacket{
		Destination: in.Source,
		Data:        buf,
	})
}
