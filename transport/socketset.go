package transport

import (
	"errors"

	"github.com/dogmatiq/dodeca/logging"
)

// ErrFamiliesDisabled is returned when the configuration disables both
// address families, leaving nothing to bind.
var ErrFamiliesDisabled = errors.New("transport: both IPv4 and IPv6 are disabled")

// SocketSet is the full set of sockets one responder or querier owns: a
// multicast socket per enabled family and, for queriers, a unicast socket
// per enabled family as well.
type SocketSet struct {
	// Multicast holds the sockets bound to port 5353 and joined to the mDNS
	// group, at most one per family.
	Multicast []Socket

	// Unicast holds the ephemeral-port sockets used by the querier to send
	// the initial query and receive unicast replies. Empty for responders.
	Unicast []Socket
}

// NewSocketSet binds sockets for every enabled address family.
//
// When needUnicast is set (the querier case) a family is usable only if both
// its multicast and its unicast socket could be created; a half-constructed
// pair is closed and the family skipped. Per-family failures are non-fatal
// as long as at least one family remains usable; total failure returns
// ErrNoUsableSocket.
func NewSocketSet(cfg Config, needUnicast bool) (*SocketSet, error) {
	if cfg.DisableIPv4 && cfg.DisableIPv6 {
		return nil, ErrFamiliesDisabled
	}

	s := &SocketSet{}

	if !cfg.DisableIPv4 {
		s.addFamily(
			cfg.logger(),
			needUnicast,
			func() (Socket, error) { return newIPv4MulticastSocket(cfg) },
			func() (Socket, error) { return newIPv4UnicastSocket(cfg) },
		)
	}

	if !cfg.DisableIPv6 {
		s.addFamily(
			cfg.logger(),
			needUnicast,
			func() (Socket, error) { return newIPv6MulticastSocket(cfg) },
			func() (Socket, error) { return newIPv6UnicastSocket(cfg) },
		)
	}

	if len(s.Multicast) == 0 {
		return nil, ErrNoUsableSocket
	}

	return s, nil
}

func (s *SocketSet) addFamily(
	logger logging.Logger,
	needUnicast bool,
	multicast func() (Socket, error),
	unicast func() (Socket, error),
) {
	m, err := multicast()
	if err != nil {
		logging.Debug(logger, "skipping address family: %s", err)
		return
	}

	if !needUnicast {
		s.Multicast = append(s.Multicast, m)
		return
	}

	u, err := unicast()
	if err != nil {
		logging.Debug(logger, "skipping address family: %s", err)
		m.Close()
		return
	}

	s.Multicast = append(s.Multicast, m)
	s.Unicast = append(s.Unicast, u)
}

// Sockets returns every socket in the set, multicast first.
func (s *SocketSet) Sockets() []Socket {
	out := make([]Socket, 0, len(s.Multicast)+len(s.Unicast))
	out = append(out, s.Multicast...)
	out = append(out, s.Unicast...)
	return out
}

// Close closes every socket in the set, retaining the first error.
func (s *SocketSet) Close() error {
	var first error
	for _, sock := range s.Sockets() {
		if err := sock.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
