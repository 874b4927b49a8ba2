package responder

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/jmalloc/mdnssd/transport"
)

// Option is a function that applies an option to a responder created by
// New().
type Option func(*Responder) error

// UseLogger returns a responder option that sets the logger used by the
// responder and its sockets.
func UseLogger(l logging.Logger) Option {
	return func(r *Responder) error {
		r.config.Logger = l
		return nil
	}
}

// UseInterface sets the network interface the responder joins the multicast
// group on.
//
// If this option is not provided, the responder joins on the interface used
// to access the internet.
func UseInterface(iface net.Interface) Option {
	return func(r *Responder) error {
		r.config.NetworkInterface = &iface
		return nil
	}
}

// JoinAllInterfaces joins the multicast group on every non-loopback
// interface carrying an address of the relevant family, rather than a single
// interface.
func JoinAllInterfaces(r *Responder) error {
	r.config.JoinMulticastOnAllInterfaces = true
	return nil
}

// DisableIPv4 is a responder option that prevents the responder from
// listening for IPv4 messages.
func DisableIPv4(r *Responder) error {
	r.config.DisableIPv4 = true
	return nil
}

// DisableIPv6 is a responder option that prevents the responder from
// listening for IPv6 messages.
func DisableIPv6(r *Responder) error {
	r.config.DisableIPv6 = true
	return nil
}

// UseConfig replaces the responder's entire transport configuration.
func UseConfig(cfg transport.Config) Option {
	return func(r *Responder) error {
		r.config = cfg
		return nil
	}
}

// UseSocketSet supplies a pre-constructed socket set instead of having
// Start() bind its own. The responder takes ownership of the sockets and
// closes them when stopped.
func UseSocketSet(s *transport.SocketSet) Option {
	return func(r *Responder) error {
		r.sockets = s
		return nil
	}
}
