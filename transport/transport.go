// Package transport provides the UDP socket set mDNS responders and queriers
// send and receive on: a multicast socket and a unicast socket per enabled
// address family, bound to port 5353 and joined to the mDNS multicast
// groups.
package transport

import (
	"errors"
	"net"

	"github.com/dogmatiq/dodeca/logging"
)

// Port is the mDNS port number.
//
// See https://tools.ietf.org/html/rfc6762#section-3.
const Port = 5353

var (
	// ErrNoUsableSocket is returned when neither address family produced a
	// usable socket pair.
	ErrNoUsableSocket = errors.New("transport: no usable socket for either address family")

	// ErrMulticastJoinFailed is returned when the mDNS multicast group could
	// not be joined on any interface.
	ErrMulticastJoinFailed = errors.New("transport: unable to join multicast group on any interface")
)

// Config controls how a SocketSet is constructed.
type Config struct {
	// ReusePort enables SO_REUSEPORT, allowing this process to coexist with
	// another mDNS responder (such as the host OS's own) bound to the same
	// port. Off by default.
	ReusePort bool

	// ReuseAddr enables SO_REUSEADDR. The multicast socket always binds with
	// SO_REUSEADDR regardless of this flag; it is accepted for parity with
	// the documented configuration surface.
	ReuseAddr bool

	// MulticastHops sets the multicast TTL (IPv4) / hop limit (IPv6) on
	// outbound packets. Zero means the family default of 1.
	MulticastHops int

	// JoinMulticastOnAllInterfaces joins the mDNS group on every
	// non-loopback, multicast-capable interface carrying an address of the
	// relevant family, rather than a single interface. It has no effect when
	// NetworkInterface is set.
	JoinMulticastOnAllInterfaces bool

	// NetworkInterface restricts the socket set to a single interface. When
	// nil and JoinMulticastOnAllInterfaces is false, the OS default route
	// interface is used.
	NetworkInterface *net.Interface

	// WantUnicastResponse sets the QU bit on outbound queries and is used
	// by the querier when deciding how to construct its question.
	WantUnicastResponse bool

	// DisableIPv4 prevents constructing the IPv4 socket pair.
	DisableIPv4 bool

	// DisableIPv6 prevents constructing the IPv6 socket pair.
	DisableIPv6 bool

	// Logger receives join/read/write diagnostics. Defaults to
	// logging.DefaultLogger when nil.
	Logger logging.Logger
}

func (c Config) logger() logging.Logger {
	if c.Logger == nil {
		return logging.DefaultLogger
	}
	return c.Logger
}

func (c Config) interfaces(family int) ([]net.Interface, error) {
	if c.NetworkInterface != nil {
		return []net.Interface{*c.NetworkInterface}, nil
	}

	if !c.JoinMulticastOnAllInterfaces {
		iface, err := defaultInterface()
		if err != nil {
			return nil, err
		}
		return []net.Interface{iface}, nil
	}

	all, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []net.Interface
	for _, i := range all {
		if i.Flags&net.FlagLoopback != 0 {
			continue
		}
		if i.Flags&net.FlagMulticast == 0 {
			continue
		}
		if hasFamilyAddr(i, family) {
			out = append(out, i)
		}
	}
	return out, nil
}

func hasFamilyAddr(iface net.Interface, family int) bool {
	addrs, err := iface.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if family == 4 && ipn.IP.To4() != nil {
			return true
		}
		if family == 6 && ipn.IP.To4() == nil {
			return true
		}
	}
	return false
}

// defaultInterface returns the interface the OS would use to reach the
// public internet, used as a reasonable stand-in for "the default
// interface" when nothing more specific is configured.
func defaultInterface() (net.Interface, error) {
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return net.Interface{}, err
	}
	defer conn.Close()

	ip := conn.LocalAddr().(*net.UDPAddr).IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return net.Interface{}, err
	}

	for _, i := range ifaces {
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return i, nil
			}
		}
	}

	return net.Interface{}, errors.New("transport: could not determine default network interface")
}
