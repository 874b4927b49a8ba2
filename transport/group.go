package transport

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
)

// packetConn is the subset of *ipv4.PacketConn / *ipv6.PacketConn used to
// join multicast groups.
type packetConn interface {
	JoinGroup(*net.Interface, net.Addr) error
}

// joinGroup joins group on every interface in ifaces, logging and skipping
// any interface that fails. If every interface fails, it makes one final
// attempt against the OS's default interface before giving up.
func joinGroup(
	pc packetConn,
	group net.IP,
	ifaces []net.Interface,
	logger logging.Logger,
) ([]net.Interface, error) {
	addr := &net.UDPAddr{IP: group}

	joined := make([]net.Interface, 0, len(ifaces))
	for _, i := range ifaces {
		if err := pc.JoinGroup(&i, addr); err != nil {
			logJoinFailure(logger, group, i, err)
		} else {
			joined = append(joined, i)
		}
	}

	if len(joined) > 0 {
		return joined, nil
	}

	def, err := defaultInterface()
	if err == nil {
		if err := pc.JoinGroup(&def, addr); err == nil {
			return []net.Interface{def}, nil
		}
		logJoinFailure(logger, group, def, err)
	}

	return nil, ErrMulticastJoinFailed
}
