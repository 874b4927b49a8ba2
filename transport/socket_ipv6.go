package transport

import (
	"context"
	"net"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	ipvx "golang.org/x/net/ipv6"
)

var (
	// IPv6Group is the multicast group used for mDNS over IPv6.
	//
	// See https://tools.ietf.org/html/rfc6762#section-3.
	IPv6Group = net.ParseIP("ff02::fb")

	// IPv6GroupAddress is the destination address for mDNS traffic sent
	// over IPv6.
	IPv6GroupAddress = &net.UDPAddr{IP: IPv6Group, Port: Port}

	// ipv6ListenAddress is bound rather than IPv6GroupAddress so that
	// interface membership is controlled explicitly via JoinGroup instead
	// of implicitly by the address the socket is bound to.
	ipv6ListenAddress = &net.UDPAddr{IP: net.ParseIP("ff02::"), Port: Port}
)

// ipv6MulticastSocket is the IPv6 multicast Socket.
type ipv6MulticastSocket struct {
	logger logging.Logger

	mu     sync.Mutex
	pc     *ipvx.PacketConn
	joined []net.Interface
}

func newIPv6MulticastSocket(cfg Config) (*ipv6MulticastSocket, error) {
	ifaces, err := cfg.interfaces(6)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: controlFunc(cfg.ReusePort)}
	conn, err := lc.ListenPacket(context.Background(), "udp6", ipv6ListenAddress.String())
	if err != nil {
		logListenError(cfg.logger(), ipv6ListenAddress, err)
		return nil, err
	}

	pc := ipvx.NewPacketConn(conn)
	pc.SetControlMessage(ipvx.FlagInterface, true)
	if cfg.MulticastHops > 0 {
		pc.SetMulticastHopLimit(cfg.MulticastHops)
	}

	joined, err := joinGroup(pc, IPv6Group, ifaces, cfg.logger())
	if err != nil {
		pc.Close()
		return nil, err
	}

	logListening(cfg.logger(), ipv6ListenAddress, joined)

	return &ipv6MulticastSocket{
		logger: cfg.logger(),
		pc:     pc,
		joined: joined,
	}, nil
}

func (s *ipv6MulticastSocket) Read() (*InboundPacket, error) {
	buf := getBuffer()

	n, cm, src, err := s.pc.ReadFrom(buf)
	if err != nil {
		putBuffer(buf)
		logReadError(s.logger, s.Group(), err)
		return nil, err
	}

	ifIndex := 0
	if cm != nil {
		ifIndex = cm.IfIndex
	}

	return &InboundPacket{
		Socket: s,
		Source: Endpoint{ifIndex, src.(*net.UDPAddr)},
		Data:   buf[:n],
	}, nil
}

func (s *ipv6MulticastSocket) Write(p *OutboundPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.pc.WriteTo(
		p.Data,
		&ipvx.ControlMessage{IfIndex: p.Destination.InterfaceIndex},
		p.Destination.Address,
	)
	if err != nil {
		logWriteError(s.logger, p.Destination.Address, s.Group(), err)
	}
	return err
}

func (s *ipv6MulticastSocket) Group() *net.UDPAddr { return IPv6GroupAddress }

func (s *ipv6MulticastSocket) Joined() []net.Interface { return s.joined }

func (s *ipv6MulticastSocket) Close() error { return s.pc.Close() }

// ipv6UnicastSocket is the IPv6 unicast Socket used only by the querier.
type ipv6UnicastSocket struct {
	logger logging.Logger
	mu     sync.Mutex
	conn   *net.UDPConn
}

func newIPv6UnicastSocket(cfg Config) (*ipv6UnicastSocket, error) {
	addr := &net.UDPAddr{Port: 0}
	if cfg.NetworkInterface != nil {
		if ip, err := firstFamilyAddr(*cfg.NetworkInterface, 6); err == nil {
			addr.IP = ip
			addr.Zone = cfg.NetworkInterface.Name
		}
	}

	conn, err := net.ListenUDP("udp6", addr)
	if err != nil {
		logListenError(cfg.logger(), addr, err)
		return nil, err
	}

	return &ipv6UnicastSocket{logger: cfg.logger(), conn: conn}, nil
}

func (s *ipv6UnicastSocket) Read() (*InboundPacket, error) {
	buf := getBuffer()

	n, src, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		putBuffer(buf)
		logReadError(s.logger, IPv6GroupAddress, err)
		return nil, err
	}

	return &InboundPacket{
		Socket: s,
		Source: Endpoint{0, src},
		Data:   buf[:n],
	}, nil
}

func (s *ipv6UnicastSocket) Write(p *OutboundPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.WriteToUDP(p.Data, p.Destination.Address)
	if err != nil {
		logWriteError(s.logger, p.Destination.Address, IPv6GroupAddress, err)
	}
	return err
}

func (s *ipv6UnicastSocket) Group() *net.UDPAddr { return IPv6GroupAddress }

func (s *ipv6UnicastSocket) Joined() []net.Interface { return nil }

func (s *ipv6UnicastSocket) Close() error { return s.conn.Close() }
