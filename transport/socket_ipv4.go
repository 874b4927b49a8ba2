package transport

import (
	"context"
	"net"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	ipvx "golang.org/x/net/ipv4"
)

var (
	// IPv4Group is the multicast group used for mDNS over IPv4.
	//
	// See https://tools.ietf.org/html/rfc6762#section-3.
	IPv4Group = net.ParseIP("224.0.0.251")

	// IPv4GroupAddress is the destination address for mDNS traffic sent
	// over IPv4.
	IPv4GroupAddress = &net.UDPAddr{IP: IPv4Group, Port: Port}

	// ipv4ListenAddress is bound rather than IPv4GroupAddress so that
	// interface membership is controlled explicitly via JoinGroup instead
	// of implicitly by the address the socket is bound to.
	ipv4ListenAddress = &net.UDPAddr{IP: net.ParseIP("224.0.0.0"), Port: Port}
)

// ipv4MulticastSocket is the IPv4 multicast Socket.
type ipv4MulticastSocket struct {
	logger logging.Logger

	mu     sync.Mutex
	pc     *ipvx.PacketConn
	joined []net.Interface
}

func newIPv4MulticastSocket(cfg Config) (*ipv4MulticastSocket, error) {
	ifaces, err := cfg.interfaces(4)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: controlFunc(cfg.ReusePort)}
	conn, err := lc.ListenPacket(context.Background(), "udp4", ipv4ListenAddress.String())
	if err != nil {
		logListenError(cfg.logger(), ipv4ListenAddress, err)
		return nil, err
	}

	pc := ipvx.NewPacketConn(conn)
	pc.SetControlMessage(ipvx.FlagInterface, true)
	if cfg.MulticastHops > 0 {
		pc.SetMulticastTTL(cfg.MulticastHops)
	}

	joined, err := joinGroup(pc, IPv4Group, ifaces, cfg.logger())
	if err != nil {
		pc.Close()
		return nil, err
	}

	logListening(cfg.logger(), ipv4ListenAddress, joined)

	return &ipv4MulticastSocket{
		logger: cfg.logger(),
		pc:     pc,
		joined: joined,
	}, nil
}

func (s *ipv4MulticastSocket) Read() (*InboundPacket, error) {
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

func (s *ipv4MulticastSocket) Write(p *OutboundPacket) error {
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

func (s *ipv4MulticastSocket) Group() *net.UDPAddr { return IPv4GroupAddress }

func (s *ipv4MulticastSocket) Joined() []net.Interface { return s.joined }

func (s *ipv4MulticastSocket) Close() error { return s.pc.Close() }

// ipv4UnicastSocket is the IPv4 unicast Socket used only by the querier.
type ipv4UnicastSocket struct {
	logger logging.Logger
	mu     sync.Mutex
	conn   *net.UDPConn
}

func newIPv4UnicastSocket(cfg Config) (*ipv4UnicastSocket, error) {
	addr := &net.UDPAddr{Port: 0}
	if cfg.NetworkInterface != nil {
		if ip, err := firstFamilyAddr(*cfg.NetworkInterface, 4); err == nil {
			addr.IP = ip
		}
	}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		logListenError(cfg.logger(), addr, err)
		return nil, err
	}

	return &ipv4UnicastSocket{logger: cfg.logger(), conn: conn}, nil
}

func (s *ipv4UnicastSocket) Read() (*InboundPacket, error) {
	buf := getBuffer()

	n, src, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		putBuffer(buf)
		logReadError(s.logger, IPv4GroupAddress, err)
		return nil, err
	}

	return &InboundPacket{
		Socket: s,
		Source: Endpoint{0, src},
		Data:   buf[:n],
	}, nil
}

func (s *ipv4UnicastSocket) Write(p *OutboundPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.WriteToUDP(p.Data, p.Destination.Address)
	if err != nil {
		logWriteError(s.logger, p.Destination.Address, IPv4GroupAddress, err)
	}
	return err
}

func (s *ipv4UnicastSocket) Group() *net.UDPAddr { return IPv4GroupAddress }

func (s *ipv4UnicastSocket) Joined() []net.Interface { return nil }

func (s *ipv4UnicastSocket) Close() error { return s.conn.Close() }

func firstFamilyAddr(iface net.Interface, family int) (net.IP, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if family == 4 && ipn.IP.To4() != nil {
			return ipn.IP, nil
		}
		if family == 6 && ipn.IP.To4() == nil {
			return ipn.IP, nil
		}
	}
	return nil, errNoFamilyAddr
}
