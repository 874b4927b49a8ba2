// Package zone holds the authoritative view a responder has of the records
// it is willing to answer with: the set of resource records that answer a
// given question for one advertised DNS-SD service.
package zone

import (
	"fmt"
	"net"
	"strings"

	"github.com/jmalloc/mdnssd/internal/wire"
)

// Zone produces the records that answer a single question.
type Zone interface {
	// Records returns the records that answer q, in the order they should
	// be appended to a response. It returns a nil slice for a question the
	// zone has nothing to say about.
	Records(q wire.Question) []wire.RR
}

// Instance-specific and shared-group TTLs, per DNS-SD convention (RFC 6763
// section 12).
const (
	InstanceTTLSeconds uint32 = 120
	PTRTTLSeconds      uint32 = 4500
)

// MDNSService is an immutable description of one advertised service. It
// implements Zone.
type MDNSService struct {
	// Instance is the user-visible label identifying this instance, e.g.
	// "Office Printer".
	Instance string

	// Service is the DNS-SD service type and protocol, e.g. "_http._tcp".
	Service string

	// Domain is the domain the service is advertised within. Defaults to
	// "local." when empty.
	Domain string

	// Hostname is the FQDN that resolves to Addresses.
	Hostname string

	// Port is the TCP/UDP port the service listens on.
	Port uint16

	// Addresses is the set of IPv4 and/or IPv6 addresses Hostname resolves
	// to.
	Addresses []net.IP

	// TXT is the ordered list of strings carried in the instance's TXT
	// record.
	TXT []string

	// Subtypes lists any DNS-SD service subtypes this instance also
	// answers selective instance enumeration for (RFC 6763 section 7.1).
	Subtypes []string
}

func (s *MDNSService) domain() string {
	if s.Domain == "" {
		return "local."
	}
	return s.Domain
}

// ServiceAddr returns "<service>.<domain>.".
func (s *MDNSService) ServiceAddr() string {
	return fmt.Sprintf("%s.%s", s.Service, s.domain())
}

// InstanceAddr returns "<instance>.<service>.<domain>.".
func (s *MDNSService) InstanceAddr() string {
	return fmt.Sprintf("%s.%s", s.Instance, s.ServiceAddr())
}

// EnumAddr returns "_services._dns-sd._udp.<domain>.", the meta-query
// target for DNS-SD service type enumeration (RFC 6763 section 9).
func (s *MDNSService) EnumAddr() string {
	return fmt.Sprintf("_services._dns-sd._udp.%s", s.domain())
}

// SubtypeAddr returns "<subtype>._sub.<service>.<domain>.", the target for
// selective instance enumeration of one of s.Subtypes.
func (s *MDNSService) SubtypeAddr(subtype string) string {
	return fmt.Sprintf("%s._sub.%s", subtype, s.ServiceAddr())
}

func mustName(s string) wire.Name {
	n, err := wire.ParseName(normalizeTrailingDot(s))
	if err != nil {
		panic(err)
	}
	return n
}

func equalFoldName(a string, b wire.Name) bool {
	n, err := wire.ParseName(normalizeTrailingDot(a))
	if err != nil {
		return false
	}
	return n.Equal(b)
}

// Records implements Zone.
func (s *MDNSService) Records(q wire.Question) []wire.RR {
	switch {
	case equalFoldName(s.EnumAddr(), q.Name):
		return s.enumRecords(q)

	case equalFoldName(s.ServiceAddr(), q.Name):
		return s.serviceRecords(q)

	case equalFoldName(s.InstanceAddr(), q.Name):
		return s.instanceRecords(q)

	case equalFoldName(s.Hostname, q.Name):
		return s.hostRecords(q)

	default:
		for _, sub := range s.Subtypes {
			if equalFoldName(s.SubtypeAddr(sub), q.Name) {
				return s.subtypeRecords(q)
			}
		}
		return nil
	}
}

func (s *MDNSService) enumRecords(q wire.Question) []wire.RR {
	if q.Type != wire.TypePTR && q.Type != wire.TypeANY {
		return nil
	}
	return []wire.RR{
		{
			Name:  mustName(s.EnumAddr()),
			Type:  wire.TypePTR,
			Class: wire.ClassINET,
			TTL:   PTRTTLSeconds,
			Data:  &wire.PTRRecord{Target: mustName(s.ServiceAddr())},
		},
	}
}

func (s *MDNSService) subtypeRecords(q wire.Question) []wire.RR {
	if q.Type != wire.TypePTR && q.Type != wire.TypeANY {
		return nil
	}
	return []wire.RR{
		{
			Name:  q.Name,
			Type:  wire.TypePTR,
			Class: wire.ClassINET,
			TTL:   PTRTTLSeconds,
			Data:  &wire.PTRRecord{Target: mustName(s.InstanceAddr())},
		},
	}
}

func (s *MDNSService) serviceRecords(q wire.Question) []wire.RR {
	if q.Type != wire.TypePTR && q.Type != wire.TypeANY {
		return nil
	}

	records := []wire.RR{
		{
			Name:  mustName(s.ServiceAddr()),
			Type:  wire.TypePTR,
			Class: wire.ClassINET,
			TTL:   PTRTTLSeconds,
			Data:  &wire.PTRRecord{Target: mustName(s.InstanceAddr())},
		},
	}

	records = append(records, s.srvRecord(), s.txtRecord())
	records = append(records, s.addressRecords()...)

	return records
}

func (s *MDNSService) instanceRecords(q wire.Question) []wire.RR {
	switch q.Type {
	case wire.TypeSRV:
		records := []wire.RR{s.srvRecord()}
		records = append(records, s.addressRecords()...)
		return records

	case wire.TypeTXT:
		return []wire.RR{s.txtRecord()}

	case wire.TypeANY:
		records := []wire.RR{s.srvRecord(), s.txtRecord()}
		records = append(records, s.addressRecords()...)
		return records

	default:
		return nil
	}
}

func (s *MDNSService) hostRecords(q wire.Question) []wire.RR {
	switch q.Type {
	case wire.TypeA:
		return s.aRecords()
	case wire.TypeAAAA:
		return s.aaaaRecords()
	case wire.TypeANY:
		records := s.aRecords()
		return append(records, s.aaaaRecords()...)
	default:
		return nil
	}
}

func (s *MDNSService) srvRecord() wire.RR {
	return wire.RR{
		Name:  mustName(s.InstanceAddr()),
		Type:  wire.TypeSRV,
		Class: wire.ClassINET,
		TTL:   InstanceTTLSeconds,
		Data: &wire.SRVRecord{
			Priority: 0,
			Weight:   0,
			Port:     s.Port,
			Target:   mustName(s.Hostname),
		},
	}
}

func (s *MDNSService) txtRecord() wire.RR {
	strs := make([][]byte, len(s.TXT))
	for i, t := range s.TXT {
		strs[i] = []byte(t)
	}
	return wire.RR{
		Name:  mustName(s.InstanceAddr()),
		Type:  wire.TypeTXT,
		Class: wire.ClassINET,
		TTL:   InstanceTTLSeconds,
		Data:  &wire.TXTRecord{Strings: strs},
	}
}

func (s *MDNSService) addressRecords() []wire.RR {
	records := s.aRecords()
	return append(records, s.aaaaRecords()...)
}

func (s *MDNSService) aRecords() []wire.RR {
	var out []wire.RR
	for _, ip := range s.Addresses {
		v4 := ip.To4()
		if v4 == nil {
			continue
		}
		var addr [4]byte
		copy(addr[:], v4)
		out = append(out, wire.RR{
			Name:  mustName(s.Hostname),
			Type:  wire.TypeA,
			Class: wire.ClassINET,
			TTL:   InstanceTTLSeconds,
			Data:  &wire.ARecord{Addr: addr},
		})
	}
	return out
}

func (s *MDNSService) aaaaRecords() []wire.RR {
	var out []wire.RR
	for _, ip := range s.Addresses {
		if ip.To4() != nil {
			continue
		}
		v6 := ip.To16()
		if v6 == nil {
			continue
		}
		var addr [16]byte
		copy(addr[:], v6)
		out = append(out, wire.RR{
			Name:  mustName(s.Hostname),
			Type:  wire.TypeAAAA,
			Class: wire.ClassINET,
			TTL:   InstanceTTLSeconds,
			Data:  &wire.AAAARecord{Addr: addr},
		})
	}
	return out
}

// normalizeTrailingDot ensures s ends with a single trailing dot, the form
// wire.ParseName requires.
func normalizeTrailingDot(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
