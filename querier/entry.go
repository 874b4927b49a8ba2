package querier

import "net"

// ServiceEntry is the querier-side aggregate of one service instance's PTR,
// SRV, TXT, and address records, assembled as fragments arrive across
// datagrams and interfaces.
type ServiceEntry struct {
	// Name is the fully-qualified instance name, e.g.
	// "Office Printer._http._tcp.local.".
	Name string

	// Host is the SRV target, the FQDN the address records belong to.
	Host string

	// AddrsV4 and AddrsV6 are the addresses Host resolves to, in arrival
	// order.
	AddrsV4 []net.IP
	AddrsV6 []net.IP

	// Port is the SRV port.
	Port uint16

	// Info is the first TXT string, or empty when the TXT record carried
	// none. InfoFields holds every TXT string in order.
	Info       string
	InfoFields []string

	hasTXT bool
	sent   bool
}

// complete reports whether enough fragments have arrived for the entry to be
// emitted: at least one address, a port, and a TXT record.
func (e *ServiceEntry) complete() bool {
	return (len(e.AddrsV4) > 0 || len(e.AddrsV6) > 0) &&
		e.Port != 0 &&
		e.hasTXT
}
