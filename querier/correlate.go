package querier

import (
	"net"
	"strings"

	"github.com/jmalloc/mdnssd/internal/wire"
)

// correlator folds resource records into ServiceEntry values. Entries live
// in an arena of slots; the index maps case-folded names to slot numbers so
// that a PTR can alias two names to the same slot and records arriving under
// either name mutate a single entry.
type correlator struct {
	service string // case-folded "<service>.<domain>." the query asked for

	slots []*ServiceEntry
	index map[string]int
}

func newCorrelator(serviceAddr string) *correlator {
	return &correlator{
		service: fold(serviceAddr),
		index:   map[string]int{},
	}
}

// fold is the canonical form used for map keys and matching: lower-case,
// trailing dot.
func fold(name string) string {
	name = strings.ToLower(name)
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return name
}

// ensure returns the slot index for name, creating an empty entry if the
// name has not been seen before.
func (c *correlator) ensure(name string) int {
	key := fold(name)
	if i, ok := c.index[key]; ok {
		return i
	}

	c.slots = append(c.slots, &ServiceEntry{Name: name})
	i := len(c.slots) - 1
	c.index[key] = i
	return i
}

// alias binds name to an existing slot, so that records arriving under
// either name update the same entry.
func (c *correlator) alias(name string, slot int) {
	c.index[fold(name)] = slot
}

// matches reports whether an entry name belongs to the queried service:
// either it ends with the service address, or stripping its first label
// (the instance label) yields exactly the service address.
func (c *correlator) matches(name string) bool {
	n := fold(name)

	if strings.HasSuffix(n, c.service) {
		return true
	}

	if i := strings.Index(n, "."); i >= 0 && n[i+1:] == c.service {
		return true
	}

	return false
}

// Fold processes every answer and additional record of m, in order, and
// returns the entries that became complete as a result, each emitted at
// most once per correlator lifetime. Completion is checked once the whole
// datagram has been folded, so every record it carries reaches an entry
// before that entry is emitted.
func (c *correlator) Fold(m *wire.Message) []*ServiceEntry {
	records := make([]wire.RR, 0, len(m.Answer)+len(m.Additional))
	records = append(records, m.Answer...)
	records = append(records, m.Additional...)

	for _, rr := range records {
		c.foldRecord(rr)
	}

	return c.sweep()
}

func (c *correlator) foldRecord(rr wire.RR) {
	name := rr.Name.String()

	switch data := rr.Data.(type) {
	case *wire.PTRRecord:
		target := data.Target.String()
		slot := c.ensure(target)
		if e := c.slots[slot]; !e.sent {
			e.Name = target
		}
		c.alias(name, slot)

	case *wire.SRVRecord:
		e := c.slots[c.ensure(name)]
		if e.sent {
			return
		}
		e.Host = data.Target.String()
		e.Port = data.Port

	case *wire.ARecord:
		c.foldAddr(name, net.IP(data.Addr[:]), false)

	case *wire.AAAARecord:
		c.foldAddr(name, net.IP(data.Addr[:]), true)

	case *wire.TXTRecord:
		e := c.slots[c.ensure(name)]
		if e.sent {
			return
		}
		e.InfoFields = make([]string, len(data.Strings))
		for i, s := range data.Strings {
			e.InfoFields[i] = string(s)
		}
		if len(e.InfoFields) > 0 {
			e.Info = e.InfoFields[0]
		}
		e.hasTXT = true

	default:
		// NSEC and unknown types carry nothing the correlator needs.
	}
}

// foldAddr records an address under name, and propagates it to every other
// entry whose SRV target is name.
func (c *correlator) foldAddr(name string, ip net.IP, v6 bool) {
	key := fold(name)

	add := func(e *ServiceEntry) {
		if e.sent {
			return
		}
		if v6 {
			e.AddrsV6 = append(e.AddrsV6, ip)
		} else {
			e.AddrsV4 = append(e.AddrsV4, ip)
		}
	}

	slot := c.ensure(name)
	add(c.slots[slot])

	for i, e := range c.slots {
		if i == slot {
			continue
		}
		if fold(e.Host) == key {
			add(e)
		}
	}
}

// sweep emits every entry that is complete, not yet sent, and named within
// the queried service.
func (c *correlator) sweep() []*ServiceEntry {
	var emitted []*ServiceEntry

	for _, e := range c.slots {
		if e.sent || !e.complete() || !c.matches(e.Name) {
			continue
		}
		e.sent = true
		emitted = append(emitted, e)
	}

	return emitted
}
