package querier

import (
	"net"

	"github.com/jmalloc/mdnssd/internal/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("correlator", func() {
	mustName := func(s string) wire.Name {
		n, err := wire.ParseName(s)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	ptr := func(name, target string) wire.RR {
		return wire.RR{
			Name:  mustName(name),
			Type:  wire.TypePTR,
			Class: wire.ClassINET,
			TTL:   4500,
			Data:  &wire.PTRRecord{Target: mustName(target)},
		}
	}

	srv := func(name, target string, port uint16) wire.RR {
		return wire.RR{
			Name:  mustName(name),
			Type:  wire.TypeSRV,
			Class: wire.ClassINET,
			TTL:   120,
			Data:  &wire.SRVRecord{Port: port, Target: mustName(target)},
		}
	}

	a := func(name string, ip net.IP) wire.RR {
		var addr [4]byte
		copy(addr[:], ip.To4())
		return wire.RR{
			Name:  mustName(name),
			Type:  wire.TypeA,
			Class: wire.ClassINET,
			TTL:   120,
			Data:  &wire.ARecord{Addr: addr},
		}
	}

	txt := func(name string, strs ...string) wire.RR {
		data := make([][]byte, len(strs))
		for i, s := range strs {
			data[i] = []byte(s)
		}
		return wire.RR{
			Name:  mustName(name),
			Type:  wire.TypeTXT,
			Class: wire.ClassINET,
			TTL:   120,
			Data:  &wire.TXTRecord{Strings: data},
		}
	}

	var (
		c       *correlator
		records []wire.RR
	)

	BeforeEach(func() {
		c = newCorrelator("_puupee._tcp.local.")
		records = []wire.RR{
			ptr("_puupee._tcp.local.", "Instance._puupee._tcp.local."),
			srv("Instance._puupee._tcp.local.", "host.local.", 12056),
			a("host.local.", net.ParseIP("192.0.2.5")),
			txt("Instance._puupee._tcp.local.", "path=/api"),
		}
	})

	feed := func(datagrams ...[]wire.RR) []*ServiceEntry {
		var emitted []*ServiceEntry
		for _, d := range datagrams {
			emitted = append(emitted, c.Fold(&wire.Message{Answer: d})...)
		}
		return emitted
	}

	expectEntry := func(emitted []*ServiceEntry) {
		Expect(emitted).To(HaveLen(1))

		e := emitted[0]
		Expect(e.Name).To(Equal("Instance._puupee._tcp.local."))
		Expect(e.Host).To(Equal("host.local."))
		Expect(e.Port).To(Equal(uint16(12056)))
		Expect(e.AddrsV4).To(HaveLen(1))
		Expect(e.AddrsV4[0].Equal(net.ParseIP("192.0.2.5"))).To(BeTrue())
		Expect(e.InfoFields).To(Equal([]string{"path=/api"}))
		Expect(e.Info).To(Equal("path=/api"))
	}

	Describe("merge", func() {
		It("assembles one entry from a single datagram", func() {
			expectEntry(feed(records))
		})

		It("assembles the same entry from two datagrams", func() {
			expectEntry(feed(records[:2], records[2:]))
		})

		It("assembles the same entry from four datagrams", func() {
			expectEntry(feed(
				records[0:1],
				records[1:2],
				records[2:3],
				records[3:4],
			))
		})

		It("correlates records arriving under the PTR name with those arriving under the target", func() {
			// The SRV here is keyed by the service address, which the PTR
			// aliased to the instance's entry.
			expectEntry(feed([]wire.RR{
				ptr("_puupee._tcp.local.", "Instance._puupee._tcp.local."),
				srv("_puupee._tcp.local.", "host.local.", 12056),
				a("host.local.", net.ParseIP("192.0.2.5")),
				txt("Instance._puupee._tcp.local.", "path=/api"),
			}))
		})

		It("compares names case-insensitively", func() {
			expectEntry(feed([]wire.RR{
				ptr("_puupee._tcp.local.", "Instance._puupee._tcp.local."),
				srv("INSTANCE._PUUPEE._TCP.LOCAL.", "host.local.", 12056),
				a("HOST.LOCAL.", net.ParseIP("192.0.2.5")),
				txt("instance._puupee._tcp.local.", "path=/api"),
			}))
		})
	})

	Describe("single emission", func() {
		It("does not emit a second time when duplicate records arrive after completion", func() {
			expectEntry(feed(records))
			Expect(feed(records)).To(BeEmpty())
		})

		It("does not mutate an entry visibly after it has been emitted", func() {
			emitted := feed(records)
			Expect(emitted).To(HaveLen(1))

			feed([]wire.RR{
				srv("Instance._puupee._tcp.local.", "elsewhere.local.", 1),
				a("host.local.", net.ParseIP("198.51.100.9")),
			})

			Expect(emitted[0].Host).To(Equal("host.local."))
			Expect(emitted[0].Port).To(Equal(uint16(12056)))
			Expect(emitted[0].AddrsV4).To(HaveLen(1))
		})
	})

	Describe("matcher", func() {
		It("does not emit an instance of an unrelated service in the same domain", func() {
			emitted := feed([]wire.RR{
				ptr("_other._tcp.local.", "Rogue._other._tcp.local."),
				srv("Rogue._other._tcp.local.", "rogue.local.", 9),
				a("rogue.local.", net.ParseIP("203.0.113.7")),
				txt("Rogue._other._tcp.local.", "x=y"),
			})
			Expect(emitted).To(BeEmpty())
		})

		It("accepts a name whose first label is the instance label", func() {
			Expect(c.matches("Instance._puupee._tcp.local.")).To(BeTrue())
			Expect(c.matches("_puupee._tcp.local.")).To(BeTrue())
			Expect(c.matches("Rogue._other._tcp.local.")).To(BeFalse())
		})
	})

	Describe("address propagation", func() {
		It("populates every entry sharing the hostname from a single address record", func() {
			emitted := feed([]wire.RR{
				ptr("_puupee._tcp.local.", "One._puupee._tcp.local."),
				ptr("_puupee._tcp.local.", "Two._puupee._tcp.local."),
				srv("One._puupee._tcp.local.", "host.local.", 1111),
				srv("Two._puupee._tcp.local.", "host.local.", 2222),
				txt("One._puupee._tcp.local.", "n=1"),
				txt("Two._puupee._tcp.local.", "n=2"),
				a("host.local.", net.ParseIP("192.0.2.5")),
			})

			Expect(emitted).To(HaveLen(2))
			for _, e := range emitted {
				Expect(e.AddrsV4).To(HaveLen(1))
				Expect(e.AddrsV4[0].Equal(net.ParseIP("192.0.2.5"))).To(BeTrue())
			}
		})
	})

	Describe("irrelevant records", func() {
		It("ignores NSEC and unknown record types", func() {
			emitted := feed([]wire.RR{
				{
					Name:  mustName("host.local."),
					Type:  wire.TypeNSEC,
					Class: wire.ClassINET,
					TTL:   120,
					Data:  &wire.NSECRecord{NextName: mustName("host.local.")},
				},
				{
					Name:  mustName("host.local."),
					Type:  9999,
					Class: wire.ClassINET,
					TTL:   120,
					Data:  &wire.UnknownRecord{RRType: 9999, RData: []byte{1}},
				},
			})
			Expect(emitted).To(BeEmpty())
			expectEntry(feed(records))
		})
	})
})
