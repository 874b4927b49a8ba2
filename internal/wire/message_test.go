package wire_test

import (
	"github.com/jmalloc/mdnssd/internal/wire"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Message", func() {
	mustName := func(s string) wire.Name {
		n, err := wire.ParseName(s)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	Describe("round trip", func() {
		It("decodes exactly what it encoded for every supported record type", func() {
			m := &wire.Message{
				Header: wire.Header{
					ID:            0x1234,
					Authoritative: true,
				},
				Question: []wire.Question{
					{
						Name:  mustName("_http._tcp.local."),
						Type:  wire.TypePTR,
						Class: wire.ClassINET,
					},
				},
				Answer: []wire.RR{
					{
						Name:  mustName("_http._tcp.local."),
						Type:  wire.TypePTR,
						Class: wire.ClassINET,
						TTL:   4500,
						Data:  &wire.PTRRecord{Target: mustName("Instance._http._tcp.local.")},
					},
					{
						Name:  mustName("Instance._http._tcp.local."),
						Type:  wire.TypeSRV,
						Class: wire.ClassINET,
						TTL:   120,
						Data: &wire.SRVRecord{
							Priority: 0,
							Weight:   0,
							Port:     8080,
							Target:   mustName("host.local."),
						},
					},
					{
						Name:  mustName("Instance._http._tcp.local."),
						Type:  wire.TypeTXT,
						Class: wire.ClassINET,
						TTL:   120,
						Data:  &wire.TXTRecord{Strings: [][]byte{[]byte("path=/api"), []byte("v=1")}},
					},
					{
						Name:  mustName("host.local."),
						Type:  wire.TypeA,
						Class: wire.ClassINET,
						TTL:   120,
						Data:  &wire.ARecord{Addr: [4]byte{192, 0, 2, 5}},
					},
					{
						Name:  mustName("host.local."),
						Type:  wire.TypeAAAA,
						Class: wire.ClassINET,
						TTL:   120,
						Data: &wire.AAAARecord{Addr: [16]byte{
							0x20, 0x01, 0x0d, 0xb8,
							0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x05,
						}},
					},
					{
						Name:  mustName("host.local."),
						Type:  wire.TypeNSEC,
						Class: wire.ClassINET,
						TTL:   4500,
						Data: &wire.NSECRecord{
							NextName: mustName("zzz.local."),
							Blocks: []wire.NSECBlock{
								{Window: 0, BitmapLen: 1, Bitmap: []byte{0x40}},
							},
						},
					},
				},
			}

			buf, err := m.Pack()
			Expect(err).NotTo(HaveOccurred())

			got, err := wire.Unpack(buf)
			Expect(err).NotTo(HaveOccurred())

			Expect(got.Header.ID).To(Equal(m.Header.ID))
			Expect(got.Header.Authoritative).To(BeTrue())
			Expect(got.Question).To(Equal(m.Question))
			Expect(got.Answer).To(Equal(m.Answer))
		})
	})

	Describe("unknown record types", func() {
		It("is skipped and retained opaquely rather than rejected", func() {
			m := &wire.Message{
				Answer: []wire.RR{
					{
						Name:  mustName("local."),
						Type:  9999,
						Class: wire.ClassINET,
						TTL:   60,
						Data:  &wire.UnknownRecord{RRType: 9999, RData: []byte{1, 2, 3}},
					},
				},
			}

			buf, err := m.Pack()
			Expect(err).NotTo(HaveOccurred())

			got, err := wire.Unpack(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Answer).To(HaveLen(1))
			Expect(got.Answer[0].Data).To(Equal(&wire.UnknownRecord{RRType: 9999, RData: []byte{1, 2, 3}}))
		})
	})

	Describe("class field bit overloads", func() {
		It("masks the QU bit off a question's class and exposes it via Unicast", func() {
			q := wire.Question{Name: mustName("local."), Type: wire.TypePTR, Class: wire.ClassINET}
			q = q.WithUnicast(true)

			Expect(q.Unicast()).To(BeTrue())
			Expect(q.QClass()).To(Equal(wire.ClassINET))
		})

		It("masks the cache-flush bit off an answer's class and exposes it via CacheFlush", func() {
			rr := wire.RR{Name: mustName("local."), Type: wire.TypeA, Class: wire.ClassINET}
			rr = rr.WithCacheFlush(true)

			Expect(rr.CacheFlush()).To(BeTrue())
			Expect(rr.QClass()).To(Equal(wire.ClassINET))
		})
	})

	Describe("malformed input", func() {
		It("fails to decode a truncated header", func() {
			_, err := wire.Unpack([]byte{0x00, 0x01})
			Expect(err).To(MatchError(wire.ErrMalformedMessage))
		})

		It("fails to decode a message with a section count that overruns the buffer", func() {
			m := &wire.Message{
				Question: []wire.Question{
					{Name: mustName("local."), Type: wire.TypePTR, Class: wire.ClassINET},
				},
			}
			buf, err := m.Pack()
			Expect(err).NotTo(HaveOccurred())

			_, err = wire.Unpack(buf[:len(buf)-3])
			Expect(err).To(HaveOccurred())
		})
	})
})
