package wire

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("name compression", func() {
	It("points a repeated suffix at its earlier offset", func() {
		e := newEncoder()

		Expect(e.writeName(Name{"foo", "local"})).To(Succeed())
		firstOffset := 0
		localOffset := firstOffset + 1 + len("foo")

		secondOffset := e.offset()
		Expect(e.writeName(Name{"bar", "local"})).To(Succeed())

		// "bar" is written in full, then "local." becomes a pointer.
		Expect(e.buf[secondOffset+1+len("bar"):]).To(Equal([]byte{0xC0, byte(localOffset)}))

		d := &decoder{msg: e.buf}
		got, _, err := d.readName(firstOffset)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(Name{"foo", "local"}))

		got, _, err = d.readName(secondOffset)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(Name{"bar", "local"}))
	})

	It("decodes a hand-crafted pointer into an earlier name to the same logical name", func() {
		e := newEncoder()
		Expect(e.writeName(Name{"instance", "_http", "_tcp", "local"})).To(Succeed())

		// Manually build a second name that points its "_http._tcp.local."
		// suffix at the offset recorded for it above, rather than relying
		// on writeName's own compression so the test is independent of it.
		off, ok := e.compress[Name{"_http", "_tcp", "local"}.key()]
		Expect(ok).To(BeTrue())

		start := e.offset()
		e.writeUint8(5)
		e.writeBytes([]byte("other"))
		e.writeUint16(0xC000 | uint16(off))

		d := &decoder{msg: e.buf}
		got, next, err := d.readName(start)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(Name{"other", "_http", "_tcp", "local"}))
		Expect(next).To(Equal(start + 1 + 5 + 2))
	})

	It("rejects a self-referential pointer without hanging", func() {
		buf := []byte{0xC0, 0x00} // points at itself
		d := &decoder{msg: buf}

		done := make(chan struct{})
		var err error
		go func() {
			_, _, err = d.readName(0)
			close(done)
		}()

		<-done
		Expect(err).To(MatchError(ErrMalformedName))
	})

	It("rejects a pointer chain that loops between two offsets", func() {
		// offset 0: pointer -> 2; offset 2: pointer -> 0
		buf := []byte{0xC0, 0x02, 0xC0, 0x00}
		d := &decoder{msg: buf}

		_, _, err := d.readName(0)
		Expect(err).To(MatchError(ErrMalformedName))
	})

	It("rejects a label that exceeds 63 bytes", func() {
		e := newEncoder()
		label := make([]byte, 64)
		for i := range label {
			label[i] = 'a'
		}
		err := e.writeName(Name{string(label), "local"})
		Expect(err).To(MatchError(ErrMalformedName))
	})

	It("rejects a name missing its terminator", func() {
		buf := []byte{3, 'f', 'o', 'o'} // no trailing zero byte
		d := &decoder{msg: buf}

		_, _, err := d.readName(0)
		Expect(err).To(MatchError(ErrMalformedName))
	})

	It("preserves label byte case on decode while Name.Equal compares case-insensitively", func() {
		e := newEncoder()
		Expect(e.writeName(Name{"Printer", "Local"})).To(Succeed())

		d := &decoder{msg: e.buf}
		got, _, err := d.readName(0)
		Expect(err).NotTo(HaveOccurred())

		Expect(got).To(Equal(Name{"Printer", "Local"}))
		Expect(got.Equal(Name{"printer", "local"})).To(BeTrue())
	})
})
