package wire

import "fmt"

// Resource record types supported by this codec. Other types are decoded as
// UnknownRecord and never synthesised on send.
const (
	TypeA     uint16 = 1
	TypePTR   uint16 = 12
	TypeTXT   uint16 = 16
	TypeAAAA  uint16 = 28
	TypeSRV   uint16 = 33
	TypeNSEC  uint16 = 47
	TypeANY   uint16 = 255
	ClassINET uint16 = 1
)

// classMask isolates the low 15 bits of a class field, i.e. the actual DNS
// class once the QU/cache-flush bit overload described in RFC 6762 section
// 18.12/18.13 has been masked off.
const classMask = 0x7FFF

// flagBit is the shared high-bit overload: "unicast response requested" on
// a question, "cache-flush" on an answer.
const flagBit = 0x8000

// Header is the 12-byte fixed preamble of a DNS message.
type Header struct {
	ID                 uint16
	Response           bool
	Opcode             uint8
	Authoritative      bool
	Truncated          bool
	RecursionDesired   bool
	RecursionAvailable bool
	Zero               bool
	AuthenticatedData  bool
	CheckingDisabled   bool
	RCode              uint8
}

func (h Header) pack(e *encoder, qd, an, ns, ar uint16) {
	e.writeUint16(h.ID)

	var flags uint16
	if h.Response {
		flags |= 1 << 15
	}
	flags |= uint16(h.Opcode&0xF) << 11
	if h.Authoritative {
		flags |= 1 << 10
	}
	if h.Truncated {
		flags |= 1 << 9
	}
	if h.RecursionDesired {
		flags |= 1 << 8
	}
	if h.RecursionAvailable {
		flags |= 1 << 7
	}
	if h.Zero {
		flags |= 1 << 6
	}
	if h.AuthenticatedData {
		flags |= 1 << 5
	}
	if h.CheckingDisabled {
		flags |= 1 << 4
	}
	flags |= uint16(h.RCode & 0xF)

	e.writeUint16(flags)
	e.writeUint16(qd)
	e.writeUint16(an)
	e.writeUint16(ns)
	e.writeUint16(ar)
}

func unpackHeader(d *decoder) (Header, int, int, int, int, int, error) {
	id, off, err := d.readUint16(0)
	if err != nil {
		return Header{}, 0, 0, 0, 0, 0, fmt.Errorf("%w: truncated header", ErrMalformedMessage)
	}

	flags, off, err := d.readUint16(off)
	if err != nil {
		return Header{}, 0, 0, 0, 0, 0, fmt.Errorf("%w: truncated header", ErrMalformedMessage)
	}

	qd, off, err := d.readUint16(off)
	if err != nil {
		return Header{}, 0, 0, 0, 0, 0, fmt.Errorf("%w: truncated header", ErrMalformedMessage)
	}
	an, off, err := d.readUint16(off)
	if err != nil {
		return Header{}, 0, 0, 0, 0, 0, fmt.Errorf("%w: truncated header", ErrMalformedMessage)
	}
	ns, off, err := d.readUint16(off)
	if err != nil {
		return Header{}, 0, 0, 0, 0, 0, fmt.Errorf("%w: truncated header", ErrMalformedMessage)
	}
	ar, off, err := d.readUint16(off)
	if err != nil {
		return Header{}, 0, 0, 0, 0, 0, fmt.Errorf("%w: truncated header", ErrMalformedMessage)
	}

	h := Header{
		ID:                 id,
		Response:           flags&(1<<15) != 0,
		Opcode:             uint8((flags >> 11) & 0xF),
		Authoritative:      flags&(1<<10) != 0,
		Truncated:          flags&(1<<9) != 0,
		RecursionDesired:   flags&(1<<8) != 0,
		RecursionAvailable: flags&(1<<7) != 0,
		Zero:               flags&(1<<6) != 0,
		AuthenticatedData:  flags&(1<<5) != 0,
		CheckingDisabled:   flags&(1<<4) != 0,
		RCode:              uint8(flags & 0xF),
	}

	return h, int(qd), int(an), int(ns), int(ar), off, nil
}

// Question is one entry of a message's question section. Class carries the
// QU bit (bit 15) in addition to the DNS class (low 15 bits); use QClass and
// Unicast to interpret it.
type Question struct {
	Name  Name
	Type  uint16
	Class uint16
}

// QClass returns the DNS class of the question, with the QU bit masked off.
func (q Question) QClass() uint16 {
	return q.Class & classMask
}

// Unicast reports whether the question requested a unicast response (the QU
// bit, RFC 6762 section 18.12).
func (q Question) Unicast() bool {
	return q.Class&flagBit != 0
}

// WithUnicast returns a copy of q with the QU bit set or cleared.
func (q Question) WithUnicast(u bool) Question {
	if u {
		q.Class |= flagBit
	} else {
		q.Class &^= flagBit
	}
	return q
}

// RR is a single resource record: a name/type/class/ttl preamble plus a
// typed body. Class carries the cache-flush bit (bit 15) on answers; use
// QClass and CacheFlush to interpret it.
type RR struct {
	Name  Name
	Type  uint16
	Class uint16
	TTL   uint32
	Data  RData
}

// QClass returns the DNS class of the record, with the cache-flush bit
// masked off.
func (r RR) QClass() uint16 {
	return r.Class & classMask
}

// CacheFlush reports whether the record's cache-flush bit (RFC 6762 section
// 18.13) is set.
func (r RR) CacheFlush() bool {
	return r.Class&flagBit != 0
}

// WithCacheFlush returns a copy of r with the cache-flush bit set or
// cleared.
func (r RR) WithCacheFlush(f bool) RR {
	if f {
		r.Class |= flagBit
	} else {
		r.Class &^= flagBit
	}
	return r
}

// RData is the typed body of a resource record.
type RData interface {
	// Type returns the RR type this body encodes, for dispatch.
	Type() uint16

	// pack appends the wire-format RDATA to e.
	pack(e *encoder) error
}

// Message is a DNS message: a header and its four sections.
type Message struct {
	Header     Header
	Question   []Question
	Answer     []RR
	Authority  []RR
	Additional []RR
}

// Pack encodes m to its wire form, compressing names wherever a suffix has
// already appeared earlier in the message.
func (m *Message) Pack() ([]byte, error) {
	e := newEncoder()

	m.Header.pack(
		e,
		uint16(len(m.Question)),
		uint16(len(m.Answer)),
		uint16(len(m.Authority)),
		uint16(len(m.Additional)),
	)

	for _, q := range m.Question {
		if err := e.writeName(q.Name); err != nil {
			return nil, err
		}
		e.writeUint16(q.Type)
		e.writeUint16(q.Class)
	}

	for _, section := range [][]RR{m.Answer, m.Authority, m.Additional} {
		for _, rr := range section {
			if err := packRR(e, rr); err != nil {
				return nil, err
			}
		}
	}

	return e.buf, nil
}

func packRR(e *encoder, rr RR) error {
	if err := e.writeName(rr.Name); err != nil {
		return err
	}

	e.writeUint16(rr.Type)
	e.writeUint16(rr.Class)
	e.writeUint32(rr.TTL)

	lenOff := e.reserveUint16()
	dataStart := e.offset()

	if err := rr.Data.pack(e); err != nil {
		return err
	}

	rdlen := e.offset() - dataStart
	if rdlen > 0xFFFF {
		return fmt.Errorf("%w: rdata for %s exceeds 65535 bytes", ErrMalformedMessage, rr.Name)
	}
	e.patchUint16(lenOff, uint16(rdlen))

	return nil
}

// Unpack decodes buf as a DNS message. Any failure, including a truncated
// header, an out-of-range section count, or a malformed name or RDATA,
// returns a wrapped ErrMalformedMessage or ErrMalformedName; callers are
// expected to silently discard the datagram on error.
func Unpack(buf []byte) (*Message, error) {
	d := &decoder{msg: buf}

	h, qd, an, ns, ar, off, err := unpackHeader(d)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: h}

	for i := 0; i < qd; i++ {
		var q Question
		q.Name, off, err = d.readName(off)
		if err != nil {
			return nil, err
		}
		q.Type, off, err = d.readUint16(off)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated question", ErrMalformedMessage)
		}
		q.Class, off, err = d.readUint16(off)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated question", ErrMalformedMessage)
		}
		m.Question = append(m.Question, q)
	}

	for _, dest := range []struct {
		count int
		out   *[]RR
	}{
		{an, &m.Answer},
		{ns, &m.Authority},
		{ar, &m.Additional},
	} {
		for i := 0; i < dest.count; i++ {
			var rr RR
			rr, off, err = unpackRR(d, off)
			if err != nil {
				return nil, err
			}
			*dest.out = append(*dest.out, rr)
		}
	}

	return m, nil
}

func unpackRR(d *decoder, off int) (RR, int, error) {
	var (
		rr  RR
		err error
	)

	rr.Name, off, err = d.readName(off)
	if err != nil {
		return RR{}, 0, err
	}

	rr.Type, off, err = d.readUint16(off)
	if err != nil {
		return RR{}, 0, fmt.Errorf("%w: truncated rr preamble", ErrMalformedMessage)
	}
	rr.Class, off, err = d.readUint16(off)
	if err != nil {
		return RR{}, 0, fmt.Errorf("%w: truncated rr preamble", ErrMalformedMessage)
	}
	rr.TTL, off, err = d.readUint32(off)
	if err != nil {
		return RR{}, 0, fmt.Errorf("%w: truncated rr preamble", ErrMalformedMessage)
	}

	rdlen, off, err := d.readUint16(off)
	if err != nil {
		return RR{}, 0, fmt.Errorf("%w: truncated rr preamble", ErrMalformedMessage)
	}

	rdataEnd := off + int(rdlen)
	if rdataEnd > len(d.msg) {
		return RR{}, 0, fmt.Errorf("%w: rdata runs past end of message", ErrMalformedMessage)
	}

	data, next, err := unpackRData(d, rr.Type, off, rdataEnd)
	if err != nil {
		return RR{}, 0, err
	}
	if next != rdataEnd {
		return RR{}, 0, fmt.Errorf("%w: rdata length mismatch for type %d", ErrMalformedMessage, rr.Type)
	}

	rr.Data = data
	return rr, rdataEnd, nil
}
