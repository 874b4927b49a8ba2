package wire

import "fmt"

// PTRRecord is the body of a PTR record: a single domain name target.
type PTRRecord struct {
	Target Name
}

func (r *PTRRecord) Type() uint16 { return TypePTR }

func (r *PTRRecord) pack(e *encoder) error {
	return e.writeName(r.Target)
}

// SRVRecord is the body of an SRV record (RFC 2782).
type SRVRecord struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   Name
}

func (r *SRVRecord) Type() uint16 { return TypeSRV }

func (r *SRVRecord) pack(e *encoder) error {
	e.writeUint16(r.Priority)
	e.writeUint16(r.Weight)
	e.writeUint16(r.Port)
	return e.writeName(r.Target)
}

// TXTRecord is the body of a TXT record: an ordered list of length-prefixed
// character strings, each at most 255 bytes.
type TXTRecord struct {
	Strings [][]byte
}

func (r *TXTRecord) Type() uint16 { return TypeTXT }

func (r *TXTRecord) pack(e *encoder) error {
	for _, s := range r.Strings {
		if len(s) > 255 {
			return fmt.Errorf("%w: txt string exceeds 255 bytes", ErrMalformedMessage)
		}
		e.writeUint8(uint8(len(s)))
		e.writeBytes(s)
	}
	return nil
}

// ARecord is the body of an A record: an IPv4 address.
type ARecord struct {
	Addr [4]byte
}

func (r *ARecord) Type() uint16 { return TypeA }

func (r *ARecord) pack(e *encoder) error {
	e.writeBytes(r.Addr[:])
	return nil
}

// AAAARecord is the body of an AAAA record: an IPv6 address.
type AAAARecord struct {
	Addr [16]byte
}

func (r *AAAARecord) Type() uint16 { return TypeAAAA }

func (r *AAAARecord) pack(e *encoder) error {
	e.writeBytes(r.Addr[:])
	return nil
}

// NSECBlock is one type-bitmap window block of an NSEC record, as described
// by RFC 4034 section 4.1.2. The bitmap is retained verbatim; this codec
// never needs to interpret which types it asserts, only to skip it.
type NSECBlock struct {
	Window    uint8
	BitmapLen uint8
	Bitmap    []byte
}

// NSECRecord is the body of an NSEC record. It is decoded so that it can be
// recognised and skipped; it can be packed again, but nothing else in this
// module builds one to send.
type NSECRecord struct {
	NextName Name
	Blocks   []NSECBlock
}

func (r *NSECRecord) Type() uint16 { return TypeNSEC }

func (r *NSECRecord) pack(e *encoder) error {
	if err := e.writeName(r.NextName); err != nil {
		return err
	}
	for _, b := range r.Blocks {
		e.writeUint8(b.Window)
		e.writeUint8(b.BitmapLen)
		e.writeBytes(b.Bitmap)
	}
	return nil
}

// UnknownRecord is the body of a record type this codec does not interpret.
// Its RDATA is retained opaquely and is never re-synthesised on send.
type UnknownRecord struct {
	RRType uint16
	RData  []byte
}

func (r *UnknownRecord) Type() uint16 { return r.RRType }

func (r *UnknownRecord) pack(e *encoder) error {
	e.writeBytes(r.RData)
	return nil
}

// unpackRData decodes the RDATA of a record of the given type, found
// between off and end within d.msg, dispatching on rtype. Unknown types are
// retained as opaque bytes rather than rejected.
func unpackRData(d *decoder, rtype uint16, off, end int) (RData, int, error) {
	switch rtype {
	case TypePTR:
		name, next, err := d.readName(off)
		if err != nil {
			return nil, 0, err
		}
		return &PTRRecord{Target: name}, next, nil

	case TypeSRV:
		priority, cur, err := d.readUint16(off)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: truncated srv record", ErrMalformedMessage)
		}
		weight, cur, err := d.readUint16(cur)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: truncated srv record", ErrMalformedMessage)
		}
		port, cur, err := d.readUint16(cur)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: truncated srv record", ErrMalformedMessage)
		}
		target, next, err := d.readName(cur)
		if err != nil {
			return nil, 0, err
		}
		return &SRVRecord{Priority: priority, Weight: weight, Port: port, Target: target}, next, nil

	case TypeTXT:
		var strs [][]byte
		cur := off
		for cur < end {
			length, next, err := d.readUint8(cur)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: truncated txt record", ErrMalformedMessage)
			}
			s, next, err := d.readBytes(next, int(length))
			if err != nil {
				return nil, 0, fmt.Errorf("%w: truncated txt record", ErrMalformedMessage)
			}
			strs = append(strs, append([]byte(nil), s...))
			cur = next
		}
		if cur != end {
			return nil, 0, fmt.Errorf("%w: txt record length mismatch", ErrMalformedMessage)
		}
		return &TXTRecord{Strings: strs}, cur, nil

	case TypeA:
		b, next, err := d.readBytes(off, 4)
		if err != nil || next != end {
			return nil, 0, fmt.Errorf("%w: malformed a record", ErrMalformedMessage)
		}
		var a ARecord
		copy(a.Addr[:], b)
		return &a, next, nil

	case TypeAAAA:
		b, next, err := d.readBytes(off, 16)
		if err != nil || next != end {
			return nil, 0, fmt.Errorf("%w: malformed aaaa record", ErrMalformedMessage)
		}
		var a AAAARecord
		copy(a.Addr[:], b)
		return &a, next, nil

	case TypeNSEC:
		nextName, cur, err := d.readName(off)
		if err != nil {
			return nil, 0, err
		}

		var blocks []NSECBlock
		for cur < end {
			window, c2, err := d.readUint8(cur)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: truncated nsec block", ErrMalformedMessage)
			}
			bitmapLen, c3, err := d.readUint8(c2)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: truncated nsec block", ErrMalformedMessage)
			}
			bitmap, c4, err := d.readBytes(c3, int(bitmapLen))
			if err != nil {
				return nil, 0, fmt.Errorf("%w: truncated nsec block", ErrMalformedMessage)
			}

			// Blocks this codec does not recognise (any window index, any
			// bitmap length) are kept verbatim rather than rejected.
			blocks = append(blocks, NSECBlock{
				Window:    window,
				BitmapLen: bitmapLen,
				Bitmap:    append([]byte(nil), bitmap...),
			})
			cur = c4
		}
		if cur != end {
			return nil, 0, fmt.Errorf("%w: nsec record length mismatch", ErrMalformedMessage)
		}

		return &NSECRecord{NextName: nextName, Blocks: blocks}, cur, nil

	default:
		b, next, err := d.readBytes(off, end-off)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: truncated rdata", ErrMalformedMessage)
		}
		return &UnknownRecord{RRType: rtype, RData: append([]byte(nil), b...)}, next, nil
	}
}
