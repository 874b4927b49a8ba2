package wire

import "encoding/binary"

// encoder accumulates the wire-format bytes of a message being built,
// tracking a compression table of names already written so that later
// occurrences of the same suffix can be replaced with a two-byte pointer.
type encoder struct {
	buf      []byte
	compress map[string]int
}

func newEncoder() *encoder {
	return &encoder{compress: map[string]int{}}
}

func (e *encoder) offset() int {
	return len(e.buf)
}

func (e *encoder) writeUint8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *encoder) writeUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

func (e *encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) writeBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// reserveUint16 appends a placeholder uint16 and returns its offset, so that
// a length field can be patched in once the bytes it measures are known.
func (e *encoder) reserveUint16() int {
	off := e.offset()
	e.writeUint16(0)
	return off
}

func (e *encoder) patchUint16(off int, v uint16) {
	binary.BigEndian.PutUint16(e.buf[off:off+2], v)
}

// decoder reads values from a fixed DNS message buffer. Unlike encoder, it
// carries no state beyond the buffer itself; callers track their own cursor
// because names require the reader to jump backwards via compression
// pointers while everything else is read strictly in order.
type decoder struct {
	msg []byte
}

func (d *decoder) readUint8(off int) (uint8, int, error) {
	if off+1 > len(d.msg) {
		return 0, 0, ErrMalformedMessage
	}
	return d.msg[off], off + 1, nil
}

func (d *decoder) readUint16(off int) (uint16, int, error) {
	if off+2 > len(d.msg) {
		return 0, 0, ErrMalformedMessage
	}
	return binary.BigEndian.Uint16(d.msg[off : off+2]), off + 2, nil
}

func (d *decoder) readUint32(off int) (uint32, int, error) {
	if off+4 > len(d.msg) {
		return 0, 0, ErrMalformedMessage
	}
	return binary.BigEndian.Uint32(d.msg[off : off+4]), off + 4, nil
}

func (d *decoder) readBytes(off, n int) ([]byte, int, error) {
	if n < 0 || off+n > len(d.msg) {
		return nil, 0, ErrMalformedMessage
	}
	return d.msg[off : off+n], off + n, nil
}
