// Package bufwriter provides the small seekable byte-buffer abstraction the
// emitters need for the "compute the size, then serialize with back-patches"
// pattern used throughout DSX/MNM/MNS. It generalizes the direct
// bytes.Buffer usage of the reference song compiler into a single reusable
// type shared by every emitter, since more than one of them now needs to
// seek backward and patch a header after the body is known.
package bufwriter

import "encoding/binary"

// Writer is an in-memory, seekable output buffer. Unlike bytes.Buffer it
// supports overwriting already-written bytes via Seek, which the MNM and
// MNS headers require.
type Writer struct {
	buf []byte
	pos int
}

// New returns an empty Writer with capacity pre-allocated for size bytes.
func New(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

func (w *Writer) grow(n int) {
	end := w.pos + n
	if end <= len(w.buf) {
		return
	}
	if end > cap(w.buf) {
		nb := make([]byte, end, end*2+16)
		copy(nb, w.buf)
		w.buf = nb
	} else {
		w.buf = w.buf[:end]
	}
}

// WriteBytes appends p at the current position, overwriting any bytes
// already there.
func (w *Writer) WriteBytes(p []byte) {
	w.grow(len(p))
	copy(w.buf[w.pos:], p)
	w.pos += len(p)
}

// WriteText appends s as raw bytes, for assembling textual output formats.
func (w *Writer) WriteText(s string) {
	w.WriteBytes([]byte(s))
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v byte) {
	w.WriteBytes([]byte{v})
}

// WriteU16 appends v little-endian.
func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.WriteBytes(b[:])
}

// WriteU32 appends v little-endian.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.WriteBytes(b[:])
}

// Seek repositions the write cursor to an absolute offset. It never
// truncates the buffer; seeking past the end and writing will zero-fill the
// gap.
func (w *Writer) Seek(offset int) {
	if offset < 0 {
		offset = 0
	}
	w.pos = offset
	if offset > len(w.buf) {
		w.grow(0)
		nb := make([]byte, offset, offset*2+16)
		copy(nb, w.buf)
		w.buf = nb
	}
}

// Tell returns the current write cursor position.
func (w *Writer) Tell() int {
	return w.pos
}

// Len returns the total number of bytes written so far (the high-water
// mark, not the cursor position).
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}
