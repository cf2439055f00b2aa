// Package cdr reads and writes the OMG CDR encoding used for ROS 2 style
// messages on the bus. Payloads start with a 4 byte encapsulation header and
// primitives are aligned to their own size, counted from the end of that
// header.
package cdr

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrShortBuffer      = errors.New("cdr: short buffer")
	ErrBadEncapsulation = errors.New("cdr: unsupported encapsulation")
	ErrInvalidString    = errors.New("cdr: invalid string")
	ErrSequenceTooLong  = errors.New("cdr: sequence longer than payload")
)

var (
	encapsulationBE = [2]byte{0x00, 0x00}
	encapsulationLE = [2]byte{0x00, 0x01}
)

const headerLen = 4

// Reader decodes one CDR payload. The first error sticks; later reads
// return zero values and Err reports it.
type Reader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	err   error
}

func NewReader(payload []byte) (*Reader, error) {
	if len(payload) < headerLen {
		return nil, errors.Wrapf(ErrShortBuffer, "%d byte payload", len(payload))
	}
	r := &Reader{buf: payload[headerLen:]}
	switch [2]byte{payload[0], payload[1]} {
	case encapsulationLE:
		r.order = binary.LittleEndian
	case encapsulationBE:
		r.order = binary.BigEndian
	default:
		return nil, errors.Wrapf(ErrBadEncapsulation, "% x", payload[:2])
	}
	return r, nil
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

func (r *Reader) next(align, n int) []byte {
	if r.err != nil {
		return nil
	}
	if align > 1 {
		if pad := r.pos % align; pad != 0 {
			r.pos += align - pad
		}
	}
	if r.pos+n > len(r.buf) {
		r.err = errors.Wrapf(ErrShortBuffer, "need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.next(1, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

func (r *Reader) Uint32() uint32 {
	b := r.next(4, 4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *Reader) Text() string {
	n := int(r.Uint32())
	if r.err != nil || n == 0 {
		return ""
	}
	b := r.next(1, n)
	if b == nil {
		return ""
	}
	if b[n-1] != 0 {
		r.err = errors.Wrapf(ErrInvalidString, "missing terminator at offset %d", r.pos-1)
		return ""
	}
	return string(b[:n-1])
}

// Length reads a sequence length and checks that at least n*minElem bytes
// are left for it.
func (r *Reader) Length(minElem int) int {
	n := int(r.Uint32())
	if r.err != nil {
		return 0
	}
	if n*minElem > r.Remaining() {
		r.err = errors.Wrapf(ErrSequenceTooLong, "%d elements of %d bytes", n, minElem)
		return 0
	}
	return n
}

// Bytes reads a sequence<uint8>. The result aliases the payload.
func (r *Reader) Bytes() []byte {
	n := r.Length(1)
	if r.err != nil {
		return nil
	}
	return r.next(1, n)
}

// Writer builds one CDR payload.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

func NewWriter(order binary.ByteOrder) *Writer {
	w := &Writer{buf: make([]byte, headerLen, 256), order: order}
	enc := encapsulationLE
	if order == binary.BigEndian {
		enc = encapsulationBE
	}
	copy(w.buf, enc[:])
	return w
}

func (w *Writer) align(n int) {
	for (len(w.buf)-headerLen)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
		return
	}
	w.Uint8(0)
}

func (w *Writer) Uint32(v uint32) {
	w.align(4)
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

func (w *Writer) Text(s string) {
	w.Uint32(uint32(len(s) + 1))
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

func (w *Writer) Bytes(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Payload returns the encoded message including the encapsulation header.
func (w *Writer) Payload() []byte {
	return w.buf
}
