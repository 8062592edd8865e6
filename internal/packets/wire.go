package packets

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf16"
)

// ErrTruncated is returned when a packet body ends before the layout for
// its opcode has been fully consumed. The connection that produced it
// cannot be trusted to stay in sync and should be dropped.
var ErrTruncated = errors.New("packet truncated")

// reader consumes a packet body field by field. Errors are sticky: once a
// read runs past the end of the buffer every subsequent read returns the
// zero value and err stays set.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) int8() int8 { return int8(r.uint8()) }

func (r *reader) uint16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) int16() int16 { return int16(r.uint16()) }

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) int32() int32 { return int32(r.uint32()) }

func (r *reader) uint64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) int64() int64 { return int64(r.uint64()) }

func (r *reader) float32() float32 { return math.Float32frombits(r.uint32()) }

// astring reads a fixed-width NUL-padded ASCII field of n bytes.
func (r *reader) astring(n int) string {
	b := r.bytes(n)
	if b == nil {
		return ""
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// wstring reads a fixed-width NUL-padded UTF-16LE field of n code units.
func (r *reader) wstring(n int) string {
	b := r.bytes(2 * n)
	if b == nil {
		return ""
	}
	units := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		u := binary.LittleEndian.Uint16(b[2*i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// writer builds a packet body. Writes never fail; fixed-width string fields
// are truncated to their wire width.
type writer struct {
	buf []byte
}

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) int8(v int8) { w.uint8(uint8(v)) }

func (w *writer) uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) int16(v int16) { w.uint16(uint16(v)) }

func (w *writer) uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) int32(v int32) { w.uint32(uint32(v)) }

func (w *writer) uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) int64(v int64) { w.uint64(uint64(v)) }

func (w *writer) float32(v float32) { w.uint32(math.Float32bits(v)) }

func (w *writer) astring(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	b[n-1] = 0
	w.bytes(b)
}

func (w *writer) wstring(s string, n int) {
	units := utf16.Encode([]rune(s))
	if len(units) > n-1 {
		units = units[:n-1]
	}
	b := make([]byte, 2*n)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	w.bytes(b)
}

// Sub-byte fields are packed LSB-first within little-endian words, matching
// the MSVC bitfield allocation used by the client binary.

func getBits(word uint32, offset, width uint) uint32 {
	return (word >> offset) & (1<<width - 1)
}

func setBits(word, value uint32, offset, width uint) uint32 {
	mask := uint32(1<<width-1) << offset
	return (word &^ mask) | (value << offset & mask)
}

func getFlag(word uint32, offset uint) bool {
	return getBits(word, offset, 1) != 0
}

func setFlag(word uint32, value bool, offset uint) uint32 {
	if value {
		return setBits(word, 1, offset, 1)
	}
	return setBits(word, 0, offset, 1)
}
