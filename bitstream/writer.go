// Package bitstream implements the reverse bit stream shared by the FSE and
// Huffman codecs.
//
// Bits are written from the low end of a 64 bit container upwards and
// stored little endian. A single 1 bit closes the stream, so the last byte
// of a stream is never zero. The Reader starts at the end of the buffer and
// returns the bits in the opposite order they were added.
package bitstream

import (
	"slices"

	"github.com/ansflex/ansflex/internal/le"
)

// Writer accumulates bits and appends whole bytes to an output slice.
// The zero value writes to a nil slice.
type Writer struct {
	bitContainer uint64
	nBits        uint8
	out          []byte
}

// bitMask64 masks off anything above n bits. Has extra to avoid bounds check.
var bitMask64 = func() (m [64]uint64) {
	for i := range m {
		m[i] = 1<<uint(i) - 1
	}
	return m
}()

// Reset the writer and continue by appending to out.
func (w *Writer) Reset(out []byte) {
	w.bitContainer = 0
	w.nBits = 0
	w.out = out
}

// AddBits adds the low n bits of value.
// The container must have room: pending bits plus n cannot exceed 64.
func (w *Writer) AddBits(value uint64, n uint8) {
	w.bitContainer |= (value & bitMask64[n&63]) << (w.nBits & 63)
	w.nBits += n
}

// AddBitsFast adds n bits of value.
// value must not have any bits set above n.
func (w *Writer) AddBitsFast(value uint64, n uint8) {
	w.bitContainer |= value << (w.nBits & 63)
	w.nBits += n
}

// FlushFast writes all whole bytes in the container.
// Eight bytes are always stored, but the output only grows by
// the number of whole bytes. Up to 7 bits remain.
func (w *Writer) FlushFast() {
	n := len(w.out)
	w.out = slices.Grow(w.out, 8)
	le.Store64(w.out[n:n+8], w.bitContainer)
	nbBytes := w.nBits >> 3
	w.out = w.out[:n+int(nbBytes)]
	w.bitContainer >>= nbBytes * 8
	w.nBits &= 7
}

// Flush writes all whole bytes in the container, one at a time.
func (w *Writer) Flush() {
	for w.nBits >= 8 {
		w.out = append(w.out, byte(w.bitContainer))
		w.bitContainer >>= 8
		w.nBits -= 8
	}
}

// Len returns the number of bytes written so far.
// Bits still held in the container are not included.
func (w *Writer) Len() int {
	return len(w.out)
}

// Close adds the end mark, flushes everything and returns the output.
func (w *Writer) Close() []byte {
	w.AddBits(1, 1)
	w.FlushFast()
	if w.nBits > 0 {
		w.out = append(w.out, byte(w.bitContainer))
		w.bitContainer = 0
		w.nBits = 0
	}
	return w.out
}
