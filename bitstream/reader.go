package bitstream

import (
	"errors"
	"math/bits"

	"github.com/ansflex/ansflex/internal/le"
)

// ErrEndMarkMissing is returned when a stream does not end with the 1 bit
// written by Writer.Close.
var ErrEndMarkMissing = errors.New("bitstream: end mark missing")

// Status is the result of Reader.Reload.
type Status uint8

const (
	// Unfinished means at least 57 bits are available and
	// the buffer start has not been reached.
	Unfinished Status = iota
	// EndOfBuffer means the start of the buffer has been reached,
	// but not all bits have been consumed.
	EndOfBuffer
	// Completed means every bit has been consumed.
	Completed
	// Overflow means more bits were read than the stream holds.
	// This is the expected way for a decoder to find the last symbol.
	Overflow
)

func (s Status) String() string {
	switch s {
	case Unfinished:
		return "unfinished"
	case EndOfBuffer:
		return "end of buffer"
	case Completed:
		return "completed"
	case Overflow:
		return "overflow"
	}
	return "unknown"
}

// HighBit returns the position of the highest set bit in v.
// v must be > 0.
func HighBit(v uint32) uint32 {
	return uint32(bits.Len32(v)) - 1
}

// Reader reads a stream written by Writer in reverse.
type Reader struct {
	in       []byte
	off      int // value holds in[off:off+8], or the whole input when shorter.
	value    uint64
	bitsRead uint
}

// Init sets the reader to the end of in and skips the end mark.
func (r *Reader) Init(in []byte) error {
	if len(in) == 0 {
		return ErrEndMarkMissing
	}
	last := in[len(in)-1]
	if last == 0 {
		return ErrEndMarkMissing
	}
	r.in = in
	r.bitsRead = 8 - uint(HighBit(uint32(last)))
	if len(in) >= 8 {
		r.off = len(in) - 8
		r.value = le.Load64(in, r.off)
		return nil
	}
	r.off = 0
	r.value = 0
	for i, b := range in {
		r.value |= uint64(b) << (uint(i) * 8)
	}
	r.bitsRead += uint(8-len(in)) * 8
	return nil
}

// ReadBitsFast returns the next n bits. n must be at least 1.
func (r *Reader) ReadBitsFast(n uint8) uint64 {
	const regMask = 64 - 1
	v := (r.value << (r.bitsRead & regMask)) >> ((64 - uint(n)) & regMask)
	r.bitsRead += uint(n)
	return v
}

// ReadBits returns the next n bits. n may be 0.
func (r *Reader) ReadBits(n uint8) uint64 {
	const regMask = 64 - 1
	v := ((r.value << (r.bitsRead & regMask)) >> 1) >> ((regMask - uint(n)) & regMask)
	r.bitsRead += uint(n)
	return v
}

// PeekBits returns the next n bits without consuming them.
// n must be at least 1. Bits beyond the end of the stream read as zero.
func (r *Reader) PeekBits(n uint8) uint64 {
	const regMask = 64 - 1
	if r.bitsRead >= 64 {
		return 0
	}
	return (r.value << r.bitsRead) >> ((64 - uint(n)) & regMask)
}

// SkipBits consumes n bits.
func (r *Reader) SkipBits(n uint8) {
	r.bitsRead += uint(n)
}

// Reload moves the window towards the start of the buffer so
// consumed bytes are replaced.
func (r *Reader) Reload() Status {
	if r.bitsRead > 64 {
		return Overflow
	}
	if r.off >= 8 {
		nbBytes := int(r.bitsRead >> 3)
		r.off -= nbBytes
		r.bitsRead &= 7
		r.value = le.Load64(r.in, r.off)
		return Unfinished
	}
	if r.off == 0 {
		if r.bitsRead < 64 {
			return EndOfBuffer
		}
		return Completed
	}
	nbBytes := int(r.bitsRead >> 3)
	status := Unfinished
	if nbBytes > r.off {
		nbBytes = r.off
		status = EndOfBuffer
	}
	r.off -= nbBytes
	r.bitsRead -= uint(nbBytes) * 8
	r.value = le.Load64(r.in, r.off)
	return status
}

// Finished returns true if every bit has been consumed and no more.
func (r *Reader) Finished() bool {
	return r.off == 0 && r.bitsRead == 64
}

// Overflowed returns true if more bits were read than the stream holds.
func (r *Reader) Overflowed() bool {
	return r.bitsRead > 64
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return r.off*8 + 64 - int(r.bitsRead)
}
