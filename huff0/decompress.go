package huff0

import (
	"fmt"
	"slices"

	"github.com/ansflex/ansflex/bitstream"
)

// ReadTable will read the code table from the start of in,
// and prepare s for decoding with Decompress1XTable.
// The remaining input is returned.
func ReadTable(in []byte, s *Scratch) (s2 *Scratch, remain []byte, err error) {
	s, err = s.prepare()
	if err != nil {
		return nil, nil, err
	}
	maxBits, remain, err := s.ct.readTable(in, s.MaxSymbolValue)
	if err != nil {
		return s, nil, err
	}
	if err := s.dt.build(&s.ct, maxBits); err != nil {
		return s, nil, err
	}
	return s, remain, nil
}

// Decompress1X will decompress a block compressed by Compress1X.
// The size of the decompressed data must be supplied.
// Provide a Scratch buffer to avoid memory allocations.
// Note that the output is also kept in the scratch buffer.
func Decompress1X(in []byte, size int, s *Scratch) ([]byte, error) {
	s, remain, err := ReadTable(in, s)
	if err != nil {
		return nil, err
	}
	return s.Decompress1XTable(remain, size)
}

// Decompress1XTable decodes size symbols from the bit stream in,
// using the table read by ReadTable.
func (s *Scratch) Decompress1XTable(in []byte, size int) ([]byte, error) {
	if len(s.dt.single) == 0 {
		return nil, fmt.Errorf("huff0: no table loaded")
	}
	if size < 0 || size > s.MaxDecodedSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMaxDecodedSizeExceeded, size, s.MaxDecodedSize)
	}
	var br bitstream.Reader
	if err := br.Init(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruption, err)
	}
	s.Out = slices.Grow(s.Out[:0], size)[:size]
	var (
		out     = s.Out
		dt      = s.dt.single
		maxBits = s.dt.maxBits
		op      int
	)

	decode := func() bool {
		v := dt[br.PeekBits(maxBits)].entry
		nBits := uint8(v)
		if nBits == 0 {
			return false
		}
		br.SkipBits(nBits)
		out[op] = uint8(v >> 8)
		op++
		return true
	}

	// 4 codes of at most 12 bits are available after each reload.
	for op+4 <= size {
		if br.Reload() == bitstream.Overflow {
			return nil, fmt.Errorf("%w: stream overflow after %d of %d bytes", ErrCorruption, op, size)
		}
		if !decode() || !decode() || !decode() || !decode() {
			return nil, fmt.Errorf("%w: unassigned code after %d bytes", ErrCorruption, op)
		}
	}
	for op < size {
		br.Reload()
		if !decode() {
			return nil, fmt.Errorf("%w: unassigned code after %d bytes", ErrCorruption, op)
		}
	}
	if !br.Finished() {
		if br.Overflowed() {
			return nil, fmt.Errorf("%w: stream overflow", ErrCorruption)
		}
		return nil, fmt.Errorf("%w: %d bits left after %d bytes", ErrCorruption, br.Remaining(), size)
	}
	return s.Out, nil
}
