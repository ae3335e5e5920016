package huff0

import (
	"fmt"

	"github.com/ansflex/ansflex/bitstream"
	"github.com/ansflex/ansflex/hist"
)

// Compress1X will compress the input.
// The output is the code table followed by a single bit stream.
// Input must be at most BlockSizeMax bytes.
// If input is too hard to compress, ErrIncompressible is returned.
// If input is a single byte value repeated ErrUseRLE is returned.
func Compress1X(in []byte, s *Scratch) ([]byte, error) {
	s, err := s.prepare()
	if err != nil {
		return nil, err
	}
	if len(in) <= 1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrIncompressible, len(in))
	}
	if len(in) > BlockSizeMax {
		return nil, fmt.Errorf("input too big, must be <= %d bytes", BlockSizeMax)
	}

	// Create histogram
	s.Counter(in, &s.count)
	maxCount := s.count.MaxCount()
	maxSymbol := s.count.MaxSymbol()
	if maxSymbol > s.MaxSymbolValue {
		return nil, fmt.Errorf("%w: symbol %d > %d", hist.ErrMaxSymbolValueTooSmall, maxSymbol, s.MaxSymbolValue)
	}
	if maxCount == len(in) {
		// One symbol, use RLE
		return nil, ErrUseRLE
	}
	if maxCount == 1 || maxCount < (len(in)>>7) {
		// Each symbol present maximum once or too well distributed.
		return nil, ErrIncompressible
	}

	if err := s.tree.build(&s.count); err != nil {
		return nil, err
	}
	if err := s.tree.SetMaxHeight(s.TableLog); err != nil {
		return nil, err
	}
	s.tree.table(&s.ct)

	s.Out = s.ct.appendTable(s.Out[:0], maxSymbol)
	tableSz := len(s.Out)
	if tableSz >= len(in) {
		return nil, ErrIncompressible
	}
	s.Out = s.ct.encode1X(s.Out, in)
	s.OutTable = s.Out[:tableSz]
	s.OutData = s.Out[tableSz:]
	s.Tracer.Debugf("huff0: %d -> %d bytes, max bits %d, table %d bytes, estimate %d bytes",
		len(in), len(s.Out), s.ct.MaxBits(), tableSz, s.ct.EstimateSize(&s.count))

	// Check if we compressed.
	if len(s.Out) >= len(in) {
		return nil, ErrIncompressible
	}
	return s.Out, nil
}

// encode1X appends src coded with the table to dst.
// Symbols are added from the end, so they are read back from the start.
func (c *CTable) encode1X(dst, src []byte) []byte {
	var bw bitstream.Writer
	bw.Reset(dst)
	n := len(src)

	// Up to 3 codes of at most 12 bits fit before a flush.
	for i := 0; i < len(src)&3; i++ {
		n--
		code := c[src[n]]
		bw.AddBitsFast(uint64(code.Val), code.NBits)
	}
	bw.FlushFast()

	for n >= 4 {
		v3, v2, v1, v0 := src[n-4], src[n-3], src[n-2], src[n-1]
		code := c[v0]
		bw.AddBitsFast(uint64(code.Val), code.NBits)
		code = c[v1]
		bw.AddBitsFast(uint64(code.Val), code.NBits)
		code = c[v2]
		bw.AddBitsFast(uint64(code.Val), code.NBits)
		code = c[v3]
		bw.AddBitsFast(uint64(code.Val), code.NBits)
		bw.FlushFast()
		n -= 4
	}
	return bw.Close()
}
