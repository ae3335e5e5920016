package huff0

import (
	"fmt"

	"github.com/ansflex/ansflex/bitstream"
	"github.com/ansflex/ansflex/hist"
	"github.com/ansflex/ansflex/internal/le"
)

// Code is the canonical code of a symbol.
// The code is the NBits low bits of Val, most significant bit first.
type Code struct {
	Val   uint16
	NBits uint8
}

func (c Code) String() string {
	if c.NBits == 0 {
		return "-"
	}
	return fmt.Sprintf("%0*b", c.NBits, c.Val)
}

// CTable is a code table indexed by symbol.
// Symbols with NBits == 0 are absent.
type CTable [maxSymbolValue + 1]Code

// MaxBits returns the longest code length in the table.
func (c *CTable) MaxBits() uint8 {
	var m uint8
	for _, v := range c {
		m = max(m, v.NBits)
	}
	return m
}

// EstimateSize returns the size in bytes of symbols with counts coded with the table.
// Symbols without a code are not counted.
func (c *CTable) EstimateSize(counts *hist.Counts) int {
	var total uint64
	for i, v := range counts[:] {
		total += uint64(v) * uint64(c[i].NBits)
	}
	return int((total + 7) / 8)
}

// ValidatePrefix returns an error if a code of the table is a prefix
// of another code, or a code does not fit its length.
func ValidatePrefix(c *CTable) error {
	for i, a := range c {
		if a.NBits == 0 {
			continue
		}
		if a.NBits > AbsoluteMaxBits || a.Val >= 1<<a.NBits {
			return fmt.Errorf("%w: symbol %d: value %d does not fit %d bits", ErrPrefixViolation, i, a.Val, a.NBits)
		}
		for j, b := range c[i+1:] {
			if b.NBits == 0 {
				continue
			}
			short, long := a, b
			if short.NBits > long.NBits {
				short, long = long, short
			}
			if long.Val>>(long.NBits-short.NBits) == short.Val {
				return fmt.Errorf("%w: symbol %d (%v) and %d (%v)", ErrPrefixViolation, i, a, i+1+j, b)
			}
		}
	}
	return nil
}

// tableHeaderSize is the fixed part of the table header.
const tableHeaderSize = 4

// appendTable appends the table description to dst.
// Layout: max symbol, max bits, stream length (2 bytes),
// then a reverse bit stream holding a 4 bit code length per symbol
// followed by the code value when the length is non-zero.
func (c *CTable) appendTable(dst []byte, maxSymbol uint8) []byte {
	start := len(dst)
	dst = append(dst, maxSymbol, c.MaxBits(), 0, 0)

	var bw bitstream.Writer
	bw.Reset(dst)
	// Written in reverse, so the reader sees symbol 0 first.
	for i := int(maxSymbol); i >= 0; i-- {
		code := c[i]
		bw.AddBits(uint64(code.Val), code.NBits)
		bw.AddBits(uint64(code.NBits), 4)
		bw.Flush()
	}
	dst = bw.Close()
	le.Store16(dst[start+2:], uint16(len(dst)-start-tableHeaderSize))
	return dst
}

// readTable reads a table written by appendTable and returns the remaining input.
func (c *CTable) readTable(in []byte, maxSymbolValue uint8) (maxBits uint8, remain []byte, err error) {
	if len(in) < tableHeaderSize {
		return 0, nil, fmt.Errorf("%w: table header truncated (%d bytes)", ErrCorruption, len(in))
	}
	maxSymbol, maxBits := in[0], in[1]
	n := int(le.Load16(in, 2))
	if maxSymbol > maxSymbolValue {
		return 0, nil, fmt.Errorf("%w: symbol %d > %d", hist.ErrMaxSymbolValueTooSmall, maxSymbol, maxSymbolValue)
	}
	if maxBits == 0 || maxBits > tableLogMax {
		return 0, nil, fmt.Errorf("%w: max code length %d", ErrCorruption, maxBits)
	}
	if n > len(in)-tableHeaderSize {
		return 0, nil, fmt.Errorf("%w: table length %d exceeds input (%d)", ErrCorruption, n, len(in)-tableHeaderSize)
	}
	var br bitstream.Reader
	if err := br.Init(in[tableHeaderSize : tableHeaderSize+n]); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrCorruption, err)
	}
	*c = CTable{}
	for i := 0; i <= int(maxSymbol); i++ {
		nBits := uint8(br.ReadBits(4))
		if nBits > maxBits {
			return 0, nil, fmt.Errorf("%w: symbol %d: code length %d > %d", ErrCorruption, i, nBits, maxBits)
		}
		c[i] = Code{Val: uint16(br.ReadBits(nBits)), NBits: nBits}
		if br.Reload() == bitstream.Overflow {
			return 0, nil, fmt.Errorf("%w: table stream overflow", ErrCorruption)
		}
	}
	if !br.Finished() {
		return 0, nil, fmt.Errorf("%w: %d bits left in table", ErrCorruption, br.Remaining())
	}
	return maxBits, in[tableHeaderSize+n:], nil
}

// dEntrySingle is a single decoding entry,
// code length in the low byte, symbol in the high byte.
// A zero entry is a code that was never assigned.
type dEntrySingle struct {
	entry uint16
}

// dTable is a decoding table indexed by the next maxBits bits of the stream.
type dTable struct {
	single  []dEntrySingle
	maxBits uint8
}

// build fills the decoding table for c.
// Overlapping codes are rejected.
func (d *dTable) build(c *CTable, maxBits uint8) error {
	size := 1 << maxBits
	if cap(d.single) < size {
		d.single = make([]dEntrySingle, size)
	}
	d.single = d.single[:size]
	clear(d.single)
	d.maxBits = maxBits
	present := 0
	for i, code := range c {
		if code.NBits == 0 {
			continue
		}
		if code.NBits > maxBits || code.Val >= 1<<code.NBits {
			return fmt.Errorf("%w: symbol %d: invalid code %d/%d", ErrCorruption, i, code.Val, code.NBits)
		}
		present++
		shift := maxBits - code.NBits
		start := int(code.Val) << shift
		entry := dEntrySingle{entry: uint16(code.NBits) | uint16(i)<<8}
		for j := start; j < start+1<<shift; j++ {
			if d.single[j].entry != 0 {
				return fmt.Errorf("%w: symbol %d: code %v overlaps symbol %d", ErrCorruption, i, code, d.single[j].entry>>8)
			}
			d.single[j] = entry
		}
	}
	if present == 0 {
		return fmt.Errorf("%w: no symbols in table", ErrCorruption)
	}
	return nil
}
