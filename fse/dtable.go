package fse

import (
	"fmt"
	"slices"

	"github.com/ansflex/ansflex/bitstream"
	"github.com/ansflex/ansflex/hist"
)

// decSymbol is a decoder table entry.
type decSymbol struct {
	newState uint16
	symbol   uint8
	nbBits   uint8
}

// DTable is an FSE decompression table.
type DTable struct {
	tableLog uint8
	// fast is set when no symbol has more than half the states,
	// so every transition reads at least one bit.
	fast  bool
	table []decSymbol
}

// BuildDTable builds a decompression table for d.
func BuildDTable(d *hist.Distribution) (*DTable, error) {
	var dt DTable
	if err := dt.build(d); err != nil {
		return nil, err
	}
	return &dt, nil
}

// TableLog returns the table log of the table.
func (d *DTable) TableLog() uint8 {
	return d.tableLog
}

// Fast returns whether the table allows the unchecked decoding path.
func (d *DTable) Fast() bool {
	return d.fast
}

func (d *DTable) build(dist *hist.Distribution) error {
	if err := checkDistribution(dist); err != nil {
		return err
	}
	var (
		tableLog      = dist.TableLog
		tableSize     = uint32(1) << tableLog
		highThreshold = tableSize - 1
		symbolLen     = int(dist.MaxSymbol) + 1
		norm          = dist.Norm[:symbolLen]
		symbolNext    [hist.MaxSymbolValue + 1]uint16
	)
	if cap(d.table) < int(tableSize) {
		d.table = make([]decSymbol, tableSize)
	}
	d.table = d.table[:tableSize]
	d.tableLog = tableLog

	// Init, lay down low proba symbols
	d.fast = true
	largeLimit := int16(tableSize >> 1)
	for i, v := range norm {
		if v == -1 {
			d.table[highThreshold].symbol = uint8(i)
			highThreshold--
			symbolNext[i] = 1
			continue
		}
		if v > largeLimit {
			d.fast = false
		}
		symbolNext[i] = uint16(v)
	}

	// Spread symbols
	tableMask := tableSize - 1
	step := tableStep(tableSize)
	position := uint32(0)
	for i, v := range norm {
		for nb := int16(0); nb < v; nb++ {
			d.table[position].symbol = uint8(i)
			position = (position + step) & tableMask
			for position > highThreshold {
				// lowprob area
				position = (position + step) & tableMask
			}
		}
	}
	if position != 0 {
		// position must reach all cells once, otherwise normalizedCounter is incorrect
		return fmt.Errorf("%w: spread ended at position %d", hist.ErrIncorrectNormalizedDistribution, position)
	}

	// Build Decoding table
	tablePos := uint16(tableSize)
	for u, v := range d.table {
		symbol := v.symbol
		nextState := symbolNext[symbol]
		symbolNext[symbol] = nextState + 1
		nBits := tableLog - uint8(bitstream.HighBit(uint32(nextState)))
		d.table[u].nbBits = nBits
		d.table[u].newState = (nextState << nBits) - tablePos
	}
	return nil
}

// dState contains the decoding state of one interleaved stream.
type dState struct {
	dt    []decSymbol
	state decSymbol
}

// init the state from the first tableLog bits of br.
func (s *dState) init(br *bitstream.Reader, tableLog uint8, dt []decSymbol) {
	s.dt = dt
	s.state = dt[br.ReadBits(tableLog)]
}

// next advances the state. Handles transitions that read no bits.
func (s *dState) next(br *bitstream.Reader) {
	lowBits := uint16(br.ReadBits(s.state.nbBits))
	s.state = s.dt[s.state.newState+lowBits]
}

// nextFast advances the state.
// Every transition in the table must read at least one bit.
func (s *dState) nextFast(br *bitstream.Reader) {
	lowBits := uint16(br.ReadBitsFast(s.state.nbBits))
	s.state = s.dt[s.state.newState+lowBits]
}

// Decode appends size decoded bytes from src to dst.
// The unchecked bit reads are only used if trusted is set
// and the table allows it.
func (d *DTable) Decode(dst, src []byte, size int, trusted bool) ([]byte, error) {
	if size < 2 {
		return dst, fmt.Errorf("fse: cannot decode %d bytes", size)
	}
	if len(d.table) == 0 {
		return dst, fmt.Errorf("fse: table not initialized")
	}
	var br bitstream.Reader
	if err := br.Init(src); err != nil {
		return dst, fmt.Errorf("%w: %w", hist.ErrCorruption, err)
	}
	start := len(dst)
	dst = slices.Grow(dst, size)[:start+size]
	out := dst[start:]

	var s1, s2 dState
	s1.init(&br, d.tableLog, d.table)
	br.Reload()
	s2.init(&br, d.tableLog, d.table)

	fast := trusted && d.fast
	step := (*dState).next
	if fast {
		step = (*dState).nextFast
	}

	// Main loop. Stops with at least 2 symbols left,
	// the last state transitions are handled below.
	op := 0
	for br.Reload() == bitstream.Unfinished && op+6 <= size {
		out[op+0] = s1.state.symbol
		step(&s1, &br)
		out[op+1] = s2.state.symbol
		step(&s2, &br)
		out[op+2] = s1.state.symbol
		step(&s1, &br)
		out[op+3] = s2.state.symbol
		step(&s2, &br)
		op += 4
	}

	// Tail. The stream overflows on the transition after the
	// second to last symbol; the other state then holds the last one.
	for {
		if op > size-2 {
			return dst[:start], fmt.Errorf("%w: output size (%d) exceeded", hist.ErrCorruption, size)
		}
		out[op] = s1.state.symbol
		step(&s1, &br)
		op++
		if br.Reload() == bitstream.Overflow {
			out[op] = s2.state.symbol
			op++
			break
		}

		if op > size-2 {
			return dst[:start], fmt.Errorf("%w: output size (%d) exceeded", hist.ErrCorruption, size)
		}
		out[op] = s2.state.symbol
		step(&s2, &br)
		op++
		if br.Reload() == bitstream.Overflow {
			out[op] = s1.state.symbol
			op++
			break
		}
	}
	if op != size {
		return dst[:start], fmt.Errorf("%w: decoded %d of %d bytes", hist.ErrCorruption, op, size)
	}
	return dst, nil
}
