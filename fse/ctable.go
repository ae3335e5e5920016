package fse

import (
	"fmt"

	"github.com/ansflex/ansflex/bitstream"
	"github.com/ansflex/ansflex/hist"
)

// SymbolTransform holds what the encoder needs to advance its state for one symbol.
type SymbolTransform struct {
	DeltaFindState int32
	DeltaNbBits    uint32
}

func (s SymbolTransform) String() string {
	return fmt.Sprintf("dnbits: %08x, fs:%d", s.DeltaNbBits, s.DeltaFindState)
}

// MaxNbBits returns the maximum number of bits a state advance for the symbol writes.
func (s SymbolTransform) MaxNbBits() uint32 {
	return (s.DeltaNbBits + (1<<16 - 1)) >> 16
}

// BitCost returns the approximate cost of the symbol in bits, as a fixed point
// value with accuracyLog fractional bits.
// Symbols not in the table cost tableLog+1 bits.
// accuracyLog must be below 31-tableLog.
func (s SymbolTransform) BitCost(tableLog, accuracyLog uint8) uint32 {
	minNbBits := s.DeltaNbBits >> 16
	threshold := (minNbBits + 1) << 16
	tableSize := uint32(1) << tableLog
	deltaFromThreshold := threshold - (s.DeltaNbBits + tableSize)
	// Linear interpolation (very approximate)
	normalizedDeltaFromThreshold := (deltaFromThreshold << accuracyLog) >> tableLog
	bitMultiplier := uint32(1) << accuracyLog
	return (minNbBits+1)*bitMultiplier - normalizedDeltaFromThreshold
}

// CTable is an FSE compression table.
type CTable struct {
	tableLog    uint8
	tableSymbol []byte
	stateTable  []uint16
	symbolTT    [hist.MaxSymbolValue + 1]SymbolTransform
}

// BuildCTable builds a compression table for d.
func BuildCTable(d *hist.Distribution) (*CTable, error) {
	var c CTable
	if err := c.build(d); err != nil {
		return nil, err
	}
	return &c, nil
}

// TableLog returns the table log of the table.
func (c *CTable) TableLog() uint8 {
	return c.tableLog
}

// SymbolTransform returns the transform of symbol s.
func (c *CTable) SymbolTransform(s byte) SymbolTransform {
	return c.symbolTT[s]
}

func (c *CTable) alloc(tableLog uint8) {
	tableSize := 1 << tableLog
	if cap(c.tableSymbol) < tableSize {
		c.tableSymbol = make([]byte, tableSize)
	}
	c.tableSymbol = c.tableSymbol[:tableSize]
	if cap(c.stateTable) < tableSize {
		c.stateTable = make([]uint16, tableSize)
	}
	c.stateTable = c.stateTable[:tableSize]
	c.symbolTT = [hist.MaxSymbolValue + 1]SymbolTransform{}
	c.tableLog = tableLog
}

// build the table, re-using existing allocations.
func (c *CTable) build(d *hist.Distribution) error {
	if err := checkDistribution(d); err != nil {
		return err
	}
	c.alloc(d.TableLog)
	var (
		tableSize     = uint32(1) << d.TableLog
		highThreshold = tableSize - 1
		symbolLen     = int(d.MaxSymbol) + 1
		norm          = d.Norm[:symbolLen]
		tableSymbol   = c.tableSymbol
		cumul         [hist.MaxSymbolValue + 2]int16
	)

	// symbol start positions
	for u, v := range norm {
		if v == -1 {
			// Low proba symbol
			cumul[u+1] = cumul[u] + 1
			tableSymbol[highThreshold] = byte(u)
			highThreshold--
		} else {
			cumul[u+1] = cumul[u] + v
		}
	}
	if uint32(cumul[symbolLen]) != tableSize {
		return fmt.Errorf("%w: cumul %d != table size %d", hist.ErrIncorrectNormalizedDistribution, cumul[symbolLen], tableSize)
	}

	// Spread symbols
	step := tableStep(tableSize)
	tableMask := tableSize - 1
	var position uint32
	for u, v := range norm {
		for nbOccurrences := int16(0); nbOccurrences < v; nbOccurrences++ {
			tableSymbol[position] = byte(u)
			position = (position + step) & tableMask
			for position > highThreshold {
				position = (position + step) & tableMask
			} // Low proba area
		}
	}
	// Check if we have gone through all positions
	if position != 0 {
		return fmt.Errorf("%w: spread ended at position %d", hist.ErrIncorrectNormalizedDistribution, position)
	}

	// Build table, sorted by symbol order; gives next state value.
	tsi := int(tableSize)
	for u, v := range tableSymbol {
		c.stateTable[cumul[v]] = uint16(tsi + u)
		cumul[v]++
	}

	// Build symbol transformation table
	var (
		total    int32
		tableLog = uint32(d.TableLog)
		symbolTT = c.symbolTT[:]
	)
	for i, v := range norm {
		switch v {
		case 0:
			// Never encoded. Keeps MaxNbBits and BitCost meaningful.
			symbolTT[i].DeltaNbBits = ((tableLog + 1) << 16) - tableSize
		case -1, 1:
			symbolTT[i].DeltaNbBits = (tableLog << 16) - tableSize
			symbolTT[i].DeltaFindState = total - 1
			total++
		default:
			maxBitsOut := tableLog - bitstream.HighBit(uint32(v-1))
			minStatePlus := uint32(v) << maxBitsOut
			symbolTT[i].DeltaNbBits = (maxBitsOut << 16) - minStatePlus
			symbolTT[i].DeltaFindState = total - int32(v)
			total += int32(v)
		}
	}
	for i := symbolLen; i < len(c.symbolTT); i++ {
		c.symbolTT[i].DeltaNbBits = ((tableLog + 1) << 16) - tableSize
	}
	if total != int32(tableSize) {
		return fmt.Errorf("%w: total mismatch %d (got) != %d (want)", hist.ErrIncorrectNormalizedDistribution, total, tableSize)
	}
	return nil
}

// EstimateBits returns the approximate number of bits needed to encode
// symbols with counts c using the table.
func (c *CTable) EstimateBits(counts *hist.Counts) int {
	const accuracyLog = 8
	var total uint64
	for i, v := range counts {
		if v == 0 {
			continue
		}
		total += uint64(v) * uint64(c.symbolTT[i].BitCost(c.tableLog, accuracyLog))
	}
	return int(total >> accuracyLog)
}

func tableStep(tableSize uint32) uint32 {
	return (tableSize >> 1) + (tableSize >> 3) + 3
}

// checkDistribution verifies d can be used to build tables.
func checkDistribution(d *hist.Distribution) error {
	if d.TableLog > hist.MaxTableLog {
		return fmt.Errorf("%w: %d > %d", hist.ErrTableLogTooLarge, d.TableLog, hist.MaxTableLog)
	}
	return d.Validate()
}

// cState contains the compression state of a stream.
type cState struct {
	bw         *bitstream.Writer
	stateTable []uint16
	state      uint16
}

// init will initialize the compression state to the first symbol of the stream.
func (c *cState) init(bw *bitstream.Writer, ct *CTable, first SymbolTransform) {
	c.bw = bw
	c.stateTable = ct.stateTable

	nbBitsOut := (first.DeltaNbBits + (1 << 15)) >> 16
	im := int32((nbBitsOut << 16) - first.DeltaNbBits)
	lu := (im >> nbBitsOut) + first.DeltaFindState
	c.state = c.stateTable[lu]
}

// encode the output symbol provided and write it to the bitstream.
func (c *cState) encode(symbolTT SymbolTransform) {
	nbBitsOut := (uint32(c.state) + symbolTT.DeltaNbBits) >> 16
	dstState := int32(c.state>>(nbBitsOut&15)) + symbolTT.DeltaFindState
	c.bw.AddBits(uint64(c.state), uint8(nbBitsOut))
	c.state = c.stateTable[dstState]
}

// flush will write the tablelog to the output.
func (c *cState) flush(tableLog uint8) {
	c.bw.AddBits(uint64(c.state), tableLog)
}

// Encode appends the encoded src to dst.
// src must have at least 2 bytes, and only contain symbols
// that are present in the distribution the table was built from.
func (c *CTable) Encode(dst, src []byte) ([]byte, error) {
	if len(src) < 2 {
		return dst, fmt.Errorf("fse: cannot encode %d bytes", len(src))
	}
	var (
		bw     bitstream.Writer
		c1, c2 cState
		tt     = &c.symbolTT
		ip     = len(src)
	)
	bw.Reset(dst)

	// State 1 ends on even positions, state 2 on odd.
	if ip&1 == 1 {
		c1.init(&bw, c, tt[src[ip-1]])
		c2.init(&bw, c, tt[src[ip-2]])
		c1.encode(tt[src[ip-3]])
		ip -= 3
	} else {
		c2.init(&bw, c, tt[src[ip-1]])
		c1.init(&bw, c, tt[src[ip-2]])
		ip -= 2
	}
	// Join to a multiple of 4.
	if ip&2 != 0 {
		c2.encode(tt[src[ip-1]])
		c1.encode(tt[src[ip-2]])
		ip -= 2
	}
	bw.FlushFast()

	// Main compression loop. 4 symbols of at most 12 bits fit before a flush.
	for ip >= 4 {
		v3, v2, v1, v0 := src[ip-4], src[ip-3], src[ip-2], src[ip-1]
		c2.encode(tt[v0])
		c1.encode(tt[v1])
		c2.encode(tt[v2])
		c1.encode(tt[v3])
		bw.FlushFast()
		ip -= 4
	}
	c2.flush(c.tableLog)
	c1.flush(c.tableLog)
	return bw.Close(), nil
}
