package hist

import "github.com/ansflex/ansflex/bitstream"

// MinTableLogFor returns the smallest table log that can represent
// srcSize bytes with symbols up to maxSymbol.
func MinTableLogFor(srcSize int, maxSymbol uint8) uint8 {
	if srcSize <= 1 {
		return MinTableLog
	}
	minBitsSrc := bitstream.HighBit(uint32(srcSize)) + 1
	minBitsSymbols := bitstream.HighBit(uint32(maxSymbol)|1) + 2
	if minBitsSrc < minBitsSymbols {
		return uint8(minBitsSrc)
	}
	return uint8(minBitsSymbols)
}

// OptimalTableLog returns the table log to use for srcSize bytes with
// symbols up to maxSymbol, never above maxTableLog.
// A maxTableLog of 0 selects DefaultTableLog.
// The result is always within [MinTableLog, MaxTableLog].
func OptimalTableLog(maxTableLog uint8, srcSize int, maxSymbol uint8) uint8 {
	if maxTableLog == 0 {
		maxTableLog = DefaultTableLog
	}
	tableLog := int(maxTableLog)
	if srcSize > 1 {
		// Accuracy can be reduced for small inputs.
		maxBitsSrc := int(bitstream.HighBit(uint32(srcSize-1))) - 2
		if maxBitsSrc < tableLog {
			tableLog = maxBitsSrc
		}
	}
	// Need a minimum to safely represent all symbol values.
	if minBits := int(MinTableLogFor(srcSize, maxSymbol)); minBits > tableLog {
		tableLog = minBits
	}
	if tableLog < MinTableLog {
		tableLog = MinTableLog
	}
	if tableLog > MaxTableLog {
		tableLog = MaxTableLog
	}
	return uint8(tableLog)
}
