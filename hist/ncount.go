package hist

import (
	"github.com/ansflex/ansflex/internal/le"
)

// NCountBound returns the maximum header size for a distribution with
// symbols up to maxSymbol at tableLog.
func NCountBound(maxSymbol, tableLog uint8) int {
	if maxSymbol == 0 {
		return ncountBound
	}
	return ((int(maxSymbol)+1)*int(tableLog))>>3 + 3
}

// WriteNCount writes the header for d to dst and returns the number of bytes used.
// ErrOutputTooSmall is returned if dst cannot hold it;
// a dst of NCountBound bytes is always large enough.
func WriteNCount(dst []byte, d *Distribution) (int, error) {
	if d.TableLog > MaxTableLog {
		return 0, ErrTableLogTooLarge
	}
	if d.TableLog < MinTableLog {
		return 0, ErrTableLogTooSmall
	}
	var (
		tableLog  = d.TableLog
		tableSize = 1 << tableLog
		previous0 bool
		charnum   int
		symbolLen = int(d.MaxSymbol) + 1

		// Write table size
		bitStream = uint32(tableLog - MinTableLog)
		bitCount  = uint(4)
		remaining = int32(tableSize + 1) // +1 for extra accuracy
		threshold = int32(tableSize)
		nbBits    = uint(tableLog + 1)
		outP      int
	)
	put16 := func() bool {
		if outP+2 > len(dst) {
			return false
		}
		dst[outP] = byte(bitStream)
		dst[outP+1] = byte(bitStream >> 8)
		outP += 2
		bitStream >>= 16
		return true
	}

	for charnum < symbolLen && remaining > 1 { // stops at 1
		if previous0 {
			start := charnum
			for charnum < symbolLen && d.Norm[charnum] == 0 {
				charnum++
			}
			if charnum == symbolLen {
				break
			}
			for charnum >= start+24 {
				start += 24
				bitStream += uint32(0xFFFF) << bitCount
				if !put16() {
					return 0, ErrOutputTooSmall
				}
			}
			for charnum >= start+3 {
				start += 3
				bitStream += 3 << bitCount
				bitCount += 2
			}
			bitStream += uint32(charnum-start) << bitCount
			bitCount += 2
			if bitCount > 16 {
				if !put16() {
					return 0, ErrOutputTooSmall
				}
				bitCount -= 16
			}
		}

		count := int32(d.Norm[charnum])
		charnum++
		max := (2*threshold - 1) - remaining
		if count < 0 {
			remaining += count
		} else {
			remaining -= count
		}
		count++ // +1 for extra accuracy
		if count >= threshold {
			count += max // [0..max[ [max..threshold[ (...) [threshold+max 2*threshold[
		}
		bitStream += uint32(count) << bitCount
		bitCount += nbBits
		if count < max {
			bitCount--
		}

		previous0 = count == 1
		if remaining < 1 {
			return 0, ErrIncorrectNormalizedDistribution
		}
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}

		if bitCount > 16 {
			if !put16() {
				return 0, ErrOutputTooSmall
			}
			bitCount -= 16
		}
	}
	if remaining != 1 {
		return 0, ErrUnexpectedRemaining
	}

	if outP+2 > len(dst) {
		return 0, ErrOutputTooSmall
	}
	dst[outP] = byte(bitStream)
	dst[outP+1] = byte(bitStream >> 8)
	outP += int(bitCount+7) / 8
	return outP, nil
}

// ReadNCount reads a header written by WriteNCount.
// Symbols above maxSymbol are rejected with ErrMaxSymbolValueTooSmall.
// The returned int is the number of bytes read.
func ReadNCount(src []byte, maxSymbol uint8) (Distribution, int, error) {
	var d Distribution
	if len(src) == 0 {
		return d, 0, corruptf("empty header")
	}
	// Reads are done four bytes at a time and may run past the header,
	// so parse a zero-padded copy. Bytes beyond a valid header are never needed.
	var buf [ncountBound + 8]byte
	in := buf[:copy(buf[:ncountBound], src)+8]
	var (
		charnum   int
		previous0 bool
		off       int
		iend      = len(in)
	)
	bitStream := le.Load32(in, 0)
	nbBits := uint((bitStream & 0xF) + MinTableLog) // extract tableLog
	if nbBits > AbsoluteMaxTableLog {
		return d, 0, ErrTableLogTooLarge
	}
	bitStream >>= 4
	bitCount := uint(4)

	d.TableLog = uint8(nbBits)
	remaining := int32((1 << nbBits) + 1)
	threshold := int32(1 << nbBits)
	gotTotal := int32(0)
	nbBits++

	for remaining > 1 {
		if previous0 {
			n0 := charnum
			for (bitStream & 0xFFFF) == 0xFFFF {
				n0 += 24
				if off < iend-5 {
					off += 2
					bitStream = le.Load32(in, off) >> bitCount
				} else {
					bitStream >>= 16
					bitCount += 16
				}
				if bitCount > 32 {
					return d, 0, corruptf("zero run past end of header")
				}
			}
			for (bitStream & 3) == 3 {
				n0 += 3
				bitStream >>= 2
				bitCount += 2
			}
			n0 += int(bitStream & 3)
			bitCount += 2
			if n0 > int(maxSymbol) {
				return d, 0, ErrMaxSymbolValueTooSmall
			}
			for charnum < n0 {
				d.Norm[charnum] = 0
				charnum++
			}

			if off <= iend-7 || off+int(bitCount>>3) <= iend-4 {
				off += int(bitCount >> 3)
				bitCount &= 7
				if off > iend-4 {
					return d, 0, corruptf("zero run past end of header")
				}
				bitStream = le.Load32(in, off) >> bitCount
			} else {
				bitStream >>= 2
			}
		}
		if charnum > int(maxSymbol) {
			return d, 0, ErrMaxSymbolValueTooSmall
		}

		max := (2*threshold - 1) - remaining
		var count int32

		if (int32(bitStream) & (threshold - 1)) < max {
			count = int32(bitStream) & (threshold - 1)
			bitCount += nbBits - 1
		} else {
			count = int32(bitStream) & (2*threshold - 1)
			if count >= threshold {
				count -= max
			}
			bitCount += nbBits
		}

		count-- // extra accuracy
		if count < 0 {
			// -1 means +1
			remaining += count
			gotTotal -= count
		} else {
			remaining -= count
			gotTotal += count
		}
		d.Norm[charnum] = int16(count)
		charnum++
		previous0 = count == 0
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}
		if off <= iend-7 || off+int(bitCount>>3) <= iend-4 {
			off += int(bitCount >> 3)
			bitCount &= 7
			if off > iend-4 {
				return d, 0, corruptf("count past end of header")
			}
		} else {
			bitCount -= uint(8 * (iend - 4 - off))
			off = iend - 4
		}
		if bitCount > 32 {
			return d, 0, corruptf("bitCount %d > 32", bitCount)
		}
		bitStream = le.Load32(in, off) >> (bitCount & 31)
	}

	if charnum <= 1 {
		return d, 0, corruptf("symbolLen (%d) too small", charnum)
	}
	if remaining != 1 {
		return d, 0, corruptf("remaining %d != 1", remaining)
	}
	if gotTotal != 1<<d.TableLog {
		return d, 0, corruptf("total %d != %d", gotTotal, 1<<d.TableLog)
	}
	d.MaxSymbol = uint8(charnum - 1)
	n := off + int(bitCount+7)>>3
	if n > len(src) {
		return d, 0, corruptf("header needs %d bytes, got %d", n, len(src))
	}
	return d, n, nil
}
