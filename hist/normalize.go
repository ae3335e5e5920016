package hist

import (
	"fmt"

	"github.com/ansflex/ansflex/trace"
)

// rtbTable is the "rest to beat" threshold for rounding up small probabilities.
var rtbTable = [...]uint32{0, 473195, 504333, 520860, 550000, 700000, 750000, 830000}

// Normalizer scales counts to a power of two.
// The zero value is ready to use and discards trace output.
type Normalizer struct {
	Tracer trace.Tracer
}

// Normalize scales c so the result sums to exactly 1<<tableLog.
// total must be the sum of c and maxSymbol the highest present symbol.
// Symbols below total>>tableLog are given -1.
// If one symbol makes up all of the input ErrUseRLE is returned.
func Normalize(c *Counts, tableLog uint8, total int, maxSymbol uint8) (NormCounts, error) {
	return Normalizer{}.Normalize(c, tableLog, total, maxSymbol)
}

// Normalize scales c so the result sums to exactly 1<<tableLog.
// See the package level Normalize.
func (n Normalizer) Normalize(c *Counts, tableLog uint8, total int, maxSymbol uint8) (NormCounts, error) {
	var norm NormCounts
	tr := trace.OrNop(n.Tracer)
	if tableLog > AbsoluteMaxTableLog {
		return norm, ErrTableLogTooLarge
	}
	if tableLog < MinTableLog {
		return norm, ErrTableLogTooSmall
	}
	if total <= 1 {
		return norm, fmt.Errorf("%w: total %d", ErrIncompressible, total)
	}
	if tableLog < MinTableLogFor(total, maxSymbol) {
		return norm, fmt.Errorf("%w: %d cannot represent %d bytes with max symbol %d", ErrTableLogTooSmall, tableLog, total, maxSymbol)
	}

	var (
		scale        = 62 - uint64(tableLog)
		step         = (1 << 62) / uint64(total)
		vStep        = uint64(1) << (scale - 20)
		stillToDist  = int32(1 << tableLog)
		largest      int
		largestP     int16
		lowThreshold = uint32(total >> tableLog)
	)
	for i, cnt := range c[:int(maxSymbol)+1] {
		if int(cnt) == total {
			return norm, ErrUseRLE
		}
		if cnt == 0 {
			continue
		}
		if cnt < lowThreshold {
			norm[i] = -1
			stillToDist--
			continue
		}
		proba := int16((uint64(cnt) * step) >> scale)
		if proba < 8 {
			restToBeat := vStep * uint64(rtbTable[proba])
			v := uint64(cnt)*step - (uint64(proba) << scale)
			if v > restToBeat {
				proba++
			}
		}
		if proba > largestP {
			largestP = proba
			largest = i
		}
		norm[i] = proba
		stillToDist -= int32(proba)
	}

	if largestP == 0 || -stillToDist >= int32(norm[largest]>>1) {
		tr.Debugf("normalize: %d left to distribute, largest %d; using second method", stillToDist, norm[largest])
		norm, err := n.normalize2(c, tableLog, total, maxSymbol)
		if err != nil {
			tr.Errorf("normalize: second method failed: %v", err)
			return norm, err
		}
		return norm, n.check(&norm, tableLog)
	}
	norm[largest] += int16(stillToDist)
	return norm, n.check(&norm, tableLog)
}

// check verifies the sum invariant of a result.
func (n Normalizer) check(norm *NormCounts, tableLog uint8) error {
	if got, want := norm.Sum(), 1<<tableLog; got != want {
		return fmt.Errorf("%w: sum %d != %d", ErrNormalizationUnsupported, got, want)
	}
	return nil
}

// normalize2 is the secondary method, used when the largest symbol cannot
// absorb the rounding error. Small counts are settled first and the
// remainder is spread proportionally in fixed point.
func (n Normalizer) normalize2(c *Counts, tableLog uint8, total int, maxSymbol uint8) (NormCounts, error) {
	const notYetAssigned = -2
	var (
		norm         NormCounts
		distributed  uint32
		remain       = uint64(total)
		symbolLen    = int(maxSymbol) + 1
		lowThreshold = uint64(total >> tableLog)
		lowOne       = (uint64(total) * 3) >> (tableLog + 1)
	)
	for i, cnt := range c[:symbolLen] {
		switch {
		case cnt == 0:
			norm[i] = 0
		case uint64(cnt) <= lowThreshold:
			norm[i] = -1
			distributed++
			remain -= uint64(cnt)
		case uint64(cnt) <= lowOne:
			norm[i] = 1
			distributed++
			remain -= uint64(cnt)
		default:
			norm[i] = notYetAssigned
		}
	}
	if distributed > 1<<tableLog {
		return norm, ErrNormalizationUnsupported
	}
	toDistribute := uint32(1<<tableLog) - distributed

	if toDistribute > 0 && remain/uint64(toDistribute) > lowOne {
		// Risk of rounding to zero.
		lowOne = (remain * 3) / (uint64(toDistribute) * 2)
		for i, cnt := range c[:symbolLen] {
			if norm[i] == notYetAssigned && uint64(cnt) <= lowOne {
				norm[i] = 1
				distributed++
				remain -= uint64(cnt)
			}
		}
		if distributed > 1<<tableLog {
			return norm, ErrNormalizationUnsupported
		}
		toDistribute = uint32(1<<tableLog) - distributed
	}

	if int(distributed) == c.Distinct() {
		// Every value was small. Give the rest to the most frequent symbol.
		var maxV int
		var maxC uint32
		for i, cnt := range c[:symbolLen] {
			if cnt > maxC {
				maxV = i
				maxC = cnt
			}
		}
		if norm[maxV] < 0 {
			// Same single slot, now able to grow.
			norm[maxV] = 1
		}
		norm[maxV] += int16(toDistribute)
		return norm, nil
	}

	if remain == 0 {
		// All symbols were settled above, spread round robin on the positive ones.
		positive := false
		for _, v := range norm[:symbolLen] {
			positive = positive || v > 0
		}
		if !positive {
			return norm, ErrNormalizationUnsupported
		}
		for i := 0; toDistribute > 0; i = (i + 1) % symbolLen {
			if norm[i] > 0 {
				toDistribute--
				norm[i]++
			}
		}
		return norm, nil
	}

	var (
		vStepLog = 62 - uint64(tableLog)
		mid      = uint64(1<<(vStepLog-1)) - 1
		rStep    = ((uint64(1<<vStepLog) * uint64(toDistribute)) + mid) / remain
		tmpTotal = mid
	)
	for i, cnt := range c[:symbolLen] {
		if norm[i] != notYetAssigned {
			continue
		}
		end := tmpTotal + uint64(cnt)*rStep
		sStart := uint32(tmpTotal >> vStepLog)
		sEnd := uint32(end >> vStepLog)
		weight := sEnd - sStart
		if weight < 1 {
			return norm, fmt.Errorf("%w: symbol %d rounds to zero", ErrNormalizationUnsupported, i)
		}
		norm[i] = int16(weight)
		tmpTotal = end
	}
	return norm, nil
}
