// Package hist collects symbol statistics and turns them into the normalized
// distributions the FSE and Huffman coders are built from.
//
// A distribution is serialized with WriteNCount and read back with
// ReadNCount, so a decoder can rebuild the exact tables the encoder used.
package hist

import (
	"errors"
	"fmt"
)

const (
	// MinTableLog is the smallest supported table log.
	MinTableLog = 5
	// MaxTableLog is the largest table log the codecs build tables for.
	MaxTableLog = 12
	// AbsoluteMaxTableLog is the largest table log a header may carry.
	AbsoluteMaxTableLog = 15
	// DefaultTableLog is used when no table log is requested.
	DefaultTableLog = 11
	// MaxSymbolValue is the largest symbol value.
	MaxSymbolValue = 255

	// ncountBound is the header bound when no symbol value is known.
	ncountBound = 512
)

var (
	// ErrIncompressible is returned when input is judged to be too hard to compress.
	ErrIncompressible = errors.New("input is not compressible")

	// ErrUseRLE is returned from the compressor when the input is a single byte value repeated.
	ErrUseRLE = fmt.Errorf("%w: input is single value repeated", ErrIncompressible)

	// ErrOutputTooSmall is returned when a header does not fit in the supplied buffer.
	ErrOutputTooSmall = errors.New("output is too small")

	// ErrUnexpectedRemaining is returned when a distribution does not sum to the table size while writing.
	ErrUnexpectedRemaining = errors.New("unexpected remaining probability")

	// ErrTableLogTooLarge is returned for table logs above the supported maximum.
	ErrTableLogTooLarge = errors.New("tablelog too large")

	// ErrTableLogTooSmall is returned for table logs that cannot represent the distribution.
	ErrTableLogTooSmall = errors.New("tablelog too small")

	// ErrMaxSymbolValueTooSmall is returned when a header holds symbols above the allowed maximum.
	ErrMaxSymbolValueTooSmall = errors.New("max symbol value too small")

	// ErrIncorrectNormalizedDistribution is returned when normalized counts do not sum to the table size.
	ErrIncorrectNormalizedDistribution = errors.New("incorrect normalized distribution")

	// ErrCorruption is returned when compressed input is invalid.
	// Returned errors wrap it with the reason.
	ErrCorruption = errors.New("corruption detected")

	// ErrNormalizationUnsupported is returned when neither normalization
	// method can represent the counts at the requested table log.
	ErrNormalizationUnsupported = errors.New("counts cannot be normalized at this table log")
)

// corruptf returns ErrCorruption with a reason.
func corruptf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorruption, fmt.Sprintf(format, args...))
}

// Counts holds the number of occurrences of each byte value.
type Counts [256]uint32

// NormCounts holds the normalized count of each byte value.
// -1 marks a symbol that is present but gets a single low probability slot.
type NormCounts [256]int16

// Distribution is a normalized distribution with its table log.
// It is what a header carries and what tables are built from.
type Distribution struct {
	Norm      NormCounts
	MaxSymbol uint8
	TableLog  uint8
}

// MaxSymbol returns the highest byte value with a non-zero count.
// 0 is returned if no symbols are present.
func (c *Counts) MaxSymbol() uint8 {
	for i := len(c) - 1; i > 0; i-- {
		if c[i] != 0 {
			return uint8(i)
		}
	}
	return 0
}

// MaxCount returns the highest count.
func (c *Counts) MaxCount() int {
	var max uint32
	for _, v := range c {
		if v > max {
			max = v
		}
	}
	return int(max)
}

// Distinct returns the number of byte values with a non-zero count.
func (c *Counts) Distinct() int {
	n := 0
	for _, v := range c {
		if v != 0 {
			n++
		}
	}
	return n
}

// Total returns the sum of all counts.
func (c *Counts) Total() int {
	var n int
	for _, v := range c {
		n += int(v)
	}
	return n
}

// Sum returns the table size the normalized counts occupy.
// Low probability entries count as one.
func (n *NormCounts) Sum() int {
	var total int
	for _, v := range n {
		if v < 0 {
			total -= int(v)
		} else {
			total += int(v)
		}
	}
	return total
}

// Validate checks that d is a usable distribution:
// the table log is within limits, nothing is present above MaxSymbol,
// no entry is below -1, and the entries sum to the table size.
func (d *Distribution) Validate() error {
	if d.TableLog > AbsoluteMaxTableLog {
		return ErrTableLogTooLarge
	}
	if d.TableLog < MinTableLog {
		return ErrTableLogTooSmall
	}
	for i, v := range d.Norm {
		if v < -1 {
			return fmt.Errorf("%w: symbol %d has count %d", ErrIncorrectNormalizedDistribution, i, v)
		}
		if v != 0 && i > int(d.MaxSymbol) {
			return fmt.Errorf("%w: symbol %d above max symbol %d", ErrIncorrectNormalizedDistribution, i, d.MaxSymbol)
		}
	}
	if got, want := d.Norm.Sum(), 1<<d.TableLog; got != want {
		return fmt.Errorf("%w: sum %d != %d", ErrIncorrectNormalizedDistribution, got, want)
	}
	return nil
}
