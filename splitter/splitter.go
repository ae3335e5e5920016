// Package splitter divides input into blocks for entropy coding.
//
// Content defined modes cut where a rolling hash hits, so block boundaries
// follow the data instead of fixed offsets.
package splitter

import (
	"errors"
	"fmt"
	"math"
)

// Mode used to determine how input is split.
type Mode int

// MinBlockSize is the smallest maximum block size the content defined modes allow.
const MinBlockSize = 512

const (
	// ModeFixed cuts blocks of the maximum size.
	// This is the fastest mode.
	ModeFixed Mode = iota

	// ModePrediction cuts on a hash of the bytes an order 1 model mispredicts.
	// Average size is usually maxSize/4.
	// Minimum block size is maxSize/64.
	ModePrediction

	// ModeEntropy cuts on a hash of the bytes that are frequent
	// in the start of the current block.
	// Average size is usually maxSize/4.
	// Minimum block size is maxSize/32, but at least 512 bytes.
	ModeEntropy
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModePrediction:
		return "prediction"
	case ModeEntropy:
		return "entropy"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ErrSizeTooSmall is returned if the requested block size is smaller than MinBlockSize.
var ErrSizeTooSmall = errors.New("maximum block size too small. must be at least 512 bytes")

// Splitter finds block boundaries.
// It holds no state between calls and can be used concurrently.
type Splitter struct {
	mode    Mode
	maxSize int
	minSize int
	maxHash uint32
}

// New returns a Splitter cutting blocks of at most maxSize bytes.
func New(mode Mode, maxSize int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("splitter: invalid maximum block size %d", maxSize)
	}
	s := &Splitter{mode: mode, maxSize: maxSize}
	switch mode {
	case ModeFixed:
		s.minSize = maxSize
		return s, nil
	case ModePrediction:
		s.minSize = maxSize / 64
	case ModeEntropy:
		s.minSize = min(max(maxSize/32, 512), 65535)
	default:
		return nil, fmt.Errorf("splitter: unknown mode %v", mode)
	}
	if maxSize < MinBlockSize {
		return nil, ErrSizeTooSmall
	}
	// Hashes below maxHash end a block, giving an average of maxSize/4.
	fragment := math.Log2(float64(maxSize) / (64 * 64))
	s.maxHash = uint32(math.Exp2(22 - fragment))
	return s, nil
}

// Mode returns the split mode.
func (s *Splitter) Mode() Mode {
	return s.mode
}

// MaxSize returns the maximum block size.
func (s *Splitter) MaxSize() int {
	return s.maxSize
}

// Next returns the length of the block starting at b.
// The result is only 0 if b is empty.
func (s *Splitter) Next(b []byte) int {
	if len(b) <= s.minSize || s.mode == ModeFixed {
		return min(len(b), s.maxSize)
	}
	if s.mode == ModeEntropy {
		return s.nextEntropy(b)
	}
	return s.nextPrediction(b)
}

// Split calls fn with each block of b in order.
func (s *Splitter) Split(b []byte, fn func(block []byte)) {
	for len(b) > 0 {
		n := s.Next(b)
		fn(b[:n])
		b = b[n:]
	}
}
