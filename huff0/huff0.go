// Package huff0 provides fast length-limited canonical Huffman encoding
// and decoding of byte blocks.
//
// The tree is built without a priority queue from the sorted histogram,
// limited to a maximum code length and converted to a canonical code table.
// Compressed blocks start with the code table followed by a reverse bit stream.
// Blocks do not store their decompressed size, it must be supplied when decoding.
package huff0

import (
	"errors"
	"fmt"

	"github.com/ansflex/ansflex/hist"
	"github.com/ansflex/ansflex/trace"
)

const (
	maxSymbolValue  = hist.MaxSymbolValue
	tableLogMax     = hist.MaxTableLog
	tableLogDefault = hist.DefaultTableLog
	huffNodesLen    = 512

	// AbsoluteMaxBits is the longest code length the tree builder supports.
	AbsoluteMaxBits = hist.AbsoluteMaxTableLog

	// BlockSizeMax is maximum input size for a single block compressed.
	BlockSizeMax = 128 << 10
)

var (
	// ErrIncompressible is returned when input is judged to be too hard to compress.
	ErrIncompressible = hist.ErrIncompressible

	// ErrUseRLE is returned from the compressor when the input is a single byte value repeated.
	ErrUseRLE = hist.ErrUseRLE

	// ErrCorruption is returned when the compressed input is invalid.
	ErrCorruption = hist.ErrCorruption

	// ErrMaxHeightTooSmall is returned when a tree cannot be limited to the requested height.
	ErrMaxHeightTooSmall = errors.New("max height too small for number of symbols")

	// ErrPrefixViolation is returned when a code is a prefix of another code.
	ErrPrefixViolation = errors.New("code table violates prefix property")
)

// Scratch provides temporary storage for compression and decompression.
// A Scratch can be re-used, but must not be used concurrently.
type Scratch struct {
	count hist.Counts
	tree  Tree
	ct    CTable
	dt    dTable

	// Out is output buffer.
	// If the scratch is re-used before the caller is done processing the output,
	// set this field to nil.
	// Otherwise the output buffer will be re-used for next Compression/Decompression step
	// and allocation will be avoided.
	Out []byte

	// OutTable will contain the table data only, if a new table has been generated.
	// Slice of the returned data.
	OutTable []byte

	// OutData will contain the compressed data.
	// Slice of the returned data.
	OutData []byte

	// MaxSymbolValue will override the maximum symbol value of the next block.
	MaxSymbolValue uint8

	// TableLog will attempt to override the maximum code length of the next block.
	TableLog uint8

	// MaxDecodedSize will set the maximum allowed output size.
	// This value will automatically be set to BlockSizeMax if not set.
	// Decoders will return ErrMaxDecodedSizeExceeded if this limit is exceeded.
	MaxDecodedSize int

	// Counter is used to build the histogram. Defaults to hist.CountSimple.
	Counter hist.CounterFunc

	// Tracer receives diagnostics. Defaults to discarding them.
	Tracer trace.Tracer
}

// ErrMaxDecodedSizeExceeded is returned if the decoded size exceeds Scratch.MaxDecodedSize.
var ErrMaxDecodedSizeExceeded = errors.New("maximum output size exceeded")

func (s *Scratch) prepare() (*Scratch, error) {
	if s == nil {
		s = &Scratch{}
	}
	if s.MaxSymbolValue == 0 {
		s.MaxSymbolValue = maxSymbolValue
	}
	if s.TableLog == 0 {
		s.TableLog = tableLogDefault
	}
	if s.TableLog > tableLogMax {
		return nil, fmt.Errorf("tableLog (%d) > maxTableLog (%d)", s.TableLog, tableLogMax)
	}
	if s.MaxDecodedSize <= 0 || s.MaxDecodedSize > BlockSizeMax {
		s.MaxDecodedSize = BlockSizeMax
	}
	if s.Counter == nil {
		s.Counter = hist.CountSimple
	}
	s.Tracer = trace.OrNop(s.Tracer)
	return s, nil
}
