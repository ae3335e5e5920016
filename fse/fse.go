// Package fse provides Finite State Entropy encoding and decoding.
//
// Finite State Entropy (also referenced as tANS) is an entropy coding
// technique that combines the speed of Huffman coding with the precision
// of arithmetic coding. Symbols cost fractional bits.
//
// Compressed blocks start with the normalized distribution (see hist.WriteNCount)
// followed by a reverse bit stream written by two interleaved encoder states.
// Blocks do not store their decompressed size, it must be supplied when decoding.
package fse

import (
	"errors"
	"fmt"
	"math"

	"github.com/ansflex/ansflex/hist"
	"github.com/ansflex/ansflex/trace"
)

var (
	// ErrIncompressible is returned when input is judged to be too hard to compress.
	ErrIncompressible = hist.ErrIncompressible

	// ErrUseRLE is returned from the compressor when the input is a single byte value repeated.
	ErrUseRLE = hist.ErrUseRLE

	// ErrCorruption is returned when the compressed input is invalid.
	ErrCorruption = hist.ErrCorruption
)

// Scratch provides temporary storage for compression and decompression.
// A Scratch can be re-used, but must not be used concurrently.
type Scratch struct {
	// Private
	count hist.Counts
	ct    CTable
	dt    DTable

	// Out is output buffer.
	// If the scratch is re-used before the caller is done processing the output,
	// set this field to nil.
	// Otherwise the output buffer will be re-used for next Compression/Decompression step
	// and allocation will be avoided.
	Out []byte

	// MaxSymbolValue will override the maximum symbol value of the next block.
	MaxSymbolValue uint8

	// TableLog will attempt to override the tablelog for the next block.
	TableLog uint8

	// DecompressLimit limits the size a block may decompress to.
	// 0 means no limit.
	DecompressLimit int

	// TrustedInput allows the unchecked decoding path.
	// Only set it for input produced by this package.
	TrustedInput bool

	// Counter is used to build the histogram. Defaults to hist.CountSimple.
	Counter hist.CounterFunc

	// Tracer receives diagnostics. Defaults to discarding them.
	Tracer trace.Tracer
}

func (s *Scratch) prepare() (*Scratch, error) {
	if s == nil {
		s = &Scratch{}
	}
	if s.MaxSymbolValue == 0 {
		s.MaxSymbolValue = hist.MaxSymbolValue
	}
	if s.TableLog == 0 {
		s.TableLog = hist.DefaultTableLog
	}
	if s.TableLog > hist.MaxTableLog {
		return nil, fmt.Errorf("tableLog (%d) > maxTableLog (%d)", s.TableLog, hist.MaxTableLog)
	}
	if s.TableLog < hist.MinTableLog {
		return nil, fmt.Errorf("tableLog (%d) < minTableLog (%d)", s.TableLog, hist.MinTableLog)
	}
	if s.Counter == nil {
		s.Counter = hist.CountSimple
	}
	s.Tracer = trace.OrNop(s.Tracer)
	return s, nil
}

// Compress the input bytes. Input must be < 2GB.
// Provide a Scratch buffer to avoid memory allocations.
// Note that the output is also kept in the scratch buffer.
// If input is too hard to compress, ErrIncompressible is returned.
// If input is a single byte value repeated ErrUseRLE is returned.
func Compress(in []byte, s *Scratch) ([]byte, error) {
	if len(in) <= 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrIncompressible, len(in))
	}
	if len(in) > math.MaxInt32 {
		return nil, errors.New("input too big, must be < 2GB")
	}
	s, err := s.prepare()
	if err != nil {
		return nil, err
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

	d := hist.Distribution{
		MaxSymbol: maxSymbol,
		TableLog:  hist.OptimalTableLog(s.TableLog, len(in), maxSymbol),
	}
	d.Norm, err = hist.Normalizer{Tracer: s.Tracer}.Normalize(&s.count, d.TableLog, len(in), maxSymbol)
	if err != nil {
		return nil, err
	}

	bound := hist.NCountBound(d.MaxSymbol, d.TableLog)
	if cap(s.Out) < bound+len(in) {
		s.Out = make([]byte, 0, bound+len(in)+len(in)>>7)
	}
	n, err := hist.WriteNCount(s.Out[:bound], &d)
	if err != nil {
		return nil, err
	}
	if err := s.ct.build(&d); err != nil {
		return nil, err
	}
	s.Out, err = s.ct.Encode(s.Out[:n], in)
	if err != nil {
		return nil, err
	}
	s.Tracer.Debugf("fse: %d -> %d bytes, tablelog %d, header %d bytes, estimate %d bytes",
		len(in), len(s.Out), d.TableLog, n, (s.ct.EstimateBits(&s.count)+7)/8)

	// Check if we compressed.
	if len(s.Out) >= len(in) {
		return nil, ErrIncompressible
	}
	return s.Out, nil
}

// Decompress a block of data.
// The size of the decompressed data must be supplied.
// Provide a Scratch buffer to avoid memory allocations.
// Note that the output is also kept in the scratch buffer.
func Decompress(b []byte, size int, s *Scratch) ([]byte, error) {
	s, err := s.prepare()
	if err != nil {
		return nil, err
	}
	if s.DecompressLimit > 0 && size > s.DecompressLimit {
		return nil, fmt.Errorf("fse: size %d exceeds limit %d", size, s.DecompressLimit)
	}
	d, n, err := hist.ReadNCount(b, s.MaxSymbolValue)
	if err != nil {
		return nil, err
	}
	if err := s.dt.build(&d); err != nil {
		return nil, err
	}
	s.Out, err = s.dt.Decode(s.Out[:0], b[n:], size, s.TrustedInput)
	if err != nil {
		return nil, err
	}
	return s.Out, nil
}
