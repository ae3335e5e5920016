package ansflex

import (
	"fmt"
	"runtime"

	"github.com/ansflex/ansflex/hist"
	"github.com/ansflex/ansflex/splitter"
	"github.com/ansflex/ansflex/trace"
)

// EOption is an option for creating a encoder.
type EOption func(*encoderOptions) error

// options retains accumulated state of multiple options.
type encoderOptions struct {
	concurrent int
	codec      Codec
	tableLog   uint8
	blockSize  int
	split      splitter.Mode
	estimate   bool
	counter    hist.CounterFunc
	tracer     trace.Tracer
	traced     bool
}

func (o *encoderOptions) setDefault() {
	*o = encoderOptions{
		concurrent: runtime.GOMAXPROCS(0),
		codec:      CodecAuto,
		tableLog:   hist.DefaultTableLog,
		blockSize:  MaxBlockSize,
		counter:    hist.CountSimple,
		tracer:     trace.Nop(),
	}
}

// WithEncoderConcurrency will set the concurrency,
// meaning the maximum number of blocks to encode concurrently.
// The value supplied must be at least 1.
// By default this will be set to GOMAXPROCS.
func WithEncoderConcurrency(n int) EOption {
	return func(o *encoderOptions) error {
		if n <= 0 {
			return fmt.Errorf("concurrency must be at least 1")
		}
		o.concurrent = n
		return nil
	}
}

// WithCodec selects the coders to use.
// By default both are tried and the smaller output is kept.
func WithCodec(c Codec) EOption {
	return func(o *encoderOptions) error {
		if c > CodecHuffman {
			return fmt.Errorf("unknown codec %v", c)
		}
		o.codec = c
		return nil
	}
}

// WithTableLog sets the FSE table log and the maximum Huffman code length.
// The value must be between 5 and 12. The default is 11.
// Small values may leave the Huffman coder unable to code all symbols,
// in which case the block is stored by another coder.
func WithTableLog(n uint8) EOption {
	return func(o *encoderOptions) error {
		if n < hist.MinTableLog || n > hist.MaxTableLog {
			return fmt.Errorf("table log must be between %d and %d, got %d", hist.MinTableLog, hist.MaxTableLog, n)
		}
		o.tableLog = n
		return nil
	}
}

// WithBlockSize sets the maximum size of each block.
// The value must be between 1 and MaxBlockSize, which is the default.
func WithBlockSize(n int) EOption {
	return func(o *encoderOptions) error {
		if n <= 0 || n > MaxBlockSize {
			return fmt.Errorf("block size must be between 1 and %d, got %d", MaxBlockSize, n)
		}
		o.blockSize = n
		return nil
	}
}

// WithSplitMode selects how input is divided into blocks.
// By default blocks are cut at the block size.
// The content defined modes cut smaller blocks where the data changes,
// and require a block size of at least splitter.MinBlockSize.
func WithSplitMode(m splitter.Mode) EOption {
	return func(o *encoderOptions) error {
		if m < splitter.ModeFixed || m > splitter.ModeEntropy {
			return fmt.Errorf("unknown split mode %v", m)
		}
		o.split = m
		return nil
	}
}

// WithEstimate will store blocks raw without trying to compress them
// when Estimate predicts they are incompressible.
// This trades a little compression for speed on random data.
func WithEstimate(b bool) EOption {
	return func(o *encoderOptions) error { o.estimate = b; return nil }
}

// WithCounter sets the histogram function used by the coders.
func WithCounter(c hist.CounterFunc) EOption {
	return func(o *encoderOptions) error {
		if c == nil {
			return fmt.Errorf("counter must not be nil")
		}
		o.counter = c
		return nil
	}
}

// WithTracer sets where the encoder reports diagnostics.
// The tracer must be safe for concurrent use.
func WithTracer(t trace.Tracer) EOption {
	return func(o *encoderOptions) error {
		o.tracer = trace.OrNop(t)
		o.traced = t != nil
		return nil
	}
}
