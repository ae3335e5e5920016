package ansflex

import (
	"fmt"
	"runtime"

	"github.com/ansflex/ansflex/trace"
)

// DOption is an option for creating a decoder.
type DOption func(*decoderOptions) error

// options retains accumulated state of multiple options.
type decoderOptions struct {
	concurrent int
	maxSize    uint64
	trusted    bool
	tracer     trace.Tracer
}

func (o *decoderOptions) setDefault() {
	*o = decoderOptions{
		concurrent: runtime.GOMAXPROCS(0),
		maxSize:    1 << 30,
		tracer:     trace.Nop(),
	}
	if o.concurrent > 4 {
		o.concurrent = 4
	}
}

// WithDecoderConcurrency will set the concurrency,
// meaning the maximum number of decoders to run concurrently.
// The value supplied must be at least 1.
// By default this will be set to GOMAXPROCS, but at most 4.
func WithDecoderConcurrency(n int) DOption {
	return func(o *decoderOptions) error {
		if n <= 0 {
			return fmt.Errorf("concurrency must be at least 1")
		}
		o.concurrent = n
		return nil
	}
}

// WithDecoderMaxSize sets the maximum size DecodeAll will produce
// for a single input. The default is 1 GiB.
func WithDecoderMaxSize(n uint64) DOption {
	return func(o *decoderOptions) error {
		if n == 0 {
			return fmt.Errorf("decoder max size must be at least 1")
		}
		o.maxSize = n
		return nil
	}
}

// WithTrustedInput enables the unchecked FSE decoding path.
// Only use it for input produced by an Encoder.
// Corrupt input may then decode to garbage instead of returning an error.
func WithTrustedInput(b bool) DOption {
	return func(o *decoderOptions) error { o.trusted = b; return nil }
}

// WithDecoderTracer sets where the decoder reports diagnostics.
// The tracer must be safe for concurrent use.
func WithDecoderTracer(t trace.Tracer) DOption {
	return func(o *decoderOptions) error { o.tracer = trace.OrNop(t); return nil }
}
