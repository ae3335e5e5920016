package ansflex

import (
	"sync"

	"github.com/ansflex/ansflex/splitter"
)

// Encoder provides encoding of byte blocks.
// EncodeAll can be called concurrently.
// The zero value is usable with default options.
type Encoder struct {
	o        encoderOptions
	split    *splitter.Splitter
	encoders chan *blockEnc
	init     sync.Once
}

// NewEncoder will create a new Encoder.
func NewEncoder(opts ...EOption) (*Encoder, error) {
	var e Encoder
	e.o.setDefault()
	for _, o := range opts {
		err := o(&e.o)
		if err != nil {
			return nil, err
		}
	}
	var err error
	e.split, err = splitter.New(e.o.split, e.o.blockSize)
	if err != nil {
		return nil, err
	}
	e.init.Do(e.initialize)
	return &e, nil
}

func (e *Encoder) initialize() {
	if e.o.concurrent == 0 {
		e.o.setDefault()
	}
	if e.split == nil {
		// Fixed splitting of the default block size cannot fail.
		e.split, _ = splitter.New(splitter.ModeFixed, e.o.blockSize)
	}
	e.encoders = make(chan *blockEnc, e.o.concurrent)
	for i := 0; i < e.o.concurrent; i++ {
		var enc blockEnc
		enc.init(&e.o)
		e.encoders <- &enc
	}
}

// EncodeAll will encode all input in src and append it to dst.
// Input that cannot be compressed is stored, so encoding cannot fail.
// At most GOMAXPROCS, or the value set with WithEncoderConcurrency,
// calls run at the same time. Others block until one finishes.
func (e *Encoder) EncodeAll(src, dst []byte) []byte {
	if len(src) == 0 {
		return dst
	}
	e.init.Do(e.initialize)
	enc := <-e.encoders
	defer func() {
		e.encoders <- enc
	}()

	start := len(dst)
	e.split.Split(src, func(block []byte) {
		dst = enc.encode(dst, block, &e.o)
	})
	e.o.tracer.Debugf("ansflex: encoded to %d bytes", len(dst)-start)
	return dst
}
