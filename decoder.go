package ansflex

import (
	"sync"
)

// Decoder provides decoding of block sequences written by an Encoder.
// DecodeAll can be called concurrently.
// The zero value is usable with default options.
type Decoder struct {
	o        decoderOptions
	decoders chan *blockDec
	init     sync.Once
}

// NewDecoder will create a new Decoder.
func NewDecoder(opts ...DOption) (*Decoder, error) {
	var d Decoder
	d.o.setDefault()
	for _, o := range opts {
		if err := o(&d.o); err != nil {
			return nil, err
		}
	}
	d.init.Do(d.initialize)
	return &d, nil
}

func (d *Decoder) initialize() {
	if d.o.concurrent == 0 {
		d.o.setDefault()
	}
	d.decoders = make(chan *blockDec, d.o.concurrent)
	for i := 0; i < d.o.concurrent; i++ {
		var dec blockDec
		dec.init(&d.o)
		d.decoders <- &dec
	}
}

// DecodeAll decodes all blocks in input and appends the output to dst.
// On error dst is returned unmodified.
func (d *Decoder) DecodeAll(input, dst []byte) ([]byte, error) {
	if len(input) == 0 {
		return dst, nil
	}
	d.init.Do(d.initialize)
	dec := <-d.decoders
	defer func() {
		d.decoders <- dec
	}()

	start := len(dst)
	var err error
	for len(input) > 0 {
		written := uint64(len(dst) - start)
		dst, input, err = dec.decode(dst, input, d.o.maxSize-written)
		if err != nil {
			d.o.tracer.Debugf("ansflex: decoding failed after %d bytes: %v", written, err)
			return dst[:start], err
		}
	}
	return dst, nil
}
