package ansflex

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ansflex/ansflex/fse"
	"github.com/ansflex/ansflex/huff0"
)

// minEstimate is the Estimate below which a block is not compressed
// when WithEstimate is set.
const minEstimate = 0.1

// blockEnc holds the state for encoding one block at the time.
type blockEnc struct {
	fse  fse.Scratch
	huff huff0.Scratch
}

func (b *blockEnc) init(o *encoderOptions) {
	b.fse = fse.Scratch{TableLog: o.tableLog, Counter: o.counter, Tracer: o.tracer}
	b.huff = huff0.Scratch{TableLog: o.tableLog, Counter: o.counter, Tracer: o.tracer}
}

// encode appends src as a single block to dst.
func (b *blockEnc) encode(dst, src []byte, o *encoderOptions) []byte {
	if o.estimate {
		if est := Estimate(src); est < minEstimate {
			o.tracer.Debugf("ansflex: %d byte block estimated incompressible (%.4f)", len(src), est)
			return appendRaw(dst, src)
		}
	}
	var (
		best    []byte
		bestTyp = blockTypeRaw
	)
	if o.codec != CodecHuffman {
		out, err := fse.Compress(src, &b.fse)
		switch {
		case errors.Is(err, fse.ErrUseRLE):
			return appendRLE(dst, src)
		case err == nil:
			best, bestTyp = out, blockTypeFSE
		case !errors.Is(err, fse.ErrIncompressible):
			o.tracer.Infof("ansflex: fse: %v", err)
		}
	}
	if o.codec != CodecFSE {
		out, err := huff0.Compress1X(src, &b.huff)
		switch {
		case errors.Is(err, huff0.ErrUseRLE):
			return appendRLE(dst, src)
		case err == nil:
			if best == nil || len(out) < len(best) {
				best, bestTyp = out, blockTypeHuff0
			}
		case !errors.Is(err, huff0.ErrIncompressible):
			o.tracer.Infof("ansflex: huff0: %v", err)
		}
	}
	// The compressed size is stored in addition to the block size.
	if best == nil || len(best)+uvarintLen(uint64(len(best))) >= len(src) {
		o.tracer.Debugf("ansflex: %d byte block stored raw", len(src))
		return appendRaw(dst, src)
	}
	if o.traced {
		o.tracer.Debugf("ansflex: %d byte block coded with %v to %d bytes, entropy bound %d bytes",
			len(src), bestTyp, len(best), (ShannonEntropyBits(src)+7)/8)
	}
	dst = append(dst, byte(bestTyp))
	dst = binary.AppendUvarint(dst, uint64(len(src)))
	dst = binary.AppendUvarint(dst, uint64(len(best)))
	return append(dst, best...)
}

func appendRaw(dst, src []byte) []byte {
	dst = append(dst, byte(blockTypeRaw))
	dst = binary.AppendUvarint(dst, uint64(len(src)))
	return append(dst, src...)
}

func appendRLE(dst, src []byte) []byte {
	dst = append(dst, byte(blockTypeRLE))
	dst = binary.AppendUvarint(dst, uint64(len(src)))
	return append(dst, src[0])
}

func uvarintLen(v uint64) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], v)
}

// blockDec holds the state for decoding one block at the time.
type blockDec struct {
	fse  fse.Scratch
	huff huff0.Scratch
}

func (b *blockDec) init(o *decoderOptions) {
	b.fse = fse.Scratch{DecompressLimit: MaxBlockSize, TrustedInput: o.trusted, Tracer: o.tracer}
	b.huff = huff0.Scratch{MaxDecodedSize: MaxBlockSize, Tracer: o.tracer}
}

// decode appends the first block of src to dst.
// The remaining input is returned.
// limit is the number of bytes the block may decode to.
func (b *blockDec) decode(dst, src []byte, limit uint64) ([]byte, []byte, error) {
	typ := blockType(src[0])
	size, n := binary.Uvarint(src[1:])
	if n <= 0 {
		return dst, nil, fmt.Errorf("%w: invalid %v block size", ErrCorruption, typ)
	}
	src = src[1+n:]
	if size > MaxBlockSize {
		return dst, nil, fmt.Errorf("%w: %v block size %d > %d", ErrCorruption, typ, size, MaxBlockSize)
	}
	if size > limit {
		return dst, nil, ErrDecoderSizeExceeded
	}
	switch typ {
	case blockTypeRaw:
		if uint64(len(src)) < size {
			return dst, nil, fmt.Errorf("%w: raw block truncated", ErrCorruption)
		}
		return append(dst, src[:size]...), src[size:], nil
	case blockTypeRLE:
		if len(src) < 1 {
			return dst, nil, fmt.Errorf("%w: rle block truncated", ErrCorruption)
		}
		for i := uint64(0); i < size; i++ {
			dst = append(dst, src[0])
		}
		return dst, src[1:], nil
	case blockTypeFSE, blockTypeHuff0:
	default:
		return dst, nil, fmt.Errorf("%w: unknown block type %d", ErrCorruption, typ)
	}

	csize, n := binary.Uvarint(src)
	if n <= 0 || csize > uint64(len(src)-n) {
		return dst, nil, fmt.Errorf("%w: invalid %v payload size", ErrCorruption, typ)
	}
	payload := src[n : n+int(csize)]
	src = src[n+int(csize):]
	dst, err := b.decodePayload(dst, typ, int(size), payload)
	if err != nil {
		return dst, nil, err
	}
	return dst, src, nil
}

// decodePayload appends the size bytes coded in an fse or huff0 payload to dst.
func (b *blockDec) decodePayload(dst []byte, typ blockType, size int, payload []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch typ {
	case blockTypeFSE:
		out, err = fse.Decompress(payload, size, &b.fse)
	case blockTypeHuff0:
		out, err = huff0.Decompress1X(payload, size, &b.huff)
	default:
		return dst, fmt.Errorf("%w: %v block has no payload", ErrCorruption, typ)
	}
	if err != nil {
		return dst, fmt.Errorf("%v block: %w", typ, err)
	}
	return append(dst, out...), nil
}
