// Package ansflex compresses byte blocks with tabled asymmetric numeral
// systems (FSE) or length-limited canonical Huffman coding.
//
// Encoder.EncodeAll splits the input into blocks and stores each with the
// codec that gives the smallest output. Blocks that cannot be compressed are
// stored raw, and blocks of one repeated byte are stored as a run.
// Decoder.DecodeAll reverses it.
//
// Block layout:
//
//	raw:   type, uvarint(size), size bytes
//	rle:   type, uvarint(size), the repeated byte
//	fse:   type, uvarint(size), uvarint(n), n bytes from fse.Compress
//	huff0: type, uvarint(size), uvarint(n), n bytes from huff0.Compress1X
//
// The fse and huff0 packages can be used directly when the caller stores
// the decompressed size itself.
package ansflex

import (
	"errors"
	"fmt"

	"github.com/ansflex/ansflex/hist"
	"github.com/ansflex/ansflex/huff0"
)

// MaxBlockSize is the largest block the encoder emits.
const MaxBlockSize = huff0.BlockSizeMax

var (
	// ErrCorruption is returned when the input is not a valid block sequence.
	ErrCorruption = hist.ErrCorruption

	// ErrDecoderSizeExceeded is returned when the output would exceed the
	// size set with WithDecoderMaxSize.
	ErrDecoderSizeExceeded = errors.New("decompressed size exceeds configured limit")
)

// Codec selects the entropy coders the encoder tries.
type Codec uint8

const (
	// CodecAuto tries both coders and keeps the smaller output.
	CodecAuto Codec = iota
	// CodecFSE only uses the FSE coder.
	CodecFSE
	// CodecHuffman only uses the Huffman coder.
	CodecHuffman
)

func (c Codec) String() string {
	switch c {
	case CodecAuto:
		return "auto"
	case CodecFSE:
		return "fse"
	case CodecHuffman:
		return "huffman"
	}
	return fmt.Sprintf("Codec(%d)", uint8(c))
}

type blockType uint8

const (
	blockTypeRaw blockType = iota
	blockTypeRLE
	blockTypeFSE
	blockTypeHuff0
)

func (b blockType) String() string {
	switch b {
	case blockTypeRaw:
		return "raw"
	case blockTypeRLE:
		return "rle"
	case blockTypeFSE:
		return "fse"
	case blockTypeHuff0:
		return "huff0"
	}
	return fmt.Sprintf("blockType(%d)", uint8(b))
}
