// Copyright (c) 2025 A Bit of Help, Inc.

// Package codec defines the codec contract and the registry of named algorithms.
//
// Every codec is a stateless value: each call allocates its own tables, so a single
// Codec may be used from many goroutines at once.
package codec

import (
	"fmt"
	"strings"

	"github.com/abitofhelp/multicodec_archiver/pkg/codec/huffman"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec/lz4"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec/lz77"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec/lzw"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec/reference"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec/rle"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

// Algorithm names a codec
type Algorithm string

// Native codecs
const (
	RLE     Algorithm = "rle"
	LZ77    Algorithm = "lz77"
	LZ4     Algorithm = "lz4"
	LZW     Algorithm = "lzw"
	Huffman Algorithm = "huffman"
)

// Library-backed codecs, kept for comparison against the native ones
const (
	Brotli   Algorithm = "brotli"
	Zstd     Algorithm = "zstd"
	Snappy   Algorithm = "snappy"
	LZ4Frame Algorithm = "lz4frame"
)

// Codec transforms a whole buffer in memory
type Codec interface {
	Algorithm() Algorithm
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

type transformFunc func([]byte) ([]byte, error)

type funcCodec struct {
	alg        Algorithm
	compress   transformFunc
	decompress transformFunc
}

func (c funcCodec) Algorithm() Algorithm                   { return c.alg }
func (c funcCodec) Compress(data []byte) ([]byte, error)   { return c.compress(data) }
func (c funcCodec) Decompress(data []byte) ([]byte, error) { return c.decompress(data) }

// registry is in display order: native codecs first
var registry = []funcCodec{
	{RLE, rle.Compress, rle.Decompress},
	{LZ77, lz77.Compress, lz77.Decompress},
	{LZ4, lz4.Compress, lz4.Decompress},
	{LZW, lzw.Compress, lzw.Decompress},
	{Huffman, huffman.Compress, huffman.Decompress},
	{Brotli, reference.BrotliCompress, reference.BrotliDecompress},
	{Zstd, reference.ZstdCompress, reference.ZstdDecompress},
	{Snappy, reference.SnappyCompress, reference.SnappyDecompress},
	{LZ4Frame, reference.LZ4FrameCompress, reference.LZ4FrameDecompress},
}

var aliases = map[string]Algorithm{
	"hf": Huffman,
}

// Parse resolves a user-supplied name, ignoring case and surrounding spaces
func Parse(name string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alg, ok := aliases[key]; ok {
		return alg, nil
	}
	for _, c := range registry {
		if string(c.alg) == key {
			return c.alg, nil
		}
	}
	return "", fmt.Errorf("%w: %q", customErrors.ErrUnknownAlgorithm, name)
}

// New returns the codec registered for alg
func New(alg Algorithm) (Codec, error) {
	for _, c := range registry {
		if c.alg == alg {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", customErrors.ErrUnknownAlgorithm, string(alg))
}

// ChunkSafe reports whether independently compressed chunks of this codec can be
// concatenated and still decode as one stream.
func (a Algorithm) ChunkSafe() bool {
	switch a {
	case RLE, LZ77, LZ4:
		return true
	default:
		return false
	}
}

// Native reports whether the codec is implemented in this module
func (a Algorithm) Native() bool {
	switch a {
	case RLE, LZ77, LZ4, LZW, Huffman:
		return true
	default:
		return false
	}
}

func (a Algorithm) String() string {
	return string(a)
}

// Algorithms lists every registered algorithm, native codecs first
func Algorithms() []Algorithm {
	algs := make([]Algorithm, len(registry))
	for i, c := range registry {
		algs[i] = c.alg
	}
	return algs
}
