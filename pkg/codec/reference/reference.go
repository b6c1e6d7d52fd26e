// Copyright (c) 2025 A Bit of Help, Inc.

// Package reference wraps production compression libraries behind the same
// Compress/Decompress shape as the native codecs, so their output sizes can be compared
// against ours on identical inputs. Each format is self-framed by its library.
package reference

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

// BrotliCompress compresses data using Brotli at the default quality
func BrotliCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	compressor := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)

	if _, err := compressor.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}

	if err := compressor.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize compression: %w", err)
	}

	return buf.Bytes(), nil
}

// BrotliDecompress reverses BrotliCompress
func BrotliDecompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, corrupt("brotli", err)
	}
	return out, nil
}

// ZstdCompress compresses data as a single zstd frame
func ZstdCompress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// ZstdDecompress reverses ZstdCompress
func ZstdDecompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, corrupt("zstd", err)
	}
	return out, nil
}

// SnappyCompress compresses data in the snappy block format
func SnappyCompress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

// SnappyDecompress reverses SnappyCompress
func SnappyDecompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, corrupt("snappy", err)
	}
	return out, nil
}

// LZ4FrameCompress compresses data in the LZ4 frame format
func LZ4FrameCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize compression: %w", err)
	}

	return buf.Bytes(), nil
}

// LZ4FrameDecompress reverses LZ4FrameCompress
func LZ4FrameDecompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, corrupt("lz4frame", err)
	}
	return out, nil
}

func corrupt(component string, err error) error {
	return customErrors.Corrupt(component, "decode", 0, 0, "%v", err)
}
