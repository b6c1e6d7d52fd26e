// Copyright (c) 2025 A Bit of Help, Inc.

// Package bitstream adapts byte sinks and sources to MSB-first bit I/O.
//
// Codes are written most significant bit first into each output byte; the final
// partial byte is padded with zero bits on Close. Readers report io.EOF once the
// source cannot supply the requested number of bits, which the LZW and Huffman
// decoders treat as the end of the code stream.
package bitstream

import (
	"errors"
	"io"

	"github.com/icza/bitio"
)

// Writer packs bits into bytes, most significant bit first
type Writer struct {
	w *bitio.Writer
}

// NewWriter returns a Writer that emits whole bytes to out
func NewWriter(out io.Writer) *Writer {
	return &Writer{w: bitio.NewWriter(out)}
}

// WriteBits writes the n low-order bits of value, highest of them first
func (w *Writer) WriteBits(value uint64, n uint8) error {
	if n == 0 {
		return nil
	}
	if n < 64 {
		value &= 1<<n - 1
	}
	return w.w.WriteBits(value, n)
}

// WriteBit writes a single bit
func (w *Writer) WriteBit(bit bool) error {
	return w.w.WriteBool(bit)
}

// Close flushes the pending partial byte, zero-padded
func (w *Writer) Close() error {
	return w.w.Close()
}

// Reader unpacks bits from bytes, most significant bit first
type Reader struct {
	r *bitio.Reader
}

// NewReader returns a Reader over in
func NewReader(in io.Reader) *Reader {
	return &Reader{r: bitio.NewReader(in)}
}

// ReadBits reads n bits and returns them in the low-order bits of the result.
// It returns io.EOF when fewer than n bits remain.
func (r *Reader) ReadBits(n uint8) (uint64, error) {
	v, err := r.r.ReadBits(n)
	if err != nil {
		return 0, normalizeEOF(err)
	}
	return v, nil
}

// ReadBit reads a single bit
func (r *Reader) ReadBit() (bool, error) {
	b, err := r.r.ReadBool()
	if err != nil {
		return false, normalizeEOF(err)
	}
	return b, nil
}

func normalizeEOF(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}
