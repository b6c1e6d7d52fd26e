// Copyright (c) 2025 A Bit of Help, Inc.

// Package huffman implements a static, frequency-driven Huffman coder.
//
// Layout (all integers big-endian):
//
//	u32 original length
//	u16 number of distinct symbols
//	    per symbol, ascending byte value: u8 symbol, u32 frequency
//	u32 payload length in bytes
//	    payload: codes packed MSB-first, last byte zero-padded
//
// The decoder rebuilds the tree from the frequency table, so the header is all it needs.
// Empty input encodes to empty output.
package huffman

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/abitofhelp/multicodec_archiver/pkg/bitstream"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

const (
	lengthFieldSize = 4
	countFieldSize  = 2
	symbolEntrySize = 5
)

// frequencyTable lists the symbols present in ascending byte order with their counts
type frequencyTable struct {
	symbols []byte
	counts  [256]uint64
}

func countFrequencies(src []byte) *frequencyTable {
	ft := &frequencyTable{}
	for _, b := range src {
		ft.counts[b]++
	}
	for s := 0; s < 256; s++ {
		if ft.counts[s] > 0 {
			ft.symbols = append(ft.symbols, byte(s))
		}
	}
	return ft
}

// Compress encodes src. Inputs longer than 4 GiB - 1 cannot be described by the header.
func Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	if uint64(len(src)) > math.MaxUint32 {
		return nil, errors.New("huffman: input exceeds 4 GiB")
	}

	freqs := countFrequencies(src)
	table := buildTree(freqs).codes()

	var payload bytes.Buffer
	bw := bitstream.NewWriter(&payload)
	for _, b := range src {
		c := table[b]
		if err := bw.WriteBits(c.bits, c.width); err != nil {
			return nil, err
		}
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}

	headerSize := lengthFieldSize + countFieldSize + symbolEntrySize*len(freqs.symbols) + lengthFieldSize
	out := make([]byte, 0, headerSize+payload.Len())
	out = binary.BigEndian.AppendUint32(out, uint32(len(src)))
	out = binary.BigEndian.AppendUint16(out, uint16(len(freqs.symbols)))
	for _, s := range freqs.symbols {
		out = append(out, s)
		out = binary.BigEndian.AppendUint32(out, uint32(freqs.counts[s]))
	}
	out = binary.BigEndian.AppendUint32(out, uint32(payload.Len()))
	out = append(out, payload.Bytes()...)

	return out, nil
}

// Decompress decodes exactly the original length; padding bits after the last symbol
// are ignored.
func Decompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}

	h, err := parseHeader(src)
	if err != nil {
		return nil, err
	}

	t := buildTree(h.freqs)

	root := &t.nodes[t.root]
	if root.leaf {
		return bytes.Repeat([]byte{root.symbol}, h.originalLen), nil
	}

	// every symbol costs at least one bit
	if h.originalLen > 8*len(h.payload) {
		return nil, customErrors.Corrupt("huffman", "decode_payload", len(src), len(src),
			"%d payload bytes cannot hold %d symbols", len(h.payload), h.originalLen)
	}

	out := make([]byte, 0, h.originalLen)
	br := bitstream.NewReader(bytes.NewReader(h.payload))
	cur := t.root
	for len(out) < h.originalLen {
		bit, err := br.ReadBit()
		if errors.Is(err, io.EOF) {
			return nil, customErrors.Corrupt("huffman", "decode_payload", len(src), len(src),
				"payload ends after %d of %d symbols", len(out), h.originalLen)
		}
		if err != nil {
			return nil, err
		}

		n := &t.nodes[cur]
		if bit {
			cur = n.right
		} else {
			cur = n.left
		}
		if leaf := &t.nodes[cur]; leaf.leaf {
			out = append(out, leaf.symbol)
			cur = t.root
		}
	}

	return out, nil
}

type header struct {
	originalLen int
	freqs       *frequencyTable
	payload     []byte
}

func parseHeader(src []byte) (*header, error) {
	corrupt := func(offset int, format string, args ...any) error {
		return customErrors.Corrupt("huffman", "decode_header", offset, len(src), format, args...)
	}

	off := 0
	if len(src) < lengthFieldSize+countFieldSize {
		return nil, corrupt(off, "header truncated")
	}
	originalLen := int(binary.BigEndian.Uint32(src[off:]))
	off += lengthFieldSize
	symbolCount := int(binary.BigEndian.Uint16(src[off:]))
	off += countFieldSize

	if symbolCount == 0 || symbolCount > 256 {
		return nil, corrupt(off, "invalid symbol count %d", symbolCount)
	}
	if len(src)-off < symbolCount*symbolEntrySize+lengthFieldSize {
		return nil, corrupt(off, "frequency table truncated")
	}

	ft := &frequencyTable{}
	var total uint64
	for i := 0; i < symbolCount; i++ {
		s := src[off]
		f := uint64(binary.BigEndian.Uint32(src[off+1:]))
		if f == 0 || ft.counts[s] != 0 {
			return nil, corrupt(off, "invalid frequency entry for symbol %d", s)
		}
		ft.counts[s] = f
		total += f
		off += symbolEntrySize
	}
	for s := 0; s < 256; s++ {
		if ft.counts[s] > 0 {
			ft.symbols = append(ft.symbols, byte(s))
		}
	}
	if total != uint64(originalLen) {
		return nil, corrupt(off, "frequencies sum to %d, expected %d", total, originalLen)
	}

	payloadLen := int(binary.BigEndian.Uint32(src[off:]))
	off += lengthFieldSize
	if payloadLen > len(src)-off {
		return nil, corrupt(off, "payload length %d exceeds %d remaining bytes", payloadLen, len(src)-off)
	}

	return &header{
		originalLen: originalLen,
		freqs:       ft,
		payload:     src[off : off+payloadLen],
	}, nil
}
