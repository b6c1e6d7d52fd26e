// Copyright (c) 2025 A Bit of Help, Inc.

// Package lzw implements Lempel-Ziv-Welch coding with fixed 12-bit codes.
//
// Both sides seed a dictionary with the 256 single-byte sequences and grow it by one entry
// per emitted code until it holds MaxCodes entries; after that it is frozen. The dictionary
// is never transmitted. Codes are packed MSB-first and the final byte is zero-padded, which
// never leaves room for a spurious extra code.
package lzw

import (
	"bytes"
	"errors"
	"io"

	"github.com/abitofhelp/multicodec_archiver/pkg/bitstream"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

const (
	// CodeWidth is the number of bits per code
	CodeWidth = 12

	// MaxCodes is the dictionary capacity
	MaxCodes = 1 << CodeWidth

	// seedCodes is the number of single-byte entries every dictionary starts with
	seedCodes = 256
)

// encoder holds the compression dictionary. Entries are keyed by the code of their prefix
// and the byte that extends it.
type encoder struct {
	codes map[uint32]uint16
	next  uint16
	bits  *bitstream.Writer
}

func newEncoder(out io.Writer) *encoder {
	return &encoder{
		codes: make(map[uint32]uint16),
		next:  seedCodes,
		bits:  bitstream.NewWriter(out),
	}
}

func childKey(prefix uint16, b byte) uint32 {
	return uint32(prefix)<<8 | uint32(b)
}

// size reports the number of dictionary entries, seeds included
func (e *encoder) size() int {
	return int(e.next)
}

func (e *encoder) encode(src []byte) error {
	if len(src) == 0 {
		return nil
	}

	w := uint16(src[0])
	for _, c := range src[1:] {
		key := childKey(w, c)
		if code, ok := e.codes[key]; ok {
			w = code
			continue
		}
		if err := e.bits.WriteBits(uint64(w), CodeWidth); err != nil {
			return err
		}
		if e.next < MaxCodes {
			e.codes[key] = e.next
			e.next++
		}
		w = uint16(c)
	}

	return e.bits.WriteBits(uint64(w), CodeWidth)
}

// Compress encodes src as a sequence of 12-bit codes
func Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := newEncoder(&buf)
	if err := enc.encode(src); err != nil {
		return nil, err
	}
	if err := enc.bits.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress rebuilds the dictionary in step with the encoder. A code equal to the next
// free slot is the sequence just decoded plus its own first byte; any other unknown code
// is rejected.
func Decompress(src []byte) ([]byte, error) {
	codes, err := readCodes(src)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return []byte{}, nil
	}

	dict := make([][]byte, seedCodes, MaxCodes)
	for i := range dict {
		dict[i] = []byte{byte(i)}
	}

	first := codes[0]
	if int(first) >= seedCodes {
		return nil, customErrors.Corrupt("lzw", "decode_code", 0, len(src), "first code %d is not a single byte", first)
	}

	out := make([]byte, 0, len(src)*2)
	w := dict[first]
	out = append(out, w...)

	for n, code := range codes[1:] {
		var entry []byte
		switch {
		case int(code) < len(dict):
			entry = dict[code]
		case int(code) == len(dict) && len(dict) < MaxCodes:
			entry = make([]byte, len(w)+1)
			copy(entry, w)
			entry[len(w)] = w[0]
		default:
			return nil, customErrors.Corrupt("lzw", "decode_code", (n+1)*CodeWidth/8, len(src),
				"invalid code %d with %d dictionary entries", code, len(dict))
		}
		out = append(out, entry...)

		if len(dict) < MaxCodes {
			grown := make([]byte, len(w)+1)
			copy(grown, w)
			grown[len(w)] = entry[0]
			dict = append(dict, grown)
		}
		w = entry
	}

	return out, nil
}

// readCodes drains src into 12-bit codes until the bit stream runs dry
func readCodes(src []byte) ([]uint16, error) {
	r := bitstream.NewReader(bytes.NewReader(src))
	codes := make([]uint16, 0, len(src)*8/CodeWidth)
	for {
		code, err := r.ReadBits(CodeWidth)
		if errors.Is(err, io.EOF) {
			return codes, nil
		}
		if err != nil {
			return nil, err
		}
		codes = append(codes, uint16(code))
	}
}
