// Copyright (c) 2025 A Bit of Help, Inc.

// Package rle implements run-length encoding with a literal escape.
//
// The stream is a sequence of blocks, each starting with a tag byte:
//
//	1..127    run block: the next byte is repeated tag times
//	129..255  literal block: the next tag-128 bytes are copied verbatim
//
// Tags 0 and 128 are never produced.
package rle

import (
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

const (
	// MaxRun is the longest run a single run block can describe
	MaxRun = 127

	// MaxLiteral is the longest literal block
	MaxLiteral = 127

	literalFlag = 0x80
)

// Compress encodes src. Runs of two or more equal bytes become run blocks; everything else
// is gathered into literal blocks that end where three equal bytes begin.
func Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}

	out := make([]byte, 0, len(src)+len(src)/MaxLiteral+1)
	i := 0
	for i < len(src) {
		run := runLength(src, i)
		if run >= 2 || i == len(src)-1 {
			out = append(out, byte(run), src[i])
			i += run
			continue
		}

		start := i
		for i < len(src) && i-start < MaxLiteral && !tripleAt(src, i) {
			i++
		}
		out = append(out, byte(literalFlag+i-start))
		out = append(out, src[start:i]...)
	}

	return out, nil
}

// Decompress decodes a stream produced by Compress. A block cut short at the end of src is
// dropped; a zero-length tag is rejected.
func Decompress(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)*2)
	i := 0
	for i < len(src) {
		tag := int(src[i])
		switch {
		case tag == 0 || tag == literalFlag:
			return nil, customErrors.Corrupt("rle", "decode_tag", i, len(src), "invalid tag byte %d", tag)
		case tag < literalFlag:
			if i+1 >= len(src) {
				return out, nil
			}
			for n := 0; n < tag; n++ {
				out = append(out, src[i+1])
			}
			i += 2
		default:
			count := tag - literalFlag
			if i+1+count > len(src) {
				return out, nil
			}
			out = append(out, src[i+1:i+1+count]...)
			i += 1 + count
		}
	}

	return out, nil
}

// runLength counts how many bytes starting at i equal src[i], up to MaxRun
func runLength(src []byte, i int) int {
	n := 1
	for i+n < len(src) && n < MaxRun && src[i+n] == src[i] {
		n++
	}
	return n
}

func tripleAt(src []byte, i int) bool {
	return i+2 < len(src) && src[i] == src[i+1] && src[i+1] == src[i+2]
}
