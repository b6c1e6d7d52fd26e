// Copyright (c) 2025 A Bit of Help, Inc.

// Package lz77 implements a sliding-window LZ77 codec with byte-aligned tokens.
//
// Tokens:
//
//	0 dist_hi dist_lo length   copy length bytes from dist bytes back
//	1 literal                   emit literal
package lz77

import (
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

const (
	// WindowSize is how far back the match finder looks
	WindowSize = 4096

	// LookaheadSize is the longest match the encoder emits
	LookaheadSize = 18

	// MinMatch is the shortest match worth a back-reference
	MinMatch = 3

	tagMatch   = 0
	tagLiteral = 1
)

// Compress encodes src, searching the whole window at every position
func Compress(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)/2+16)

	i := 0
	for i < len(src) {
		length, distance := longestMatch(src, i)
		if length >= MinMatch {
			out = append(out, tagMatch, byte(distance>>8), byte(distance), byte(length))
			i += length
			continue
		}
		out = append(out, tagLiteral, src[i])
		i++
	}

	return out, nil
}

// longestMatch scans the window front to back. Only strictly longer matches replace the
// current best, so ties keep the farthest candidate.
func longestMatch(src []byte, i int) (length, distance int) {
	start := i - WindowSize
	if start < 0 {
		start = 0
	}

	limit := LookaheadSize
	if rest := len(src) - i; rest < limit {
		limit = rest
	}

	for j := start; j < i; j++ {
		k := 0
		for k < limit && src[j+k] == src[i+k] {
			k++
		}
		if k > length {
			length = k
			distance = i - j
			if length == limit {
				break
			}
		}
	}

	return length, distance
}

// Decompress decodes a token stream. Back-references are copied one byte at a time so a
// distance shorter than the length repeats the most recent bytes.
func Decompress(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)*2)

	i := 0
	for i < len(src) {
		switch src[i] {
		case tagMatch:
			if i+3 >= len(src) {
				return nil, customErrors.Corrupt("lz77", "decode_match", i, len(src), "truncated match block")
			}
			distance := int(src[i+1])<<8 | int(src[i+2])
			length := int(src[i+3])
			if distance == 0 || distance > len(out) {
				return nil, customErrors.Corrupt("lz77", "decode_match", i, len(src),
					"distance %d outside %d decoded bytes", distance, len(out))
			}
			from := len(out) - distance
			for k := 0; k < length; k++ {
				out = append(out, out[from+k])
			}
			i += 4
		case tagLiteral:
			if i+1 >= len(src) {
				return nil, customErrors.Corrupt("lz77", "decode_literal", i, len(src), "truncated literal block")
			}
			out = append(out, src[i+1])
			i += 2
		default:
			return nil, customErrors.Corrupt("lz77", "decode_tag", i, len(src), "invalid tag byte %d", src[i])
		}
	}

	return out, nil
}
