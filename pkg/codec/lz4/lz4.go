// Copyright (c) 2025 A Bit of Help, Inc.

// Package lz4 implements a hash-indexed, LZ4-style matcher with byte-aligned tokens.
//
// This is not the LZ4 block or frame format; see package reference for that.
//
// Tokens:
//
//	0 dist_lo dist_hi length   copy length bytes from dist bytes back
//	1 literal                   emit literal
package lz4

import (
	"encoding/binary"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

const (
	// HashTableSize is the number of match-finder slots
	HashTableSize = 1 << 16

	// MaxDistance is the farthest back-reference a token can carry
	MaxDistance = 65535

	// MaxMatch is the longest match a token can carry
	MaxMatch = 255

	// MinMatch is the shortest match worth a back-reference
	MinMatch = 4

	tagMatch   = 0
	tagLiteral = 1

	emptySlot = -1
)

// Compress encodes src. Each position with at least MinMatch bytes remaining is hashed on
// its first two bytes; the table keeps only the most recent position per hash.
func Compress(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)/2+16)

	table := make([]int32, HashTableSize)
	for i := range table {
		table[i] = emptySlot
	}

	i := 0
	for i < len(src) {
		length, distance := 0, 0

		if i+MinMatch <= len(src) {
			h := hash(src[i], src[i+1])
			candidate := int(table[h])
			table[h] = int32(i)

			if candidate != emptySlot && i-candidate <= MaxDistance {
				length = extend(src, candidate, i)
				distance = i - candidate
			}
		}

		if length >= MinMatch {
			out = append(out, tagMatch)
			out = binary.LittleEndian.AppendUint16(out, uint16(distance))
			out = append(out, byte(length))
			i += length
			continue
		}
		out = append(out, tagLiteral, src[i])
		i++
	}

	return out, nil
}

func hash(b0, b1 byte) uint32 {
	return (uint32(b0)<<8 | uint32(b1)) % HashTableSize
}

// extend counts matching bytes between candidate and pos, up to MaxMatch or end of input
func extend(src []byte, candidate, pos int) int {
	limit := len(src) - pos
	if limit > MaxMatch {
		limit = MaxMatch
	}
	n := 0
	for n < limit && src[candidate+n] == src[pos+n] {
		n++
	}
	return n
}

// Decompress decodes a token stream, validating every offset against the bytes decoded so far
func Decompress(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)*2)

	i := 0
	for i < len(src) {
		switch src[i] {
		case tagMatch:
			if i+3 >= len(src) {
				return nil, customErrors.Corrupt("lz4", "decode_match", i, len(src), "unexpected end of input in match block")
			}
			offset := int(binary.LittleEndian.Uint16(src[i+1 : i+3]))
			length := int(src[i+3])
			if offset == 0 || offset > len(out) {
				return nil, customErrors.Corrupt("lz4", "decode_match", i, len(src), "invalid offset %d", offset)
			}
			from := len(out) - offset
			for k := 0; k < length; k++ {
				if from+k >= len(out) {
					return nil, customErrors.Corrupt("lz4", "decode_match", i, len(src), "back-reference out of bounds")
				}
				out = append(out, out[from+k])
			}
			i += 4
		case tagLiteral:
			if i+1 >= len(src) {
				return nil, customErrors.Corrupt("lz4", "decode_literal", i, len(src), "unexpected end of input in literal block")
			}
			out = append(out, src[i+1])
			i += 2
		default:
			return nil, customErrors.Corrupt("lz4", "decode_tag", i, len(src), "invalid marker %d", src[i])
		}
	}

	return out, nil
}
