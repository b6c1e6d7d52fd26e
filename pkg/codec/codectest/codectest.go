// Copyright (c) 2025 A Bit of Help, Inc.

// Package codectest provides shared inputs and round-trip assertions for codec tests.
package codectest

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Func is the shape shared by every codec's Compress and Decompress
type Func func([]byte) ([]byte, error)

// Sample is a named test input
type Sample struct {
	Name string
	Data []byte
}

// Random returns n pseudo-random bytes from a fixed seed
func Random(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, n)
	rng.Read(data)
	return data
}

// Corpus returns the inputs every codec must round-trip
func Corpus() []Sample {
	text := []byte("The quick brown fox jumps over the lazy dog. ")

	ramp := make([]byte, 1024)
	for i := range ramp {
		ramp[i] = byte(i)
	}

	return []Sample{
		{"empty", []byte{}},
		{"single byte", []byte("A")},
		{"two distinct bytes", []byte("AB")},
		{"pair", []byte("AA")},
		{"mixed runs", []byte("AAAABBBCCDAA")},
		{"all identical", bytes.Repeat([]byte{0x42}, 5000)},
		{"long zero run", make([]byte, 70000)},
		{"text", bytes.Repeat(text, 50)},
		{"byte ramp", ramp},
		{"alternating", bytes.Repeat([]byte{0x00, 0xFF}, 700)},
		{"random small", Random(257, 1)},
		{"random large", Random(20000, 2)},
		{"mixed runs and noise", append(append(bytes.Repeat([]byte("x"), 300), Random(300, 3)...), bytes.Repeat([]byte("yz"), 300)...)},
	}
}

// RoundTrip asserts decompress(compress(x)) == x for every corpus sample
func RoundTrip(t *testing.T, compress, decompress Func) {
	t.Helper()

	for _, s := range Corpus() {
		t.Run(s.Name, func(t *testing.T) {
			encoded, err := compress(s.Data)
			require.NoError(t, err)

			decoded, err := decompress(encoded)
			require.NoError(t, err)

			if len(s.Data) == 0 {
				assert.Empty(t, decoded)
				return
			}
			assert.True(t, bytes.Equal(s.Data, decoded),
				"round trip mismatch: input %d bytes, output %d bytes", len(s.Data), len(decoded))
		})
	}
}

// Deterministic asserts that compressing the same input twice yields identical bytes
func Deterministic(t *testing.T, compress Func) {
	t.Helper()

	for _, s := range Corpus() {
		first, err := compress(s.Data)
		require.NoError(t, err, s.Name)
		second, err := compress(s.Data)
		require.NoError(t, err, s.Name)
		assert.Equal(t, first, second, s.Name)
	}
}
