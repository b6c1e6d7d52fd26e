// Copyright (c) 2025 A Bit of Help, Inc.

package engine

import (
	"bytes"
	"errors"
	"testing"

	"github.com/abitofhelp/multicodec_archiver/pkg/codec"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec/codectest"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec/rle"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func observedEngine(opts ...Option) (*Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core), opts...), logs
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		n        int
		expected []int
	}{
		{"empty is never split", 0, 4, []int{0}},
		{"even split", 4000, 4, []int{1000, 1000, 1000, 1000}},
		{"last chunk shorter", 10, 4, []int{3, 3, 3, 1}},
		{"fewer chunks than workers", 5, 4, []int{2, 2, 1}},
		{"single byte", 1, 4, []int{1}},
		{"single worker", 10, 1, []int{10}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := codectest.Random(tc.length, 1)
			chunks := Chunks(data, tc.n)

			sizes := make([]int, len(chunks))
			for i, c := range chunks {
				sizes[i] = len(c)
			}
			assert.Equal(t, tc.expected, sizes)
			assert.Equal(t, data, bytes.Join(chunks, nil)[:len(data)])
		})
	}
}

func TestRoundTrip_AllAlgorithms(t *testing.T) {
	e := New(zaptest.NewLogger(t))

	for _, alg := range codec.Algorithms() {
		for _, parallel := range []bool{false, true} {
			name := alg.String()
			if parallel {
				name += "/parallel"
			}
			t.Run(name, func(t *testing.T) {
				for _, s := range codectest.Corpus() {
					compressed, err := e.Compress(s.Data, alg, parallel)
					require.NoError(t, err, s.Name)

					decompressed, err := e.Decompress(compressed, alg, false)
					require.NoError(t, err, s.Name)
					assert.True(t, bytes.Equal(s.Data, decompressed), s.Name)
				}
			})
		}
	}
}

func TestCompress_ParallelRLEUniformBuffer(t *testing.T) {
	e, _ := observedEngine()
	input := bytes.Repeat([]byte{'Q'}, 4000)

	compressed, err := e.Compress(input, codec.RLE, true)
	require.NoError(t, err)

	// the parallel output is the concatenation of the four chunks compressed alone
	var expected []byte
	for _, chunk := range Chunks(input, 4) {
		require.Len(t, chunk, 1000)
		part, err := rle.Compress(chunk)
		require.NoError(t, err)
		expected = append(expected, part...)
	}
	assert.Equal(t, expected, compressed)

	decompressed, err := e.Decompress(compressed, codec.RLE, false)
	require.NoError(t, err)
	assert.Equal(t, input, decompressed)
}

func TestCompress_ParallelDowngrade(t *testing.T) {
	e, logs := observedEngine()
	input := bytes.Repeat([]byte("huffman and lzw keep whole-stream state "), 50)

	for _, alg := range []codec.Algorithm{codec.LZW, codec.Huffman} {
		parallel, err := e.Compress(input, alg, true)
		require.NoError(t, err)
		sequential, err := e.Compress(input, alg, false)
		require.NoError(t, err)
		assert.Equal(t, sequential, parallel, alg.String())
	}

	assert.Equal(t, 2, logs.FilterMessage("Parallel compression not supported for algorithm; running single-threaded").Len())
}

func TestDecompress_ParallelRequestWarns(t *testing.T) {
	e, logs := observedEngine()

	compressed, err := e.Compress([]byte("AAAABBBCCDAA"), codec.RLE, false)
	require.NoError(t, err)

	out, err := e.Decompress(compressed, codec.RLE, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAABBBCCDAA"), out)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "rle", warnings[0].ContextMap()["algorithm"])
}

func TestDecompress_CorruptLZ4OffsetIsLogged(t *testing.T) {
	e, logs := observedEngine()

	// literal 'a', then a match reaching 5 bytes back into a 1-byte output
	corrupt := []byte{1, 'a', 0, 5, 0, 3}

	out, err := e.Decompress(corrupt, codec.LZ4, false)
	assert.Empty(t, out)
	assert.True(t, customErrors.IsCorruptStream(err))

	errorsLogged := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorsLogged, 1)
	assert.Equal(t, "Decompression failed", errorsLogged[0].Message)
	assert.Equal(t, "lz4", errorsLogged[0].ContextMap()["algorithm"])
}

func TestUnknownAlgorithm(t *testing.T) {
	e := New(nil)

	_, err := e.Compress([]byte("x"), codec.Algorithm("gzip"), false)
	assert.ErrorIs(t, err, customErrors.ErrUnknownAlgorithm)

	_, err = e.Decompress([]byte("x"), codec.Algorithm("gzip"), false)
	assert.ErrorIs(t, err, customErrors.ErrUnknownAlgorithm)
}

// stubCodec lets a test control what each chunk worker does
type stubCodec struct {
	compress func([]byte) ([]byte, error)
}

func (s stubCodec) Algorithm() codec.Algorithm             { return codec.RLE }
func (s stubCodec) Compress(data []byte) ([]byte, error)   { return s.compress(data) }
func (s stubCodec) Decompress(data []byte) ([]byte, error) { return data, nil }

func withStub(e *Engine, s stubCodec) {
	e.lookup = func(codec.Algorithm) (codec.Codec, error) { return s, nil }
}

func TestCompress_WorkerPanicFailsWholeCall(t *testing.T) {
	e, logs := observedEngine()
	withStub(e, stubCodec{compress: func(chunk []byte) ([]byte, error) {
		if chunk[0] == 'c' {
			panic("worker exploded")
		}
		return chunk, nil
	}})

	out, err := e.Compress([]byte("aaabbbcccddd"), codec.RLE, true)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, customErrors.ErrPanic)
	assert.Contains(t, err.Error(), "chunk 2")
	assert.Equal(t, 1, logs.FilterMessage("Compression failed").Len())
}

func TestCompress_WorkerErrorsAreCollected(t *testing.T) {
	e, _ := observedEngine()
	boom := errors.New("boom")
	withStub(e, stubCodec{compress: func(chunk []byte) ([]byte, error) {
		if chunk[0] != 'a' {
			return nil, boom
		}
		return chunk, nil
	}})

	_, err := e.Compress([]byte("aaabbbcccddd"), codec.RLE, true)
	require.Error(t, err)

	var collector *customErrors.ErrorCollector
	require.ErrorAs(t, err, &collector)
	assert.Len(t, collector.Errors(), 3)
	assert.ErrorIs(t, err, boom)
}

func TestWithWorkerCount(t *testing.T) {
	e, _ := observedEngine(WithWorkerCount(2))
	done := make(chan []byte, 8)
	withStub(e, stubCodec{compress: func(chunk []byte) ([]byte, error) {
		done <- chunk
		return chunk, nil
	}})

	out, err := e.Compress([]byte("abcdef"), codec.RLE, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), out)

	close(done)
	var seen [][]byte
	for c := range done {
		seen = append(seen, c)
	}
	assert.Len(t, seen, 2)

	assert.Equal(t, 4, New(nil, WithWorkerCount(0)).workers)
}
