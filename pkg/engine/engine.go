// Copyright (c) 2025 A Bit of Help, Inc.

// Package engine selects a codec by name and runs it over a whole buffer, optionally
// splitting the input into chunks that are compressed concurrently.
//
// Parallel compression is only offered for codecs whose outputs can be concatenated
// (see codec.Algorithm.ChunkSafe). Decompression always treats its input as one stream,
// which is exactly how such a concatenation decodes.
package engine

import (
	"fmt"
	"sync"

	"github.com/abitofhelp/multicodec_archiver/pkg/codec"
	"github.com/abitofhelp/multicodec_archiver/pkg/dataprocessor"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline/options"
	"go.uber.org/zap"
)

// Engine compresses and decompresses buffers. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	logger  *zap.Logger
	workers int
	lookup  func(codec.Algorithm) (codec.Codec, error)
}

// Option configures an Engine
type Option func(*Engine)

// WithWorkerCount sets how many chunks a parallel compression is split into.
// Values below 1 are ignored.
func WithWorkerCount(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// New creates an Engine. A nil logger disables logging.
func New(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		logger:  logger,
		workers: options.DefaultWorkerCount,
		lookup:  codec.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compress encodes data with alg. When parallel is set and the codec is chunk-safe, the
// input is split with Chunks and each chunk is compressed on its own goroutine; the
// outputs are joined in chunk order. Any failing or panicking worker fails the whole call.
func (e *Engine) Compress(data []byte, alg codec.Algorithm, parallel bool) ([]byte, error) {
	c, err := e.lookup(alg)
	if err != nil {
		return nil, err
	}

	if parallel && !alg.ChunkSafe() {
		e.logger.Debug("Parallel compression not supported for algorithm; running single-threaded",
			zap.String("algorithm", alg.String()))
		parallel = false
	}

	var out []byte
	chunks := 1
	if parallel && len(data) > 0 {
		var parts [][]byte
		parts, err = e.compressChunks(c, data)
		chunks = len(parts)
		out = concat(parts)
	} else {
		out, err = dataprocessor.Process(c.Compress, data)
	}
	if err != nil {
		e.logger.Error("Compression failed",
			zap.String("algorithm", alg.String()),
			zap.Int("input_size", len(data)),
			zap.Error(err))
		return nil, err
	}

	e.logger.Debug("Compressed data",
		zap.String("algorithm", alg.String()),
		zap.Int("input_size", len(data)),
		zap.Int("output_size", len(out)),
		zap.Int("chunks", chunks))

	return out, nil
}

// Decompress decodes data with alg on the calling goroutine. The parallel flag is accepted
// for symmetry with Compress but only produces a warning. A stream the codec rejects is
// logged and yields a nil result with the codec's error.
func (e *Engine) Decompress(data []byte, alg codec.Algorithm, parallel bool) ([]byte, error) {
	c, err := e.lookup(alg)
	if err != nil {
		return nil, err
	}

	if parallel {
		e.logger.Warn("Parallel decompression is not supported; decoding single-threaded",
			zap.String("algorithm", alg.String()))
	}

	out, err := dataprocessor.Process(c.Decompress, data)
	if err != nil {
		e.logger.Error("Decompression failed",
			zap.String("algorithm", alg.String()),
			zap.Int("input_size", len(data)),
			zap.Error(err))
		return nil, err
	}

	e.logger.Debug("Decompressed data",
		zap.String("algorithm", alg.String()),
		zap.Int("input_size", len(data)),
		zap.Int("output_size", len(out)))

	return out, nil
}

// compressChunks fans the chunks out to one goroutine each and waits for all of them.
// Results are stored by chunk index so the join order never depends on scheduling.
func (e *Engine) compressChunks(c codec.Codec, data []byte) ([][]byte, error) {
	chunks := Chunks(data, e.workers)
	results := make([][]byte, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []byte) {
			defer wg.Done()
			results[i], errs[i] = dataprocessor.Process(c.Compress, chunk)
			if errs[i] == nil {
				e.logger.Debug("Compressed chunk",
					zap.Int("chunk_index", i),
					zap.Int("input_size", len(chunk)),
					zap.Int("output_size", len(results[i])))
			}
		}(i, chunk)
	}
	wg.Wait()

	collector := customErrors.NewErrorCollector()
	for i, err := range errs {
		if err != nil {
			collector.Add(fmt.Errorf("chunk %d: %w", i, err))
		}
	}
	if collector.HasErrors() {
		return nil, collector
	}

	return results, nil
}

// Chunks splits data into at most n contiguous pieces of ceil(len/n) bytes, the last one
// possibly shorter. Empty input, or n below 2, yields a single piece.
func Chunks(data []byte, n int) [][]byte {
	if len(data) == 0 || n < 2 {
		return [][]byte{data}
	}

	size := (len(data) + n - 1) / n
	chunks := make([][]byte, 0, n)
	for start := 0; start < len(data); start += size {
		end := min(start+size, len(data))
		chunks = append(chunks, data[start:end:end])
	}
	return chunks
}

func concat(parts [][]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
