// Copyright (c) 2025 A Bit of Help, Inc.

// Package pipeline runs a whole compress or decompress request from disk to disk.
//
// Compression: collect files -> pack archive -> engine -> optional seal -> write.
// Decompression reverses it: read -> optional open -> engine -> unpack -> materialize.
//
// Each stage works on the complete buffer. The context is honored between stages and
// inside the file stages; a codec call that has started runs to completion.
package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/abitofhelp/multicodec_archiver/pkg/archive"
	"github.com/abitofhelp/multicodec_archiver/pkg/codec"
	"github.com/abitofhelp/multicodec_archiver/pkg/dataprocessor"
	"github.com/abitofhelp/multicodec_archiver/pkg/encryption"
	"github.com/abitofhelp/multicodec_archiver/pkg/engine"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/abitofhelp/multicodec_archiver/pkg/filesystem"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline/options"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline/reader"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline/writer"
	"github.com/abitofhelp/multicodec_archiver/pkg/stats"
	"go.uber.org/zap"
)

// Run dispatches on opts.Mode
func Run(ctx context.Context, logger *zap.Logger, opts *options.Options) (*stats.Stats, error) {
	if opts != nil && opts.Mode == options.ModeDecompress {
		return Decompress(ctx, logger, opts)
	}
	return Compress(ctx, logger, opts)
}

// Compress packs opts.InputPath (a file or a directory) into a compressed archive at
// opts.OutputPath. The returned stats hash the serialized archive as input and the
// written file as output.
func Compress(ctx context.Context, logger *zap.Logger, opts *options.Options) (*stats.Stats, error) {
	alg, err := prepare(ctx, logger, opts, options.ModeCompress)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	runStats := stats.NewStats(opts.Mode.String(), alg.String())

	a, err := filesystem.Collect(ctx, logger, opts.InputPath)
	if err != nil {
		return nil, fail(logger, err, "collect", "collect_entries", 0, opts)
	}
	runStats.UpdateInputBytes(uint64(a.Size()))
	runStats.AddEntries(uint64(len(a.Entries)))

	packed, err := archive.Pack(a)
	if err != nil {
		return nil, fail(logger, err, "archive", "pack", a.Size(), opts)
	}
	runStats.UpdateArchiveBytes(uint64(len(packed)))
	inputHash := sha256.Sum256(packed)
	runStats.InputHash = inputHash[:]

	eng := engine.New(logger, engine.WithWorkerCount(options.DefaultWorkerCount))
	compressed, err := dataprocessor.ProcessWithContext(ctx, func(data []byte) ([]byte, error) {
		return eng.Compress(data, alg, opts.Parallel)
	}, packed)
	if err != nil {
		return nil, fail(logger, err, "engine", "compress", len(packed), opts)
	}
	runStats.UpdateCompressedBytes(uint64(len(compressed)))
	runStats.SetChunks(chunkCount(packed, alg, opts.Parallel))

	out := compressed
	if opts.KeysetPath != "" {
		out, err = seal(ctx, logger, opts, alg, compressed)
		if err != nil {
			return nil, fail(logger, err, "encryption", "seal", len(compressed), opts)
		}
		runStats.Sealed = true
	}

	outputHasher := sha256.New()
	if err := writer.Stage(ctx, logger, opts.OutputPath, out, options.ArchiveFileMode,
		outputHasher, runStats, options.DefaultIOChunkSize); err != nil {
		return nil, fail(logger, err, "writer", "write_output", len(out), opts)
	}
	runStats.OutputHash = outputHasher.Sum(nil)

	if err := checkFinalContext(ctx, logger, opts, startTime); err != nil {
		return nil, err
	}

	runStats.ProcessingTime = time.Since(startTime)
	return runStats, nil
}

// Decompress restores the archive at opts.InputPath to opts.OutputPath. The returned
// stats hash the file read as input and the recovered archive as output, so the output
// hash equals the input hash of the Compress call that produced the file.
func Decompress(ctx context.Context, logger *zap.Logger, opts *options.Options) (*stats.Stats, error) {
	alg, err := prepare(ctx, logger, opts, options.ModeDecompress)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	runStats := stats.NewStats(opts.Mode.String(), alg.String())

	inputHasher := sha256.New()
	data, err := reader.Stage(ctx, logger, opts.InputPath, inputHasher, runStats, options.DefaultIOChunkSize)
	if err != nil {
		return nil, fail(logger, err, "reader", "read_input", 0, opts)
	}
	runStats.InputHash = inputHasher.Sum(nil)

	if opts.KeysetPath != "" {
		opened, err := open(ctx, logger, opts, alg, data)
		if err != nil {
			return nil, fail(logger, err, "encryption", "open", len(data), opts)
		}
		data = opened
		runStats.Sealed = true
	}
	runStats.UpdateCompressedBytes(uint64(len(data)))
	runStats.SetChunks(1)

	eng := engine.New(logger, engine.WithWorkerCount(options.DefaultWorkerCount))
	packed, err := dataprocessor.ProcessWithContext(ctx, func(in []byte) ([]byte, error) {
		return eng.Decompress(in, alg, opts.Parallel)
	}, data)
	if err != nil {
		return nil, fail(logger, err, "engine", "decompress", len(data), opts)
	}
	// only an empty input legitimately decodes to nothing, and even an empty archive
	// serializes to a non-empty container
	if len(packed) == 0 {
		err := fmt.Errorf("%w: decompression produced no data", customErrors.ErrCorruptStream)
		return nil, fail(logger, err, "engine", "decompress", len(data), opts)
	}
	runStats.UpdateArchiveBytes(uint64(len(packed)))
	outputHash := sha256.Sum256(packed)
	runStats.OutputHash = outputHash[:]

	a, err := archive.Unpack(packed)
	if err != nil {
		return nil, fail(logger, err, "archive", "unpack", len(packed), opts)
	}
	runStats.AddEntries(uint64(len(a.Entries)))

	if err := filesystem.Materialize(ctx, logger, a.Entries, opts.OutputPath); err != nil {
		return nil, fail(logger, err, "materialize", "write_entries", a.Size(), opts)
	}
	runStats.UpdateOutputBytes(uint64(a.Size()))

	if err := checkFinalContext(ctx, logger, opts, startTime); err != nil {
		return nil, err
	}

	runStats.ProcessingTime = time.Since(startTime)
	return runStats, nil
}

// prepare validates the request and resolves the codec
func prepare(ctx context.Context, logger *zap.Logger, opts *options.Options, mode options.Mode) (codec.Algorithm, error) {
	if ctx == nil {
		return "", customErrors.NewPipelineError(errors.New("context cannot be nil"), "pipeline", "validate_inputs", 0, "")
	}
	if logger == nil {
		return "", customErrors.NewPipelineError(errors.New("logger cannot be nil"), "pipeline", "validate_inputs", 0, "")
	}
	if opts == nil {
		return "", customErrors.NewPipelineError(errors.New("options cannot be nil"), "pipeline", "validate_inputs", 0, "")
	}
	if opts.Mode != mode {
		return "", customErrors.NewPipelineError(
			fmt.Errorf("mode %s requested from %s", opts.Mode, mode), "pipeline", "validate_inputs", 0, opts.InputPath)
	}
	if err := opts.Validate(); err != nil {
		return "", customErrors.NewPipelineError(err, "pipeline", "validate_inputs", 0, opts.InputPath)
	}

	alg, err := codec.Parse(opts.Algorithm)
	if err != nil {
		return "", customErrors.NewPipelineError(err, "pipeline", "parse_algorithm", 0, opts.InputPath)
	}

	if err := ctx.Err(); err != nil {
		logContextError(logger, err, opts)
		return "", customErrors.NewPipelineError(err, "pipeline", "check_context", 0, opts.InputPath)
	}

	return alg, nil
}

func seal(ctx context.Context, logger *zap.Logger, opts *options.Options, alg codec.Algorithm, data []byte) ([]byte, error) {
	a, err := encryption.LoadAEAD(logger, opts.KeysetPath)
	if err != nil {
		return nil, err
	}
	return encryption.SealWithContext(ctx, a, data, []byte(alg))
}

func open(ctx context.Context, logger *zap.Logger, opts *options.Options, alg codec.Algorithm, data []byte) ([]byte, error) {
	a, err := encryption.LoadAEAD(logger, opts.KeysetPath)
	if err != nil {
		return nil, err
	}
	return encryption.OpenWithContext(ctx, a, data, []byte(alg))
}

// chunkCount reports how many pieces the engine compressed
func chunkCount(data []byte, alg codec.Algorithm, parallel bool) uint64 {
	if !parallel || !alg.ChunkSafe() {
		return 1
	}
	return uint64(len(engine.Chunks(data, options.DefaultWorkerCount)))
}

// fail logs err and wraps it as a PipelineError unless a stage already did
func fail(logger *zap.Logger, err error, stage, operation string, size int, opts *options.Options) error {
	logger.Error("Pipeline processing failed",
		zap.Error(err),
		zap.String("stage", stage),
		zap.String("mode", opts.Mode.String()),
		zap.String("input_file", opts.InputPath),
		zap.String("output_file", opts.OutputPath))

	var pipelineErr *customErrors.PipelineError
	if errors.As(err, &pipelineErr) {
		return err
	}
	return customErrors.NewPipelineError(err, stage, operation, size, opts.InputPath)
}

// logContextError logs context-related errors
func logContextError(logger *zap.Logger, err error, opts *options.Options) {
	if customErrors.IsTimeoutError(err) {
		logger.Error("Pipeline timed out",
			zap.Error(err),
			zap.String("input_file", opts.InputPath),
			zap.String("output_file", opts.OutputPath))
		return
	}
	logger.Warn("Pipeline canceled by parent context",
		zap.Error(err),
		zap.String("input_file", opts.InputPath),
		zap.String("output_file", opts.OutputPath))
}

// checkFinalContext checks if the context is still valid at the end of processing
func checkFinalContext(ctx context.Context, logger *zap.Logger, opts *options.Options, startTime time.Time) error {
	if err := ctx.Err(); err != nil {
		logContextError(logger, err, opts)
		logger.Debug("Context ended at finalization", zap.Duration("elapsed_time", time.Since(startTime)))
		return customErrors.NewPipelineError(err, "pipeline", "finalize", 0, opts.InputPath)
	}
	return nil
}
