// Copyright (c) 2025 A Bit of Help, Inc.

// Package writer provides the write stage for archive files.
package writer

import (
	"context"
	"fmt"
	"io"
	"os"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/abitofhelp/multicodec_archiver/pkg/stats"
	"go.uber.org/zap"
)

// Stage writes data to path in chunkSize pieces, feeding every byte to hasher.
// A write that fails or is canceled part way removes the partial file.
func Stage(
	ctx context.Context,
	logger *zap.Logger,
	path string,
	data []byte,
	mode os.FileMode,
	hasher io.Writer,
	pipelineStats *stats.Stats,
	chunkSize int,
) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return writeError(err, "create_output_file", len(data), path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = writeError(closeErr, "close_output_file", len(data), path)
		}
		if err != nil {
			if removeErr := os.Remove(path); removeErr != nil {
				logger.Warn("Failed to remove partial output file", zap.Error(removeErr), zap.String("path", path))
			}
		}
	}()

	for start := 0; start < len(data); start += chunkSize {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if customErrors.IsTimeoutError(ctxErr) {
				logger.Warn("Writer timed out", zap.Error(ctxErr))
			} else {
				logger.Debug("Writer canceled by context", zap.Error(ctxErr))
			}
			return customErrors.NewPipelineError(ctxErr, "writer", "write_data", start, path)
		}

		chunk := data[start:min(start+chunkSize, len(data))]
		written, writeErr := f.Write(chunk)
		pipelineStats.UpdateOutputBytes(uint64(written))
		if writeErr != nil {
			return writeError(writeErr, "write_data", len(chunk), path)
		}
		hasher.Write(chunk)
	}

	logger.Debug("Writing stage completed",
		zap.String("path", path),
		zap.Int("output_size", len(data)))

	return nil
}

func writeError(err error, operation string, size int, path string) error {
	return customErrors.NewPipelineError(
		fmt.Errorf("%w: %w", customErrors.ErrIOFailure, err),
		"writer",
		operation,
		size,
		path)
}
