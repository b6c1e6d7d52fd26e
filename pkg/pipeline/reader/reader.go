// Copyright (c) 2025 A Bit of Help, Inc.

// Package reader provides the read stage for archive files.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/abitofhelp/multicodec_archiver/pkg/stats"
	"go.uber.org/zap"
)

// Stage reads the whole file at path in chunkSize pieces, feeding every byte to hasher.
// The context is checked between chunks, so a large file can be abandoned part way.
func Stage(
	ctx context.Context,
	logger *zap.Logger,
	path string,
	hasher io.Writer,
	pipelineStats *stats.Stats,
	chunkSize int,
) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, readError(err, "open_input_file", 0, path)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close input file", zap.Error(err), zap.String("path", path))
		}
	}()

	var data bytes.Buffer
	if info, err := f.Stat(); err == nil {
		data.Grow(int(info.Size()))
	}

	buffer := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			if customErrors.IsTimeoutError(err) {
				logger.Warn("Reader timed out", zap.Error(err))
			} else {
				logger.Debug("Reader canceled by context", zap.Error(err))
			}
			return nil, customErrors.NewPipelineError(err, "reader", "read_data", data.Len(), path)
		}

		n, readErr := f.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			data.Write(chunk)
			hasher.Write(chunk)
			pipelineStats.UpdateInputBytes(uint64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, readError(readErr, "read_data", data.Len(), path)
		}
	}

	logger.Debug("End of input file reached",
		zap.String("path", path),
		zap.Int("input_size", data.Len()))

	return data.Bytes(), nil
}

func readError(err error, operation string, size int, path string) error {
	return customErrors.NewPipelineError(
		fmt.Errorf("%w: %w", customErrors.ErrIOFailure, err),
		"reader",
		operation,
		size,
		path)
}
