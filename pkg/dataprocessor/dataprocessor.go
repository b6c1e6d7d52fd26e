// Copyright (c) 2025 A Bit of Help, Inc.

// Package dataprocessor runs byte transformations so that a panic inside one becomes an
// ordinary error instead of taking down the process.
//
// Process is used by the engine's chunk workers. ProcessWithContext adds cancellation on
// top, for callers that sit between a user's Ctrl+C and a long-running codec call.
package dataprocessor

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

// drainTimeout bounds how long a canceled call waits for its worker to return
const drainTimeout = 5 * time.Second

// Func is a whole-buffer transformation such as a codec's Compress
type Func func([]byte) ([]byte, error)

// Process calls fn on data, converting a panic into an error wrapping ErrPanic that
// carries the stack trace.
func Process(fn Func, data []byte) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			result = nil
			err = fmt.Errorf("%w in data processing: %v\nstack: %s", customErrors.ErrPanic, r, stack)
		}
	}()

	return fn(data)
}

// ProcessWithContext executes fn with context awareness. The transformation itself cannot
// be interrupted; on cancellation the call waits up to drainTimeout for it before returning.
func ProcessWithContext(ctx context.Context, fn Func, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err, "starting")
	}

	type outcome struct {
		result []byte
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := Process(fn, data)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(drainTimeout):
			// We can't use the logger here as it might not be available
			fmt.Fprintf(os.Stderr, "Warning: Timed out waiting for processing goroutine to complete\n")
		}
		return nil, contextError(ctx.Err(), "processing data")
	}
}

func contextError(err error, during string) error {
	switch err {
	case context.Canceled:
		return fmt.Errorf("%w while %s: %w", customErrors.ErrCanceled, during, err)
	case context.DeadlineExceeded:
		return fmt.Errorf("%w while %s: %w", customErrors.ErrTimeout, during, err)
	default:
		return fmt.Errorf("context error while %s: %w", during, err)
	}
}
