// Copyright (c) 2025 A Bit of Help, Inc.

// Package errors provides custom error types and error handling utilities for the application.
package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Standard errors that can be used for comparison with errors.Is
var (
	// ErrCorruptStream indicates a compressed stream could not be decoded
	ErrCorruptStream = errors.New("malformed compressed stream")

	// ErrMalformedArchive indicates the archive container framing is invalid
	ErrMalformedArchive = errors.New("malformed archive container")

	// ErrUnknownAlgorithm indicates an unsupported codec name
	ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrIOFailure indicates an I/O operation failed
	ErrIOFailure = errors.New("I/O operation failed")

	// ErrPanic indicates a panic occurred
	ErrPanic = errors.New("panic occurred")
)

// DataError describes a failure to decode a byte buffer produced by a codec or the archive container
type DataError struct {
	// Err is the underlying error
	Err error

	// Component is the codec or container that rejected the data
	Component string

	// Operation is the operation being performed
	Operation string

	// Offset is the position in the input where decoding failed
	Offset int

	// DataSize is the size of the input being decoded
	DataSize int
}

// Error implements the error interface
func (e *DataError) Error() string {
	return fmt.Sprintf("%s %s (offset=%d, size=%d): %v",
		e.Component,
		e.Operation,
		e.Offset,
		e.DataSize,
		e.Err)
}

// Unwrap returns the underlying error
func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError
func NewDataError(err error, component, operation string, offset, dataSize int) *DataError {
	return &DataError{
		Err:       err,
		Component: component,
		Operation: operation,
		Offset:    offset,
		DataSize:  dataSize,
	}
}

// Corrupt builds a DataError wrapping ErrCorruptStream with a formatted reason
func Corrupt(component, operation string, offset, dataSize int, format string, args ...any) *DataError {
	return NewDataError(
		fmt.Errorf("%w: %s", ErrCorruptStream, fmt.Sprintf(format, args...)),
		component,
		operation,
		offset,
		dataSize)
}

// Malformed builds a DataError wrapping ErrMalformedArchive with a formatted reason
func Malformed(operation string, offset, dataSize int, format string, args ...any) *DataError {
	return NewDataError(
		fmt.Errorf("%w: %s", ErrMalformedArchive, fmt.Sprintf(format, args...)),
		"archive",
		operation,
		offset,
		dataSize)
}

// PipelineError represents an error that occurred while processing a file end to end
type PipelineError struct {
	// Err is the underlying error
	Err error

	// Stage is the pipeline stage where the error occurred
	Stage string

	// Operation is the operation being performed
	Operation string

	// Time is when the error occurred
	Time time.Time

	// DataSize is the size of the data being processed
	DataSize int

	// FilePath is the path of the file being processed
	FilePath string
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	return fmt.Sprintf("[%s] %s (stage=%s, size=%d, file=%s): %v",
		e.Time.Format(time.RFC3339),
		e.Operation,
		e.Stage,
		e.DataSize,
		e.FilePath,
		e.Err)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError
func NewPipelineError(err error, stage string, operation string, dataSize int, filePath string) *PipelineError {
	return &PipelineError{
		Err:       err,
		Stage:     stage,
		Operation: operation,
		Time:      time.Now(),
		DataSize:  dataSize,
		FilePath:  filePath,
	}
}

// IsCorruptStream checks if the error reports an undecodable compressed stream
func IsCorruptStream(err error) bool {
	return errors.Is(err, ErrCorruptStream)
}

// IsMalformedArchive checks if the error reports invalid archive framing
func IsMalformedArchive(err error) bool {
	return errors.Is(err, ErrMalformedArchive)
}

// IsIOError checks if the error is an I/O error
func IsIOError(err error) bool {
	var pathErr *os.PathError
	return errors.Is(err, ErrIOFailure) || errors.As(err, &pathErr)
}

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsCancellationError checks if the error is a cancellation error
func IsCancellationError(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// ErrorCollector collects multiple errors
type ErrorCollector struct {
	errors []error
}

// NewErrorCollector creates a new ErrorCollector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collector
func (c *ErrorCollector) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// HasErrors returns true if the collector has any errors
func (c *ErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// Error implements the error interface
func (c *ErrorCollector) Error() string {
	if len(c.errors) == 0 {
		return "no errors"
	}

	if len(c.errors) == 1 {
		return c.errors[0].Error()
	}

	msg := fmt.Sprintf("%d errors occurred:\n", len(c.errors))
	for i, err := range c.errors {
		msg += fmt.Sprintf("  %d: %v\n", i+1, err)
	}
	return msg
}

// Errors returns all collected errors
func (c *ErrorCollector) Errors() []error {
	return c.errors
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (c *ErrorCollector) Unwrap() []error {
	return c.errors
}
