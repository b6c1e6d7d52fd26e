// Copyright (c) 2025 A Bit of Help, Inc.

// Package logger builds the zap loggers used by the archiver's command line
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ExitFunc is a function that exits the program with a given status code
type ExitFunc func(int)

// DefaultExitFunc is the default implementation of ExitFunc
var DefaultExitFunc = os.Exit

// productionConfig is zap's production configuration with an ISO8601 "timestamp" field
func productionConfig(level zapcore.Level) zap.Config {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config
}

// InitLoggerWithLevel builds a logger that emits entries at level and above.
// If the logger cannot be built, exit is called with status 1.
func InitLoggerWithLevel(level zapcore.Level, exit ExitFunc) *zap.Logger {
	logger, err := productionConfig(level).Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		exit(1)
		return zap.NewNop()
	}
	return logger
}

// InitLoggerWithExit initializes an info-level logger.
// It takes an exit function to allow for testing
func InitLoggerWithExit(exit ExitFunc) *zap.Logger {
	return InitLoggerWithLevel(zapcore.InfoLevel, exit)
}

// InitLogger initializes and returns a configured zap logger
// This is a wrapper around InitLoggerWithExit that uses the default exit function
func InitLogger() *zap.Logger {
	return InitLoggerWithExit(DefaultExitFunc)
}

// LevelFor maps the command line's verbose flag to a logging level
func LevelFor(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// SafeSync syncs the logger and ignores "bad file descriptor" errors
// which can occur during shutdown when stderr is already closed
func SafeSync(logger *zap.Logger) {
	if logger == nil {
		return
	}

	if err := logger.Sync(); err != nil && err.Error() != "sync /dev/stderr: bad file descriptor" {
		// Can't use logger here as we're syncing it
		fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
	}
}
