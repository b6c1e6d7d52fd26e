// Copyright (c) 2025 A Bit of Help, Inc.

// Package utils provides process-level helpers for the command line
package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownGracePeriod is how long a canceled run may take to unwind before the
// process is terminated
const ShutdownGracePeriod = 30 * time.Second

// ForceExit terminates the process when a second signal arrives or the grace period ends.
// Tests replace it.
var ForceExit = os.Exit

// SetupGracefulShutdown cancels the run on SIGINT, SIGTERM, SIGHUP or SIGQUIT.
// A second signal, or a run that has not finished within ShutdownGracePeriod, forces
// an exit with status 1. The returned function stops signal handling and should be deferred.
func SetupGracefulShutdown(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger) func() {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	done := make(chan struct{})

	go func() {
		defer logger.Debug("Signal handling goroutine exited")

		var grace <-chan time.Time
		ctxDone := ctx.Done()
		received := false

		for {
			select {
			case sig := <-sigChan:
				if received {
					logger.Warn("Received second signal, forcing immediate shutdown",
						zap.String("signal", sig.String()))
					ForceExit(1)
					return
				}

				logger.Info("Received signal, initiating graceful shutdown",
					zap.String("signal", sig.String()))
				received = true

				timer := time.NewTimer(ShutdownGracePeriod)
				defer timer.Stop()
				grace = timer.C

				cancel()
			case <-grace:
				logger.Warn("Graceful shutdown timed out, forcing exit",
					zap.Duration("grace_period", ShutdownGracePeriod))
				ForceExit(1)
				return
			case <-ctxDone:
				if !received {
					return
				}
				// our own cancel; keep watching for a second signal until cleanup
				ctxDone = nil
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		signal.Stop(sigChan)
		logger.Debug("Signal handling cleaned up")
	}
}
