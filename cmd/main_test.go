// Copyright (c) 2025 A Bit of Help, Inc.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline/options"
	"github.com/abitofhelp/multicodec_archiver/pkg/stats"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testLogger(t *testing.T) LoggerFunc {
	return func(bool) *zap.Logger {
		return zaptest.NewLogger(t)
	}
}

func TestParseArgs(t *testing.T) {
	var out bytes.Buffer

	cfg, err := parseArgs([]string{"-c", "-a", "lz77", "-i", "in", "-o", "out.mca", "-m", "-v"}, &out)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.opts.Mode != options.ModeCompress {
		t.Errorf("Expected compress mode, got %v", cfg.opts.Mode)
	}
	if cfg.opts.Algorithm != "lz77" {
		t.Errorf("Expected algorithm lz77, got %q", cfg.opts.Algorithm)
	}
	if !cfg.opts.Parallel || !cfg.verbose {
		t.Error("Expected -m and -v to be set")
	}

	cfg, err = parseArgs([]string{"-d", "-i", "a.mca", "-o", "a", "-genkey", "k.json"}, &out)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.opts.Mode != options.ModeDecompress {
		t.Errorf("Expected decompress mode, got %v", cfg.opts.Mode)
	}
	if cfg.opts.Algorithm != options.DefaultAlgorithm {
		t.Errorf("Expected default algorithm, got %q", cfg.opts.Algorithm)
	}
	if cfg.opts.KeysetPath != "k.json" {
		t.Errorf("Expected generated keyset to be used, got %q", cfg.opts.KeysetPath)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	tests := map[string][]string{
		"both modes":   {"-c", "-d", "-i", "in", "-o", "out"},
		"unknown flag": {"-x"},
		"positional":   {"-c", "-i", "in", "-o", "out", "extra"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			if _, err := parseArgs(args, &out); err == nil {
				t.Error("Expected an error, got nil")
			}
			if !strings.Contains(out.String(), "Usage") {
				t.Errorf("Expected usage output, got %q", out.String())
			}
		})
	}
}

func TestRun_InvalidArgs(t *testing.T) {
	exitCode := 0
	mockExit := func(code int) {
		exitCode = code
	}

	mockProcess := func(ctx context.Context, log *zap.Logger, opts *options.Options) (*stats.Stats, error) {
		t.Error("process should not be called with invalid arguments")
		return nil, nil
	}

	for _, args := range [][]string{
		{},
		{"-c", "-i", "input.txt"},
		{"-i", "input.txt", "-o", "output.mca"},
		{"-c", "-d", "-i", "input.txt", "-o", "output.mca"},
	} {
		exitCode = 0
		var out bytes.Buffer
		run(args, &out, testLogger(t), mockExit, mockProcess)
		if exitCode != 1 {
			t.Errorf("Expected exit code 1 for %v, got %d", args, exitCode)
		}
	}
}

func TestRun_Help(t *testing.T) {
	exitCode := -1
	var out bytes.Buffer

	run([]string{"-h"}, &out, testLogger(t), func(code int) { exitCode = code }, nil)
	if exitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", exitCode)
	}
	if !strings.Contains(out.String(), "-keyset") {
		t.Errorf("Expected flag defaults in usage, got %q", out.String())
	}
}

func TestRun_ProcessError(t *testing.T) {
	for _, processErr := range []error{errors.New("test error"), context.Canceled, context.DeadlineExceeded} {
		exitCode := 0
		mockExit := func(code int) {
			exitCode = code
		}

		mockProcess := func(ctx context.Context, log *zap.Logger, opts *options.Options) (*stats.Stats, error) {
			return nil, processErr
		}

		var out bytes.Buffer
		run([]string{"-c", "-i", "input.txt", "-o", "output.mca"}, &out, testLogger(t), mockExit, mockProcess)
		if exitCode != 1 {
			t.Errorf("Expected exit code 1 for %v, got %d", processErr, exitCode)
		}
	}
}

func TestRun_Success(t *testing.T) {
	exitCode := 0
	mockExit := func(code int) {
		exitCode = code
	}

	var got *options.Options
	mockProcess := func(ctx context.Context, log *zap.Logger, opts *options.Options) (*stats.Stats, error) {
		got = opts
		return stats.NewStats(opts.Mode.String(), opts.Algorithm), nil
	}

	var out bytes.Buffer
	run([]string{"-d", "-a", "hf", "-i", "input.mca", "-o", "output.txt"}, &out, testLogger(t), mockExit, mockProcess)
	if exitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", exitCode)
	}
	if got == nil || got.Algorithm != "hf" || got.Mode != options.ModeDecompress {
		t.Errorf("Expected decompress options with hf, got %+v", got)
	}
	if !strings.Contains(out.String(), "Archive Summary") {
		t.Errorf("Expected a summary, got %q", out.String())
	}
}

func TestRun_GenerateKeysetOnly(t *testing.T) {
	keyset := filepath.Join(t.TempDir(), "keyset.json")
	exitCode := 0

	var out bytes.Buffer
	run([]string{"-genkey", keyset}, &out, testLogger(t), func(code int) { exitCode = code }, nil)
	if exitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", exitCode)
	}

	info, err := os.Stat(keyset)
	if err != nil {
		t.Fatalf("Expected keyset file, got %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected keyset mode 0600, got %o", info.Mode().Perm())
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	content := []byte(strings.Repeat("abracadabra ", 200))
	if err := os.WriteFile(input, content, 0o644); err != nil {
		t.Fatal(err)
	}

	archivePath := filepath.Join(dir, "notes.mca")
	restored := filepath.Join(dir, "restored.txt")
	keyset := filepath.Join(dir, "keyset.json")

	exitCode := 0
	mockExit := func(code int) {
		exitCode = code
	}

	var out bytes.Buffer
	run([]string{"-c", "-a", "lzw", "-i", input, "-o", archivePath, "-genkey", keyset}, &out, testLogger(t), mockExit, pipeline.Run)
	run([]string{"-d", "-a", "lzw", "-i", archivePath, "-o", restored, "-keyset", keyset}, &out, testLogger(t), mockExit, pipeline.Run)
	if exitCode != 0 {
		t.Fatalf("Expected exit code 0, got %d", exitCode)
	}

	got, err := os.ReadFile(restored)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(content, got) {
		t.Error("Restored content differs from the input")
	}
}
