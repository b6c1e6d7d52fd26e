// Copyright (c) 2025 A Bit of Help, Inc.

package writer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/abitofhelp/multicodec_archiver/pkg/stats"
	"go.uber.org/zap/zaptest"
)

func TestStage_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mca")
	data := bytes.Repeat([]byte("abcdefg"), 11)
	pipelineStats := stats.NewStats("compress", "lz4")
	outputHasher := sha256.New()

	err := Stage(context.Background(), zaptest.NewLogger(t), path, data, 0o640, outputHasher, pipelineStats, 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	if !bytes.Equal(written, data) {
		t.Errorf("Expected %d bytes on disk, got %d", len(data), len(written))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat output file: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("Expected mode 0640, got %o", info.Mode().Perm())
	}

	if pipelineStats.OutputBytes.Load() != uint64(len(data)) {
		t.Errorf("Expected OutputBytes to be %d, got %d", len(data), pipelineStats.OutputBytes.Load())
	}

	expectedHash := sha256.Sum256(data)
	if !bytes.Equal(outputHasher.Sum(nil), expectedHash[:]) {
		t.Error("Expected output hash to cover every byte written")
	}
}

func TestStage_EmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")

	err := Stage(context.Background(), zaptest.NewLogger(t), path, nil, 0o644, sha256.New(), stats.NewStats("decompress", "rle"), 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected the file to exist: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected an empty file, got %d bytes", info.Size())
	}
}

func TestStage_ContextCanceledRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mca")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Stage(ctx, zaptest.NewLogger(t), path, []byte("data"), 0o644, sha256.New(), stats.NewStats("compress", "rle"), 2)
	if !customErrors.IsCancellationError(err) {
		t.Errorf("Expected a cancellation error, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("Expected the partial file to be removed, stat returned %v", statErr)
	}
}

func TestStage_CreateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.mca")

	err := Stage(context.Background(), zaptest.NewLogger(t), path, []byte("data"), 0o644, sha256.New(), stats.NewStats("compress", "rle"), 2)
	if !customErrors.IsIOError(err) {
		t.Errorf("Expected an I/O error, got %v", err)
	}
}
