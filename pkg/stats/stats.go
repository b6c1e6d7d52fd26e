// Copyright (c) 2025 A Bit of Help, Inc.

// Package stats tracks the byte counts, hashes and timing of one archive run
package stats

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Stats tracks archive statistics with thread-safe counters.
//
// Stage sizes are named by what the bytes are, not by direction: ArchiveBytes is the
// serialized container and CompressedBytes the codec output, whether the run compressed
// or extracted.
type Stats struct {
	// Mode is "compress" or "decompress"
	Mode string

	// Algorithm is the codec used
	Algorithm string

	// Byte counts for the different stages
	InputBytes      atomic.Uint64
	ArchiveBytes    atomic.Uint64
	CompressedBytes atomic.Uint64
	OutputBytes     atomic.Uint64

	// Entries is the number of files in the archive
	Entries atomic.Uint64

	// Chunks is the number of pieces the codec ran over
	Chunks atomic.Uint64

	// Sealed reports whether the compressed stream was wrapped with AEAD
	Sealed bool

	// Cryptographic hashes for verification
	InputHash  []byte
	OutputHash []byte

	// Performance metrics
	ProcessingTime time.Duration
}

// UpdateInputBytes safely adds n bytes to the input byte count
func (s *Stats) UpdateInputBytes(n uint64) {
	s.InputBytes.Add(n)
}

// UpdateArchiveBytes safely adds n bytes to the serialized archive byte count
func (s *Stats) UpdateArchiveBytes(n uint64) {
	s.ArchiveBytes.Add(n)
}

// UpdateCompressedBytes safely adds n bytes to the compressed byte count
func (s *Stats) UpdateCompressedBytes(n uint64) {
	s.CompressedBytes.Add(n)
}

// UpdateOutputBytes safely adds n bytes to the output byte count
func (s *Stats) UpdateOutputBytes(n uint64) {
	s.OutputBytes.Add(n)
}

// AddEntries safely adds n to the entry count
func (s *Stats) AddEntries(n uint64) {
	s.Entries.Add(n)
}

// SetChunks safely records how many chunks the codec ran over
func (s *Stats) SetChunks(n uint64) {
	s.Chunks.Store(n)
}

// NewStats creates a new Stats instance with initialized fields
func NewStats(mode, algorithm string) *Stats {
	return &Stats{
		Mode:       mode,
		Algorithm:  algorithm,
		InputHash:  make([]byte, 0),
		OutputHash: make([]byte, 0),
	}
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds %dms", hours, minutes, seconds, milliseconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds %dms", minutes, seconds, milliseconds)
	} else if seconds > 0 {
		return fmt.Sprintf("%ds %dms", seconds, milliseconds)
	}
	return fmt.Sprintf("%dms", milliseconds)
}

// CalculateRatios returns the archive-to-compressed ratio and the percentage of space the
// codec saved. A negative percentage means the codec expanded the archive.
func (s *Stats) CalculateRatios() (float64, float64) {
	archive := s.ArchiveBytes.Load()
	compressed := s.CompressedBytes.Load()

	// Avoid division by zero
	if archive == 0 || compressed == 0 {
		return 0, 0
	}

	ratio := float64(archive) / float64(compressed)

	// Percentage of space saved = (1 - (compressed size / archive size)) * 100
	saved := (1 - float64(compressed)/float64(archive)) * 100

	return ratio, saved
}

// DisplaySummary writes a summary of the run to w and logs the same figures at debug level
func (s *Stats) DisplaySummary(w io.Writer, logger *zap.Logger, inputPath, outputPath string) {
	timeFormatted := FormatDuration(s.ProcessingTime)
	ratio, saved := s.CalculateRatios()

	inputBytes := s.InputBytes.Load()
	archiveBytes := s.ArchiveBytes.Load()
	compressedBytes := s.CompressedBytes.Load()
	outputBytes := s.OutputBytes.Load()
	entries := s.Entries.Load()
	chunks := s.Chunks.Load()

	fmt.Fprintln(w, "\n==================")
	fmt.Fprintln(w, "Archive Summary")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "Mode: %s\n", s.Mode)
	fmt.Fprintf(w, "Algorithm: %s\n", s.Algorithm)
	fmt.Fprintf(w, "Input: %s\n", inputPath)
	fmt.Fprintf(w, "Output: %s\n", outputPath)
	fmt.Fprintln(w, "------------------")
	fmt.Fprintf(w, "Total input bytes: %s (%d bytes)\n", humanize.Bytes(inputBytes), inputBytes)
	fmt.Fprintf(w, "Input SHA256: %s\n", hex.EncodeToString(s.InputHash))
	fmt.Fprintf(w, "Total output bytes: %s (%d bytes)\n", humanize.Bytes(outputBytes), outputBytes)
	fmt.Fprintf(w, "Output SHA256: %s\n", hex.EncodeToString(s.OutputHash))
	fmt.Fprintln(w, "------------------")
	fmt.Fprintf(w, "Files: %s\n", humanize.Comma(int64(entries)))
	fmt.Fprintf(w, "Archive size: %s (%d bytes)\n", humanize.Bytes(archiveBytes), archiveBytes)
	fmt.Fprintf(w, "Compressed size: %s (%d bytes)\n", humanize.Bytes(compressedBytes), compressedBytes)
	fmt.Fprintf(w, "Archive to Compressed Ratio: %.2f:1\n", ratio)
	fmt.Fprintf(w, "Compression Saved Space: %.2f%%\n", saved)
	fmt.Fprintf(w, "Number of chunks: %d\n", chunks)
	fmt.Fprintf(w, "Sealed: %t\n", s.Sealed)
	fmt.Fprintln(w, "------------------")
	fmt.Fprintf(w, "Total processing time: %s (%v)\n", timeFormatted, s.ProcessingTime)
	fmt.Fprintln(w, "==================")

	logger.Debug("Processing completed successfully",
		zap.String("mode", s.Mode),
		zap.String("algorithm", s.Algorithm),
		zap.String("input_file", inputPath),
		zap.String("output_file", outputPath),
		zap.Uint64("total_input_bytes", inputBytes),
		zap.String("input_sha256_hash", hex.EncodeToString(s.InputHash)),
		zap.Uint64("total_output_bytes", outputBytes),
		zap.String("output_sha256_hash", hex.EncodeToString(s.OutputHash)),
		zap.Uint64("entries", entries),
		zap.Uint64("archive_bytes", archiveBytes),
		zap.Uint64("compressed_bytes", compressedBytes),
		zap.Float64("compression_ratio", ratio),
		zap.Float64("compressing_saved_space", saved),
		zap.Uint64("chunks", chunks),
		zap.Bool("sealed", s.Sealed),
		zap.Duration("processing_time", s.ProcessingTime),
		zap.String("formatted_processing_time", timeFormatted))
}
