// Copyright (c) 2025 A Bit of Help, Inc.

// Package options provides configuration options for compressing and extracting archives.
package options

import (
	"errors"
	"fmt"
	"os"
)

const (
	// DefaultWorkerCount defines how many chunks a parallel compression is split into,
	// one goroutine per chunk
	DefaultWorkerCount = 4

	// DefaultIOChunkSize defines the size of the reads and writes used for archive files (32KB)
	DefaultIOChunkSize = 32 * 1024

	// DefaultAlgorithm is the codec used when none is named
	DefaultAlgorithm = "rle"

	// ArchiveFileMode is the permission set for compressed output files
	ArchiveFileMode os.FileMode = 0o644

	// DirectoryMode is the permission set for directories created while extracting
	DirectoryMode os.FileMode = 0o755
)

// Mode selects the direction of a run
type Mode int

const (
	// ModeUnset means neither compression nor decompression was requested
	ModeUnset Mode = iota
	// ModeCompress packs the input into a compressed archive
	ModeCompress
	// ModeDecompress restores files from a compressed archive
	ModeDecompress
)

func (m Mode) String() string {
	switch m {
	case ModeCompress:
		return "compress"
	case ModeDecompress:
		return "decompress"
	default:
		return "unset"
	}
}

// Options contains everything one compress or decompress run needs
type Options struct {
	// Mode selects compression or decompression
	Mode Mode

	// Algorithm names the codec, for example "rle" or "hf"
	Algorithm string

	// Parallel requests chunked compression on chunk-safe codecs
	Parallel bool

	// KeysetPath optionally names a cleartext tink keyset used to seal the archive
	KeysetPath string

	// InputPath is a file or directory when compressing, an archive when decompressing
	InputPath string

	// OutputPath is the archive when compressing, a file or directory when decompressing
	OutputPath string
}

// DefaultOptions returns Options with default values
func DefaultOptions() *Options {
	return &Options{
		Algorithm: DefaultAlgorithm,
	}
}

// Validate checks that the options describe a runnable request
func (o *Options) Validate() error {
	var errs []error

	if o.Mode != ModeCompress && o.Mode != ModeDecompress {
		errs = append(errs, errors.New("exactly one of compress or decompress must be selected"))
	}
	if o.Algorithm == "" {
		errs = append(errs, errors.New("an algorithm is required"))
	}
	if o.InputPath == "" {
		errs = append(errs, errors.New("an input path is required"))
	}
	if o.OutputPath == "" {
		errs = append(errs, errors.New("an output path is required"))
	}
	if o.InputPath != "" && o.InputPath == o.OutputPath {
		errs = append(errs, fmt.Errorf("input and output paths must differ: %s", o.InputPath))
	}

	return errors.Join(errs...)
}
