// Copyright (c) 2025 A Bit of Help, Inc.

// Package filesystem turns files on disk into archive entries and back.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/abitofhelp/multicodec_archiver/pkg/archive"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/abitofhelp/multicodec_archiver/pkg/pipeline/options"
	"go.uber.org/zap"
)

// Collect reads root into an archive. A regular file becomes a single entry named after
// its base name. A directory is walked in lexical order; each regular file becomes an
// entry whose path is relative to root with slash separators. Other file types are skipped.
func Collect(ctx context.Context, logger *zap.Logger, root string) (*archive.Archive, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, ioError(err)
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s is not a regular file or directory", customErrors.ErrIOFailure, root)
		}
		e, err := readEntry(root, filepath.Base(root), info)
		if err != nil {
			return nil, err
		}
		return &archive.Archive{Entries: []archive.Entry{e}}, nil
	}

	a := &archive.Archive{Entries: []archive.Entry{}}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			logger.Debug("Skipping non-regular file", zap.String("path", path))
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		e, err := readEntry(path, filepath.ToSlash(rel), info)
		if err != nil {
			return err
		}
		a.Entries = append(a.Entries, e)
		return nil
	})
	if err != nil {
		if customErrors.IsCancellationError(err) {
			return nil, fmt.Errorf("%w: walking %s: %w", customErrors.ErrCanceled, root, err)
		}
		return nil, ioError(err)
	}

	logger.Debug("Collected entries",
		zap.String("root", root),
		zap.Int("entries", len(a.Entries)),
		zap.Int("input_size", a.Size()))

	return a, nil
}

func readEntry(path, name string, info fs.FileInfo) (archive.Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return archive.Entry{}, ioError(err)
	}
	return archive.Entry{
		Path:        name,
		Content:     content,
		Permissions: uint32(info.Mode().Perm()),
	}, nil
}

// Materialize writes entries back to disk. An archive holding exactly one entry is
// written directly to dest, matching how a single file is collected. Otherwise dest is
// a directory and each entry is recreated beneath it, along with any parent directories.
// Entry paths that would escape dest are rejected. Permission bits are restored exactly.
func Materialize(ctx context.Context, logger *zap.Logger, entries []archive.Entry, dest string) error {
	if len(entries) == 1 {
		return writeEntry(dest, entries[0])
	}

	if err := os.MkdirAll(dest, options.DirectoryMode); err != nil {
		return ioError(err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: extracting to %s: %w", customErrors.ErrCanceled, dest, err)
		}

		local := filepath.FromSlash(e.Path)
		if !filepath.IsLocal(local) {
			return fmt.Errorf("%w: entry path %q escapes the destination", customErrors.ErrMalformedArchive, e.Path)
		}

		target := filepath.Join(dest, local)
		if err := os.MkdirAll(filepath.Dir(target), options.DirectoryMode); err != nil {
			return ioError(err)
		}
		if err := writeEntry(target, e); err != nil {
			return err
		}
	}

	logger.Debug("Materialized entries",
		zap.String("destination", dest),
		zap.Int("entries", len(entries)))

	return nil
}

// writeEntry creates or truncates path, then applies the entry's permissions
// explicitly so the process umask does not alter them.
func writeEntry(path string, e archive.Entry) error {
	mode := fs.FileMode(e.Permissions).Perm()
	if err := os.WriteFile(path, e.Content, mode); err != nil {
		return ioError(err)
	}
	if err := os.Chmod(path, mode); err != nil {
		return ioError(err)
	}
	return nil
}

func ioError(err error) error {
	return fmt.Errorf("%w: %w", customErrors.ErrIOFailure, err)
}
