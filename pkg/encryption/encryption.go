// Copyright (c) 2025 A Bit of Help, Inc.

// Package encryption optionally seals a compressed archive with an AEAD primitive.
//
// Keys live in a cleartext JSON tink keyset file. The codec name is bound to the
// ciphertext as associated data, so opening a sealed archive with a different -a value
// fails authentication instead of feeding the wrong codec.
package encryption

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/abitofhelp/multicodec_archiver/pkg/dataprocessor"
	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
	"github.com/google/tink/go/aead"
	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/tink"
	"go.uber.org/zap"
)

// KeysetFileMode is the permission set for generated keyset files
const KeysetFileMode os.FileMode = 0o600

// NewKeysetHandle creates a fresh AES-256-GCM keyset
func NewKeysetHandle() (*keyset.Handle, error) {
	kh, err := keyset.NewHandle(aead.AES256GCMKeyTemplate())
	if err != nil {
		return nil, fmt.Errorf("failed to create keyset handle: %w", err)
	}
	return kh, nil
}

// WriteKeyset serializes a keyset as cleartext JSON
func WriteKeyset(kh *keyset.Handle, w io.Writer) error {
	if err := insecurecleartextkeyset.Write(kh, keyset.NewJSONWriter(w)); err != nil {
		return fmt.Errorf("failed to write keyset: %w", err)
	}
	return nil
}

// GenerateKeysetFile writes a new keyset to path. An existing file is never overwritten.
func GenerateKeysetFile(logger *zap.Logger, path string) error {
	kh, err := NewKeysetHandle()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteKeyset(kh, &buf); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, KeysetFileMode)
	if err != nil {
		return fmt.Errorf("%w: failed to create keyset file: %w", customErrors.ErrIOFailure, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("%w: failed to write keyset file: %w", customErrors.ErrIOFailure, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: failed to close keyset file: %w", customErrors.ErrIOFailure, err)
	}

	logger.Info("Generated keyset", zap.String("keyset_file", path))
	return nil
}

// NewAEAD builds the AEAD primitive for a keyset read from r
func NewAEAD(r io.Reader) (tink.AEAD, error) {
	kh, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read keyset: %w", err)
	}

	a, err := aead.New(kh)
	if err != nil {
		return nil, fmt.Errorf("failed to create AEAD primitive: %w", err)
	}
	return a, nil
}

// LoadAEAD reads the keyset file at path and builds its AEAD primitive
func LoadAEAD(logger *zap.Logger, path string) (tink.AEAD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open keyset file: %w", customErrors.ErrIOFailure, err)
	}
	defer f.Close()

	a, err := NewAEAD(f)
	if err != nil {
		return nil, err
	}

	logger.Debug("Encryption initialized successfully", zap.String("keyset_file", path))
	return a, nil
}

// SealWithContext encrypts data, binding associatedData to the ciphertext
func SealWithContext(ctx context.Context, a tink.AEAD, data, associatedData []byte) ([]byte, error) {
	return dataprocessor.ProcessWithContext(ctx, func(plaintext []byte) ([]byte, error) {
		return a.Encrypt(plaintext, associatedData)
	}, data)
}

// OpenWithContext decrypts data sealed with the same associatedData
func OpenWithContext(ctx context.Context, a tink.AEAD, data, associatedData []byte) ([]byte, error) {
	return dataprocessor.ProcessWithContext(ctx, func(ciphertext []byte) ([]byte, error) {
		plaintext, err := a.Decrypt(ciphertext, associatedData)
		if err != nil {
			return nil, fmt.Errorf("failed to open sealed archive: %w", err)
		}
		return plaintext, nil
	}, data)
}
