// Copyright (c) 2025 A Bit of Help, Inc.

// Package archive serializes an ordered list of file entries into one flat buffer.
//
// Layout (all integers little-endian):
//
//	u32 entry count
//	    per entry:
//	    u32 record length
//	    record:
//	        u32 permissions
//	        u32 path length, path bytes (UTF-8)
//	        u32 content length, content bytes
//
// A reader skips whatever follows the content inside a record, so fields may be appended
// to records later without breaking older readers.
package archive

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	customErrors "github.com/abitofhelp/multicodec_archiver/pkg/errors"
)

const u32Size = 4

// Entry is one file: a slash-separated relative path, its bytes and its permission bits.
// Permissions are passed through unchanged.
type Entry struct {
	Path        string
	Content     []byte
	Permissions uint32
}

// Archive is an ordered list of entries. Order is preserved and duplicate paths are allowed.
type Archive struct {
	Entries []Entry
}

// Size returns the total content size of all entries
func (a *Archive) Size() int {
	total := 0
	for _, e := range a.Entries {
		total += len(e.Content)
	}
	return total
}

func recordSize(e Entry) int {
	return 3*u32Size + len(e.Path) + len(e.Content)
}

// Pack serializes the archive
func Pack(a *Archive) ([]byte, error) {
	if uint64(len(a.Entries)) > math.MaxUint32 {
		return nil, fmt.Errorf("archive: %d entries exceed the container limit", len(a.Entries))
	}

	size := u32Size
	for i, e := range a.Entries {
		if !utf8.ValidString(e.Path) {
			return nil, fmt.Errorf("archive: entry %d has a path that is not valid UTF-8", i)
		}
		rs := recordSize(e)
		if uint64(rs) > math.MaxUint32 {
			return nil, fmt.Errorf("archive: entry %q is too large (%d bytes)", e.Path, rs)
		}
		size += u32Size + rs
	}

	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(a.Entries)))
	for _, e := range a.Entries {
		out = binary.LittleEndian.AppendUint32(out, uint32(recordSize(e)))
		out = binary.LittleEndian.AppendUint32(out, e.Permissions)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(e.Path)))
		out = append(out, e.Path...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(e.Content)))
		out = append(out, e.Content...)
	}

	return out, nil
}

// decoder walks a buffer, failing on any length that overruns it
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) malformed(format string, args ...any) error {
	return customErrors.Malformed("unpack", d.off, len(d.buf), format, args...)
}

func (d *decoder) uint32(field string) (uint32, error) {
	if d.remaining() < u32Size {
		return 0, d.malformed("%s truncated", field)
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += u32Size
	return v, nil
}

func (d *decoder) bytes(field string, n uint32) ([]byte, error) {
	if uint64(n) > uint64(d.remaining()) {
		return nil, d.malformed("%s length %d exceeds %d remaining bytes", field, n, d.remaining())
	}
	b := d.buf[d.off : d.off+int(n)]
	d.off += int(n)
	return b, nil
}

// Unpack reverses Pack. Entry contents are copied out of data.
func Unpack(data []byte) (*Archive, error) {
	d := &decoder{buf: data}

	count, err := d.uint32("entry count")
	if err != nil {
		return nil, err
	}
	// every record needs at least its length prefix and three fields
	if uint64(count)*4*u32Size > uint64(d.remaining()) {
		return nil, d.malformed("entry count %d exceeds remaining %d bytes", count, d.remaining())
	}

	a := &Archive{Entries: make([]Entry, 0, count)}
	for i := uint32(0); i < count; i++ {
		e, err := d.entry()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		a.Entries = append(a.Entries, e)
	}

	return a, nil
}

func (d *decoder) entry() (Entry, error) {
	recLen, err := d.uint32("record length")
	if err != nil {
		return Entry{}, err
	}
	rec, err := d.bytes("record", recLen)
	if err != nil {
		return Entry{}, err
	}

	r := &decoder{buf: rec}
	perms, err := r.uint32("permissions")
	if err != nil {
		return Entry{}, err
	}
	pathLen, err := r.uint32("path length")
	if err != nil {
		return Entry{}, err
	}
	path, err := r.bytes("path", pathLen)
	if err != nil {
		return Entry{}, err
	}
	if !utf8.Valid(path) {
		return Entry{}, r.malformed("path is not valid UTF-8")
	}
	contentLen, err := r.uint32("content length")
	if err != nil {
		return Entry{}, err
	}
	content, err := r.bytes("content", contentLen)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Path:        string(path),
		Content:     append([]byte{}, content...),
		Permissions: perms,
	}, nil
}
