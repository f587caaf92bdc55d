// Package archive wraps archive/zip with the operations zipedit needs:
// a manifest snapshot of the central directory, entry reads, and the
// full-rewrite mutation pipeline. Nothing here parses ZIP structures by
// hand; the standard library does the format work.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"

	"archive/zip"
)

// Sentinel errors surfaced to the command layer.
var (
	ErrEntryExists   = errors.New("entry already exists")
	ErrEntryNotFound = errors.New("entry not found")
	ErrNotFile       = errors.New("entry is not a regular file")
	ErrTooLarge      = errors.New("entry exceeds read limit")
)

// DefaultMaxReadSize caps single-entry reads (decompression bomb guard).
const DefaultMaxReadSize = 256 << 20

// Archive is a read-only handle over an existing ZIP file.
type Archive struct {
	path     string
	rc       *zip.ReadCloser
	manifest *Manifest

	// MaxReadSize bounds ReadAll. Zero means DefaultMaxReadSize.
	MaxReadSize int64
}

// Open opens an existing archive and snapshots its central directory.
// A missing file is an error; mutating operations create missing archives
// through Rewrite instead.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive %s does not exist", path)
		}
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	m, err := buildManifest(rc.File)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}

	return &Archive{path: path, rc: rc, manifest: m}, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// Path returns the archive path as given to Open.
func (a *Archive) Path() string { return a.path }

// Manifest returns the central directory snapshot taken at open time.
func (a *Archive) Manifest() *Manifest { return a.manifest }

// ReadAll returns the full contents of a named entry. Symlink entries
// yield the target path; directory entries are rejected with ErrNotFile.
// Reads larger than MaxReadSize fail rather than truncate.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	norm, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	e, ok := a.manifest.Lookup(norm)
	if !ok {
		return nil, fmt.Errorf("entry %q: %w", norm, ErrEntryNotFound)
	}
	if e.Kind == KindDir {
		return nil, fmt.Errorf("entry %q is a directory: %w", norm, ErrNotFile)
	}

	limit := a.MaxReadSize
	if limit <= 0 {
		limit = DefaultMaxReadSize
	}
	if e.Size > uint64(limit) {
		return nil, fmt.Errorf("entry %q is %d bytes, limit %d: %w", norm, e.Size, limit, ErrTooLarge)
	}

	f := a.file(norm)
	if f == nil {
		return nil, fmt.Errorf("entry %q: %w", norm, ErrEntryNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %q: %w", norm, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read entry %q: %w", norm, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("entry %q: %w (limit %d)", norm, ErrTooLarge, limit)
	}
	return data, nil
}

// file resolves the zip.File backing a normalized name. When the source
// carries duplicate names the last central directory record wins, matching
// what extraction tools do.
func (a *Archive) file(norm string) *zip.File {
	var match *zip.File
	for _, f := range a.rc.File {
		n, err := NormalizeName(f.Name)
		if err != nil {
			continue
		}
		if n == norm {
			match = f
		}
	}
	return match
}
