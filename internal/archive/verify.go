package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	"zipedit/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Issue is one entry that failed verification.
type Issue struct {
	Name string
	Err  error
}

// Checksum reports whether an issue is a CRC mismatch rather than a
// structural failure.
func (i Issue) Checksum() bool {
	return errors.Is(i.Err, zip.ErrChecksum)
}

// Verify decompresses every file entry of the archive and checks it
// against its central directory record. Entries are checked concurrently;
// all failures are collected rather than stopping at the first. The
// returned slice is sorted by entry name and empty for a healthy archive.
func Verify(ctx context.Context, path string, parallelism int) ([]Issue, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer rc.Close()

	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	var mu sync.Mutex
	var issues []Issue
	files := 0

	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files++
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := checkEntry(f); err != nil {
				name := f.Name
				if n, nerr := NormalizeName(f.Name); nerr == nil {
					name = n
				}
				mu.Lock()
				issues = append(issues, Issue{Name: name, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Name < issues[j].Name })
	logging.AuditWithArchive(path).VerifyRun(files, len(issues), time.Since(start).Milliseconds())
	return issues, nil
}

// checkEntry reads an entry to EOF. The zip reader verifies both the
// decompressed length and the CRC32 on the way through, so a clean read
// is a verified entry.
func checkEntry(f *zip.File) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	return nil
}
