package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"zipedit/internal/logging"

	"github.com/scylladb/go-set/strset"
)

// Rewrite accumulates a mutation set against one archive and applies it
// as a single full rewrite: every surviving entry of the source is copied
// (raw, without recompression) into a temp file alongside the changes,
// which then atomically replaces the original. The source is never
// patched in place.
type Rewrite struct {
	path string

	// Overwrite permits upserts that collide with existing entries.
	Overwrite bool

	upserts   []upsert
	upsertIdx map[string]int
	deletes   *strset.Set
	trees     []string
}

type upsert struct {
	name    string
	data    []byte
	mode    fs.FileMode
	symlink bool
	target  string
}

// Result reports what a rewrite changed, with normalized entry names.
type Result struct {
	Added    []string
	Replaced []string
	Deleted  []string

	// Created is set when the archive did not exist and was created.
	Created bool
}

// NewRewrite starts an empty mutation set for the archive at path.
// A missing archive is treated as empty and created on Apply.
func NewRewrite(path string) *Rewrite {
	return &Rewrite{
		path:      path,
		upsertIdx: make(map[string]int),
		deletes:   strset.New(),
	}
}

// PutFile stages a regular file entry. A zero mode inherits the mode of
// the entry being replaced, falling back to 0644.
func (rw *Rewrite) PutFile(name string, data []byte, mode fs.FileMode) error {
	norm, err := NormalizeName(name)
	if err != nil {
		return err
	}
	return rw.put(upsert{name: norm, data: data, mode: mode})
}

// PutSymlink stages a symlink entry pointing at target. The target is
// stored verbatim; nothing checks that it resolves.
func (rw *Rewrite) PutSymlink(name, target string) error {
	norm, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("symlink %q: empty target", norm)
	}
	return rw.put(upsert{name: norm, symlink: true, target: target})
}

func (rw *Rewrite) put(u upsert) error {
	if rw.deletes.Has(u.name) {
		return fmt.Errorf("entry %q is both deleted and written", u.name)
	}
	if i, ok := rw.upsertIdx[u.name]; ok {
		rw.upserts[i] = u
		return nil
	}
	rw.upsertIdx[u.name] = len(rw.upserts)
	rw.upserts = append(rw.upserts, u)
	return nil
}

// Delete stages removal of one entry by exact name.
func (rw *Rewrite) Delete(name string) error {
	norm, err := NormalizeName(name)
	if err != nil {
		return err
	}
	if _, ok := rw.upsertIdx[norm]; ok {
		return fmt.Errorf("entry %q is both deleted and written", norm)
	}
	rw.deletes.Add(norm)
	return nil
}

// DeleteTree stages removal of an entry and everything beneath it
// (prefix match on name + "/").
func (rw *Rewrite) DeleteTree(name string) error {
	norm, err := NormalizeName(name)
	if err != nil {
		return err
	}
	norm = strings.TrimSuffix(norm, "/")
	rw.trees = append(rw.trees, norm)
	return nil
}

func (rw *Rewrite) empty() bool {
	return len(rw.upserts) == 0 && rw.deletes.Size() == 0 && len(rw.trees) == 0
}

// Apply validates the mutation set against the source archive and performs
// the rewrite. On any failure the original archive is left untouched and
// the temp file is removed.
func (rw *Rewrite) Apply(ctx context.Context) (*Result, error) {
	if rw.empty() {
		return nil, fmt.Errorf("nothing to apply")
	}

	start := time.Now()
	audit := logging.AuditWithArchive(rw.path)
	audit.RewriteBegin(len(rw.upserts), rw.deletes.Size()+len(rw.trees))

	res, err := rw.apply(ctx)
	if err != nil {
		audit.RewriteAbort(err, time.Since(start).Milliseconds())
		logging.RewriteError("%s: %v", rw.path, err)
		return nil, err
	}

	audit.RewriteCommit(len(res.Added), len(res.Replaced), len(res.Deleted), time.Since(start).Milliseconds())
	logging.Rewrite("%s: +%d ~%d -%d in %v", rw.path, len(res.Added), len(res.Replaced), len(res.Deleted), time.Since(start))
	return res, nil
}

func (rw *Rewrite) apply(ctx context.Context) (*Result, error) {
	src, created, err := rw.openSource()
	if err != nil {
		return nil, err
	}
	if src != nil {
		defer src.Close()
	}

	var files []*zip.File
	if src != nil {
		files = src.File
	}
	norms := make([]string, len(files))
	lastMode := make(map[string]fs.FileMode, len(files))
	for i, f := range files {
		n, err := NormalizeName(f.Name)
		if err != nil {
			// Pass unaddressable records through untouched.
			n = f.Name
		}
		norms[i] = n
		lastMode[n] = f.Mode()
	}

	res := &Result{Created: created}
	if err := rw.validate(lastMode, res); err != nil {
		return nil, err
	}

	if err := rw.writeArchive(ctx, files, norms, lastMode, res); err != nil {
		return nil, err
	}
	return res, nil
}

// openSource opens the archive being rewritten. A missing file yields a
// nil reader and created=true.
func (rw *Rewrite) openSource() (*zip.ReadCloser, bool, error) {
	src, err := zip.OpenReader(rw.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("open archive %s: %w", rw.path, err)
	}
	return src, false, nil
}

// validate checks the mutation set against the source before any byte is
// written: collisions need Overwrite, deletions need a match.
func (rw *Rewrite) validate(lastMode map[string]fs.FileMode, res *Result) error {
	for _, u := range rw.upserts {
		if _, exists := lastMode[u.name]; exists {
			if !rw.Overwrite {
				return fmt.Errorf("entry %q: %w", u.name, ErrEntryExists)
			}
			res.Replaced = append(res.Replaced, u.name)
		} else {
			res.Added = append(res.Added, u.name)
		}
	}

	deleted := strset.New()
	for name := range lastMode {
		if rw.deleted(name) {
			deleted.Add(name)
		}
	}
	if missing := strset.Difference(rw.deletes, deleted); missing.Size() > 0 {
		names := missing.List()
		sort.Strings(names)
		return fmt.Errorf("entry %q: %w", names[0], ErrEntryNotFound)
	}
	for _, tree := range rw.trees {
		matched := false
		for name := range lastMode {
			if name == tree || strings.HasPrefix(name, tree+"/") {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("entry %q: %w", tree, ErrEntryNotFound)
		}
	}
	res.Deleted = deleted.List()
	sort.Strings(res.Deleted)
	return nil
}

func (rw *Rewrite) deleted(norm string) bool {
	if rw.deletes.Has(norm) {
		return true
	}
	for _, tree := range rw.trees {
		if norm == tree || strings.HasPrefix(norm, tree+"/") {
			return true
		}
	}
	return false
}

// writeArchive streams the new archive to path+".tmp" and renames it over
// the original.
func (rw *Rewrite) writeArchive(ctx context.Context, files []*zip.File, norms []string, lastMode map[string]fs.FileMode, res *Result) (err error) {
	tmpPath := rw.path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(out)
	written := strset.New()

	for i, f := range files {
		if err = ctx.Err(); err != nil {
			return err
		}
		norm := norms[i]
		if rw.deleted(norm) {
			continue
		}
		if idx, ok := rw.upsertIdx[norm]; ok {
			// Replacement takes the position of the first occurrence;
			// later duplicates are dropped.
			if written.Has(norm) {
				continue
			}
			if err = rw.writeUpsert(zw, rw.upserts[idx], lastMode); err != nil {
				return err
			}
			written.Add(norm)
			continue
		}
		if err = zw.Copy(f); err != nil {
			return fmt.Errorf("copy entry %q: %w", f.Name, err)
		}
	}

	// New names append at the end in staging order.
	for _, u := range rw.upserts {
		if written.Has(u.name) {
			continue
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = rw.writeUpsert(zw, u, lastMode); err != nil {
			return err
		}
		written.Add(u.name)
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err = out.Sync(); err != nil {
		return fmt.Errorf("sync temp archive: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close temp archive: %w", err)
	}

	// Keep the original's permission bits when it exists.
	if fi, statErr := os.Stat(rw.path); statErr == nil {
		os.Chmod(tmpPath, fi.Mode().Perm())
	}

	if err = os.Rename(tmpPath, rw.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace archive: %w", err)
	}
	return nil
}

func (rw *Rewrite) writeUpsert(zw *zip.Writer, u upsert, lastMode map[string]fs.FileMode) error {
	hdr := &zip.FileHeader{
		Name:     u.name,
		Modified: time.Now(),
	}

	if u.symlink {
		hdr.Method = zip.Store
		hdr.SetMode(fs.ModeSymlink | 0o755)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("write symlink %q: %w", u.name, err)
		}
		if _, err := w.Write([]byte(u.target)); err != nil {
			return fmt.Errorf("write symlink %q: %w", u.name, err)
		}
		return nil
	}

	hdr.Method = zip.Deflate
	mode := u.mode
	if mode == 0 {
		if prev, ok := lastMode[u.name]; ok && prev.IsRegular() {
			mode = prev.Perm()
		} else {
			mode = 0o644
		}
	}
	hdr.SetMode(mode)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("write entry %q: %w", u.name, err)
	}
	if _, err := w.Write(u.data); err != nil {
		return fmt.Errorf("write entry %q: %w", u.name, err)
	}
	return nil
}
