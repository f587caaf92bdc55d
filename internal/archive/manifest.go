package archive

import (
	"archive/zip"
	"fmt"
	"path"

	"github.com/scylladb/go-set/strset"
)

// Manifest is an ordered snapshot of an archive's central directory.
// Entries keep their archive order; name lookups resolve duplicates to
// the last record, matching extraction behavior.
type Manifest struct {
	entries []Entry
	byName  map[string]int
}

func buildManifest(files []*zip.File) (*Manifest, error) {
	m := &Manifest{byName: make(map[string]int, len(files))}
	for _, f := range files {
		e, err := classify(f)
		if err != nil {
			return nil, err
		}
		m.entries = append(m.entries, e)
		m.byName[e.Name] = len(m.entries) - 1
	}
	return m, nil
}

// Entries returns all entries in archive order. Callers must not mutate
// the returned slice.
func (m *Manifest) Entries() []Entry { return m.entries }

// Len returns the number of central directory records.
func (m *Manifest) Len() int { return len(m.entries) }

// Lookup finds an entry by name. The name is normalized first, so
// backslash and "./"-prefixed spellings address the same entry.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	norm, err := NormalizeName(name)
	if err != nil {
		return Entry{}, false
	}
	i, ok := m.byName[norm]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Has reports whether a name exists in the archive.
func (m *Manifest) Has(name string) bool {
	_, ok := m.Lookup(name)
	return ok
}

// Glob returns the entries whose names match the pattern (path.Match
// against the full normalized name), deduplicated, in archive order.
// A pattern without meta characters degrades to an exact lookup.
func (m *Manifest) Glob(pattern string) ([]Entry, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	seen := strset.New()
	var out []Entry
	for _, e := range m.entries {
		ok, _ := path.Match(pattern, e.Name)
		if !ok || seen.Has(e.Name) {
			continue
		}
		seen.Add(e.Name)
		out = append(out, e)
	}
	return out, nil
}

// Totals aggregates entry counts and byte sizes for summaries.
type Totals struct {
	Files        int
	Dirs         int
	Symlinks     int
	Uncompressed uint64
	Compressed   uint64
}

// Totals sums the manifest. Directory records contribute to the dir count
// only; their sizes are always zero.
func (m *Manifest) Totals() Totals {
	var t Totals
	for _, e := range m.entries {
		switch e.Kind {
		case KindDir:
			t.Dirs++
		case KindSymlink:
			t.Symlinks++
		default:
			t.Files++
		}
		t.Uncompressed += e.Size
		t.Compressed += e.CompressedSize
	}
	return t
}
