package archive

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T, entries []testEntry) *Archive {
	t.Helper()
	a, err := Open(testArchivePath(t, entries))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestManifestClassification(t *testing.T) {
	a := openTestArchive(t, []testEntry{
		{name: "src/", dir: true},
		{name: "src/main.go", content: "package main\n"},
		{name: "bin/latest", link: "../src/main.go"},
	})

	m := a.Manifest()
	require.Equal(t, 3, m.Len())

	dir, ok := m.Lookup("src/")
	require.True(t, ok)
	assert.Equal(t, KindDir, dir.Kind)

	file, ok := m.Lookup("src/main.go")
	require.True(t, ok)
	assert.Equal(t, KindFile, file.Kind)
	assert.Equal(t, uint64(len("package main\n")), file.Size)

	link, ok := m.Lookup("bin/latest")
	require.True(t, ok)
	assert.Equal(t, KindSymlink, link.Kind)
	assert.Equal(t, "../src/main.go", link.LinkTarget)
}

func TestManifestGlob(t *testing.T) {
	a := openTestArchive(t, []testEntry{
		{name: "docs/a.md", content: "a"},
		{name: "docs/b.md", content: "b"},
		{name: "docs/c.txt", content: "c"},
		{name: "readme.md", content: "r"},
	})
	m := a.Manifest()

	t.Run("matches within one level", func(t *testing.T) {
		got, err := m.Glob("docs/*.md")
		require.NoError(t, err)

		var names []string
		for _, e := range got {
			names = append(names, e.Name)
		}
		if diff := cmp.Diff([]string{"docs/a.md", "docs/b.md"}, names); diff != "" {
			t.Errorf("glob mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("star does not cross slashes", func(t *testing.T) {
		got, err := m.Glob("*.md")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "readme.md", got[0].Name)
	})

	t.Run("no matches is empty, not an error", func(t *testing.T) {
		got, err := m.Glob("*.rs")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := m.Glob("[")
		require.Error(t, err)
	})
}

func TestManifestGlobDedupesDuplicates(t *testing.T) {
	a := openTestArchive(t, []testEntry{
		{name: "dup.txt", content: "one"},
		{name: "dup.txt", content: "two"},
	})

	got, err := a.Manifest().Glob("*.txt")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestManifestTotals(t *testing.T) {
	a := openTestArchive(t, []testEntry{
		{name: "src/", dir: true},
		{name: "src/a.go", content: "package a\n"},
		{name: "src/b.go", content: "package b\n"},
		{name: "current", link: "src"},
	})

	got := a.Manifest().Totals()
	want := Totals{Files: 2, Dirs: 1, Symlinks: 1}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Totals{}, "Uncompressed", "Compressed")); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(2*len("package a\n")+len("src")), got.Uncompressed)
}

func TestManifestEmptyArchive(t *testing.T) {
	a := openTestArchive(t, nil)
	assert.Equal(t, 0, a.Manifest().Len())
	assert.Equal(t, Totals{}, a.Manifest().Totals())
}
