package main

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zipedit/internal/archive"
	"zipedit/internal/config"
)

// testConfig installs a config that keeps all state under the test's
// temp directory.
func testConfig(t *testing.T) {
	t.Helper()
	cfg = config.DefaultConfig()
	cfg.Logging.Debug = false
	cfg.History.Enabled = true
	cfg.History.DatabasePath = filepath.Join(t.TempDir(), "history.db")
	t.Cleanup(func() { cfg = nil })
}

func writeTestZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		switch {
		case strings.HasSuffix(name, "/"):
			if _, err := zw.Create(name); err != nil {
				t.Fatalf("create dir %s: %v", name, err)
			}
		case strings.HasPrefix(content, "link:"):
			hdr := &zip.FileHeader{Name: name, Method: zip.Store}
			hdr.SetMode(fs.ModeSymlink | 0o755)
			w, err := zw.CreateHeader(hdr)
			if err != nil {
				t.Fatalf("create link %s: %v", name, err)
			}
			if _, err := w.Write([]byte(strings.TrimPrefix(content, "link:"))); err != nil {
				t.Fatalf("write link %s: %v", name, err)
			}
		default:
			w, err := zw.Create(name)
			if err != nil {
				t.Fatalf("create file %s: %v", name, err)
			}
			if _, err := w.Write([]byte(content)); err != nil {
				t.Fatalf("write file %s: %v", name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func manifestOf(t *testing.T, path string) *archive.Manifest {
	t.Helper()
	a, err := archive.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer a.Close()
	return a.Manifest()
}

func TestAddCreatesArchiveAndEntry(t *testing.T) {
	testConfig(t)
	zipPath := filepath.Join(t.TempDir(), "fresh.zip")

	if err := addCmd.Flags().Set("content", "hello world"); err != nil {
		t.Fatal(err)
	}
	out := captureOutput(t, func() {
		if err := addCmd.RunE(addCmd, []string{zipPath, "notes.txt"}); err != nil {
			t.Errorf("add failed: %v", err)
		}
	})
	if !strings.Contains(out, "Created archive") {
		t.Errorf("missing creation notice: %q", out)
	}
	if !strings.Contains(out, "Added 'notes.txt'") {
		t.Errorf("missing add confirmation: %q", out)
	}

	if !manifestOf(t, zipPath).Has("notes.txt") {
		t.Error("entry missing from new archive")
	}
}

func TestAddExistingNeedsOverwrite(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{"notes.txt": "original"})

	if err := addCmd.Flags().Set("content", "replacement"); err != nil {
		t.Fatal(err)
	}
	err := addCmd.RunE(addCmd, []string{zipPath, "notes.txt"})
	if err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected overwrite hint, got: %v", err)
	}

	addOverwrite = true
	defer func() { addOverwrite = false }()
	out := captureOutput(t, func() {
		if err := addCmd.RunE(addCmd, []string{zipPath, "notes.txt"}); err != nil {
			t.Errorf("overwriting add failed: %v", err)
		}
	})
	if !strings.Contains(out, "Replaced 'notes.txt'") {
		t.Errorf("missing replace confirmation: %q", out)
	}
}

func TestViewPrintsContent(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{
		"docs/readme.md": "# Demo\n",
		"current":        "link:docs/readme.md",
	})

	out := captureOutput(t, func() {
		if err := viewCmd.RunE(viewCmd, []string{zipPath, "docs/readme.md"}); err != nil {
			t.Errorf("view failed: %v", err)
		}
	})
	if out != "# Demo\n" {
		t.Errorf("view output = %q", out)
	}

	out = captureOutput(t, func() {
		if err := viewCmd.RunE(viewCmd, []string{zipPath, "current"}); err != nil {
			t.Errorf("view symlink failed: %v", err)
		}
	})
	if !strings.Contains(out, "current -> docs/readme.md") {
		t.Errorf("symlink view = %q", out)
	}
}

func TestViewBinarySummarizedUnlessRaw(t *testing.T) {
	testConfig(t)
	raw := string([]byte{0xff, 0xfe, 0x00, 0x01})
	zipPath := writeTestZip(t, map[string]string{"blob.bin": raw})

	out := captureOutput(t, func() {
		if err := viewCmd.RunE(viewCmd, []string{zipPath, "blob.bin"}); err != nil {
			t.Errorf("view failed: %v", err)
		}
	})
	if !strings.Contains(out, "binary") {
		t.Errorf("expected binary notice, got %q", out)
	}

	viewRaw = true
	defer func() { viewRaw = false }()
	out = captureOutput(t, func() {
		if err := viewCmd.RunE(viewCmd, []string{zipPath, "blob.bin"}); err != nil {
			t.Errorf("raw view failed: %v", err)
		}
	})
	if out != raw {
		t.Errorf("raw view = %x, want %x", out, raw)
	}
}

func TestEditInlineRewritesEntry(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{"cfg.yaml": "version: 1\n"})

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.WriteString("version: 2\n"); err != nil {
		t.Fatal(err)
	}
	w.Close()
	origStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = origStdin }()

	editInline = true
	defer func() { editInline = false }()

	out := captureOutput(t, func() {
		if err := editCmd.RunE(editCmd, []string{zipPath, "cfg.yaml"}); err != nil {
			t.Errorf("inline edit failed: %v", err)
		}
	})
	if !strings.Contains(out, "Updated 'cfg.yaml'") {
		t.Errorf("missing update confirmation: %q", out)
	}

	a, err := archive.Open(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	data, err := a.ReadAll("cfg.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "version: 2\n" {
		t.Errorf("entry content = %q", data)
	}
}

func TestEditMissingEntryWantsCreate(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{"a.txt": "a"})

	editInline = true
	defer func() { editInline = false }()

	err := editCmd.RunE(editCmd, []string{zipPath, "nope.txt"})
	if err == nil || !strings.Contains(err.Error(), "--create") {
		t.Fatalf("expected create hint, got: %v", err)
	}
}

func TestLnWritesSymlinkEntry(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{"app-1.2.cfg": "x=1"})

	out := captureOutput(t, func() {
		if err := lnCmd.RunE(lnCmd, []string{zipPath, "app.cfg", "app-1.2.cfg"}); err != nil {
			t.Errorf("ln failed: %v", err)
		}
	})
	if !strings.Contains(out, "app.cfg -> app-1.2.cfg") {
		t.Errorf("ln output = %q", out)
	}

	e, ok := manifestOf(t, zipPath).Lookup("app.cfg")
	if !ok {
		t.Fatal("symlink entry missing")
	}
	if e.Kind != archive.KindSymlink || e.LinkTarget != "app-1.2.cfg" {
		t.Errorf("entry = kind %v target %q", e.Kind, e.LinkTarget)
	}
}

func TestLsGroupsEntries(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{
		"src/":        "",
		"src/main.go": "package main",
		"current":     "link:src/main.go",
	})

	out := captureOutput(t, func() {
		if err := lsCmd.RunE(lsCmd, []string{zipPath}); err != nil {
			t.Errorf("ls failed: %v", err)
		}
	})
	for _, want := range []string{"Directories (1)", "Files (1)", "Symlinks (1)", "src/main.go", "Total:"} {
		if !strings.Contains(out, want) {
			t.Errorf("ls output missing %q:\n%s", want, out)
		}
	}
}

func TestLsGlobStillShowsArchiveTotals(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{
		"docs/a.md": "a",
		"docs/b.md": "b",
		"main.go":   "package main",
	})

	out := captureOutput(t, func() {
		if err := lsCmd.RunE(lsCmd, []string{zipPath, "docs/*.md"}); err != nil {
			t.Errorf("ls glob failed: %v", err)
		}
	})
	if !strings.Contains(out, "(2 entries)") {
		t.Errorf("glob should narrow the listing: %q", out)
	}
	if strings.Contains(out, "main.go") {
		t.Errorf("unmatched entry listed: %q", out)
	}
	if !strings.Contains(out, "Total: 3 files") {
		t.Errorf("totals should cover the whole archive: %q", out)
	}
}

func TestRmDirectoryNeedsRecursive(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{
		"src/":        "",
		"src/main.go": "package main",
		"keep.txt":    "kept",
	})

	err := rmCmd.RunE(rmCmd, []string{zipPath, "src"})
	if err == nil || !strings.Contains(err.Error(), "--recursive") {
		t.Fatalf("expected recursive hint, got: %v", err)
	}

	rmRecursive = true
	defer func() { rmRecursive = false }()
	out := captureOutput(t, func() {
		if err := rmCmd.RunE(rmCmd, []string{zipPath, "src"}); err != nil {
			t.Errorf("recursive rm failed: %v", err)
		}
	})
	if !strings.Contains(out, "Removed 2 entries") {
		t.Errorf("rm output = %q", out)
	}

	m := manifestOf(t, zipPath)
	if m.Has("src/") || m.Has("src/main.go") {
		t.Error("directory tree still present")
	}
	if !m.Has("keep.txt") {
		t.Error("unrelated entry removed")
	}
}

func TestRmGlob(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{
		"build/a.o": "a",
		"build/b.o": "b",
		"build/lib": "l",
		"main.go":   "package main",
	})

	out := captureOutput(t, func() {
		if err := rmCmd.RunE(rmCmd, []string{zipPath, "build/*.o"}); err != nil {
			t.Errorf("rm glob failed: %v", err)
		}
	})
	if !strings.Contains(out, "Removed 2 entries") {
		t.Errorf("rm output = %q", out)
	}

	err := rmCmd.RunE(rmCmd, []string{zipPath, "*.zip"})
	if err == nil || !strings.Contains(err.Error(), "no entries match") {
		t.Fatalf("expected no-match error, got: %v", err)
	}
}

func TestVerifyCleanArchive(t *testing.T) {
	testConfig(t)
	zipPath := writeTestZip(t, map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
	})

	out := captureOutput(t, func() {
		if err := verifyCmd.RunE(verifyCmd, []string{zipPath}); err != nil {
			t.Errorf("verify failed: %v", err)
		}
	})
	if !strings.Contains(out, "2 files OK") {
		t.Errorf("verify output = %q", out)
	}
}

func TestHistoryRecordsMutations(t *testing.T) {
	testConfig(t)
	zipPath := filepath.Join(t.TempDir(), "logged.zip")

	if err := addCmd.Flags().Set("content", "tracked"); err != nil {
		t.Fatal(err)
	}
	captureOutput(t, func() {
		if err := addCmd.RunE(addCmd, []string{zipPath, "tracked.txt"}); err != nil {
			t.Errorf("add failed: %v", err)
		}
	})

	out := captureOutput(t, func() {
		if err := historyCmd.RunE(historyCmd, []string{zipPath}); err != nil {
			t.Errorf("history failed: %v", err)
		}
	})
	for _, want := range []string{"tracked.txt", "add", "records total"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryDisabled(t *testing.T) {
	testConfig(t)
	cfg.History.Enabled = false

	out := captureOutput(t, func() {
		if err := historyCmd.RunE(historyCmd, []string{}); err != nil {
			t.Errorf("history failed: %v", err)
		}
	})
	if !strings.Contains(out, "disabled") {
		t.Errorf("expected disabled notice, got %q", out)
	}
}
