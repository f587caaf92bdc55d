package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func resetState(t *testing.T) {
	t.Helper()
	CloseAll()
	stateMu.Lock()
	logsDir = ""
	enabled = false
	logLevel = LevelInfo
	stateMu.Unlock()
}

// TestCategoriesWriteFiles tests that categories create log files when
// debug mode is on.
func TestCategoriesWriteFiles(t *testing.T) {
	resetState(t)
	dir := t.TempDir()

	if err := Initialize(dir, true, "debug"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState(t)

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryArchive,
		CategoryRewrite,
		CategoryEditor,
		CategoryHistory,
		CategoryWatch,
		CategoryBrowse,
	}

	for _, cat := range categories {
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}
	CloseAll()

	date := time.Now().Format("2006-01-02")
	for _, cat := range categories {
		path := filepath.Join(dir, date+"_"+string(cat)+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("expected log file for %s: %v", cat, err)
			continue
		}
		content := string(data)
		for _, want := range []string{"[INFO]", "[DEBUG]", "[WARN]", "[ERROR]"} {
			if !strings.Contains(content, want) {
				t.Errorf("category %s missing %s line", cat, want)
			}
		}
	}
}

// TestDisabledModeIsNoOp tests that nothing is written when debug mode
// is off.
func TestDisabledModeIsNoOp(t *testing.T) {
	resetState(t)
	dir := t.TempDir()

	if err := Initialize(dir, false, "info"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState(t)

	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled")
	}

	Archive("should vanish")
	RewriteError("should vanish too")
	Get(CategoryEditor).Warn("and this")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no log files, found %d", len(entries))
	}
}

// TestLevelFiltering tests that messages below the configured level are
// dropped.
func TestLevelFiltering(t *testing.T) {
	resetState(t)
	dir := t.TempDir()

	if err := Initialize(dir, true, "error"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState(t)

	logger := Get(CategoryRewrite)
	logger.Info("filtered out")
	logger.Error("kept")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, date+"_rewrite.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Error("info line should have been filtered")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("error line missing")
	}
}

// TestConcurrentGet tests that concurrent logger creation is safe.
func TestConcurrentGet(t *testing.T) {
	resetState(t)
	dir := t.TempDir()

	if err := Initialize(dir, true, "debug"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Get(CategoryWatch).Info("goroutine %d", n)
		}(i)
	}
	wg.Wait()
}

func TestTimer(t *testing.T) {
	resetState(t)
	if err := Initialize(t.TempDir(), true, "debug"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState(t)

	timer := StartTimer(CategoryArchive, "manifest scan")
	time.Sleep(5 * time.Millisecond)
	if elapsed := timer.Stop(); elapsed < 5*time.Millisecond {
		t.Errorf("elapsed %v too small", elapsed)
	}

	timer = StartTimer(CategoryRewrite, "rewrite")
	timer.StopWithThreshold(time.Nanosecond)
}
