package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.History.Enabled {
		t.Error("expected history enabled by default")
	}
	if cfg.Limits.MaxReadBytes != 256<<20 {
		t.Errorf("expected MaxReadBytes=%d, got %d", 256<<20, cfg.Limits.MaxReadBytes)
	}
	if len(cfg.Editor.Fallbacks) == 0 {
		t.Error("expected editor fallbacks")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("ZIPEDIT_EDITOR", "")
	t.Setenv("ZIPEDIT_HISTORY_DB", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Editor.Command = "hx"
	cfg.List.Long = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Editor.Command != "hx" {
		t.Errorf("expected Editor.Command=hx, got %s", loaded.Editor.Command)
	}
	if !loaded.List.Long {
		t.Error("expected List.Long=true")
	}
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("ZIPEDIT_EDITOR", "")
	t.Setenv("ZIPEDIT_HISTORY_DB", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Limits.MaxReadBytes != DefaultConfig().Limits.MaxReadBytes {
		t.Error("missing file should yield defaults")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	os.Setenv("ZIPEDIT_EDITOR", "emacs")
	defer os.Unsetenv("ZIPEDIT_EDITOR")

	os.Setenv("ZIPEDIT_HISTORY_DB", "/tmp/zipedit-test.db")
	defer os.Unsetenv("ZIPEDIT_HISTORY_DB")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Editor.Command != "emacs" {
		t.Errorf("expected Editor.Command=emacs, got %s", cfg.Editor.Command)
	}
	if cfg.History.DatabasePath != "/tmp/zipedit-test.db" {
		t.Errorf("expected DatabasePath=/tmp/zipedit-test.db, got %s", cfg.History.DatabasePath)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid default config, got error: %v", err)
	}

	cfg.History.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty history path")
	}

	cfg = DefaultConfig()
	cfg.Limits.MaxReadBytes = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative read cap")
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GetMaxReadBytes() == 0 {
		t.Error("GetMaxReadBytes should return non-zero")
	}

	cfg.Limits.MaxReadBytes = 0
	if cfg.GetMaxReadBytes() != 256<<20 {
		t.Error("GetMaxReadBytes should fall back to the default")
	}
}

func TestDefaultStateDir_HonorsXDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")
	if got := DefaultStateDir(); got != filepath.Join("/tmp/xdg-state", "zipedit") {
		t.Fatalf("DefaultStateDir=%q", got)
	}
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv("ZIPEDIT_CONFIG", "/tmp/custom.yaml")
	if got := DefaultPath(); got != "/tmp/custom.yaml" {
		t.Fatalf("DefaultPath=%q, want /tmp/custom.yaml", got)
	}
}
