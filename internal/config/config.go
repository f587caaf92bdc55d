package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all zipedit configuration.
type Config struct {
	// External editor settings
	Editor EditorConfig `yaml:"editor"`

	// Mutation journal
	History HistoryConfig `yaml:"history"`

	// Safety limits
	Limits LimitsConfig `yaml:"limits"`

	// Listing defaults
	List ListConfig `yaml:"list"`

	// Debug logging
	Logging LoggingConfig `yaml:"logging"`
}

// EditorConfig configures how edit launches an external program.
type EditorConfig struct {
	// Command overrides $VISUAL/$EDITOR when set.
	Command string `yaml:"command"`

	// Fallbacks are probed in order when nothing else resolves.
	Fallbacks []string `yaml:"fallbacks"`
}

// HistoryConfig configures the mutation journal.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LimitsConfig bounds archive reads.
type LimitsConfig struct {
	// MaxReadBytes caps a single entry read (decompression guard).
	MaxReadBytes int64 `yaml:"max_read_bytes"`
}

// ListConfig sets listing defaults.
type ListConfig struct {
	// Long switches ls to the wide format by default.
	Long bool `yaml:"long"`
}

// LoggingConfig configures the debug file logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	state := DefaultStateDir()
	return &Config{
		Editor: EditorConfig{
			Fallbacks: []string{"nano", "vim", "vi"},
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(state, "history.db"),
		},
		Limits: LimitsConfig{
			MaxReadBytes: 256 << 20,
		},
		Logging: LoggingConfig{
			Dir: filepath.Join(state, "logs"),
		},
	}
}

// DefaultPath returns the default config file location
// (~/.config/zipedit/config.yaml, honoring XDG overrides).
func DefaultPath() string {
	if p := os.Getenv("ZIPEDIT_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "zipedit.yaml")
	}
	return filepath.Join(dir, "zipedit", "config.yaml")
}

// DefaultStateDir returns where zipedit keeps its journal and logs
// (~/.local/state/zipedit, honoring XDG_STATE_HOME).
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "zipedit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".zipedit")
	}
	return filepath.Join(home, ".local", "state", "zipedit")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if editor := os.Getenv("ZIPEDIT_EDITOR"); editor != "" {
		c.Editor.Command = editor
	}
	if path := os.Getenv("ZIPEDIT_HISTORY_DB"); path != "" {
		c.History.DatabasePath = path
	}
}

// GetMaxReadBytes returns the entry read cap, falling back to the default
// when the configured value is unusable.
func (c *Config) GetMaxReadBytes() int64 {
	if c.Limits.MaxReadBytes <= 0 {
		return 256 << 20
	}
	return c.Limits.MaxReadBytes
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.History.Enabled && c.History.DatabasePath == "" {
		return fmt.Errorf("history enabled but database_path is empty")
	}
	if c.Limits.MaxReadBytes < 0 {
		return fmt.Errorf("max_read_bytes must not be negative")
	}
	return nil
}
