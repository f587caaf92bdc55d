package main

import (
	"fmt"
	"os"
	"time"

	"zipedit/internal/config"
	"zipedit/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// version is stamped by the build.
var version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "zipedit [archive]",
	Short: "zipedit - inspect and mutate entries inside ZIP archives",
	Long: `zipedit works on ZIP archive members without extracting and repacking:
add files, view and edit contents, create symlink entries, list and
remove members, and verify integrity.

Every mutation rewrites the archive to a temp file next to the original
and atomically renames it into place; the source archive is never
patched in place and survives any failure untouched.

Run with an archive path and no subcommand to open the interactive
browser.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(resolveConfigPath())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		level := "info"
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Debug || verbose, level); err != nil {
			return err
		}
		if err := logging.InitAudit(); err != nil {
			return err
		}

		// Skip the zap logger for interactive mode (it owns the terminal)
		if interactiveCommand(cmd) {
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: open the browser on the given archive
		if len(args) == 0 {
			return cmd.Help()
		}
		return runBrowse(cmd, args)
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the zipedit version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zipedit %s\n", version)
	},
}

// interactiveCommand reports whether cmd launches the full-screen
// browser, which owns stdout.
func interactiveCommand(cmd *cobra.Command) bool {
	return cmd.Name() == "zipedit" || cmd.Name() == "browse"
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/zipedit/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	// Add commands to root
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(lnCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
