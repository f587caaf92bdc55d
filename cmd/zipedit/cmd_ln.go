package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"zipedit/internal/archive"
	"zipedit/internal/history"
	"zipedit/internal/logging"

	"github.com/spf13/cobra"
)

var lnOverwrite bool

// lnCmd creates a symlink entry
var lnCmd = &cobra.Command{
	Use:   "ln <archive> <name> <target>",
	Short: "Create a symlink entry",
	Long: `Creates a symlink entry pointing at target. The link body is stored
uncompressed with Unix symlink attributes, so extraction tools that honor
them recreate a real symlink. Targets are stored verbatim and never
resolved against the archive.

Example:
  zipedit ln demo.zip current releases/v2.1
  zipedit ln demo.zip lib/libz.so libz.so.1.3 --overwrite`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Handle graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Println("\n⏹️  Interrupted")
			cancel()
		}()

		archivePath, name, target := args[0], args[1], args[2]

		rw := archive.NewRewrite(archivePath)
		rw.Overwrite = lnOverwrite
		if err := rw.PutSymlink(name, target); err != nil {
			return err
		}

		res, err := rw.Apply(ctx)
		if err != nil {
			if errors.Is(err, archive.ErrEntryExists) {
				return fmt.Errorf("%w (use --overwrite to replace it)", err)
			}
			return err
		}
		logging.Archive("ln %s -> %s in %s", name, target, archivePath)

		if res.Created {
			fmt.Printf("📦 Created archive %s\n", archivePath)
		}
		fmt.Printf("🔗 %s -> %s\n", name, target)

		journalRecord(history.OpLink, archivePath, name, "-> "+target)
		return nil
	},
}

func init() {
	lnCmd.Flags().BoolVar(&lnOverwrite, "overwrite", false, "Replace the entry if it already exists")
}
