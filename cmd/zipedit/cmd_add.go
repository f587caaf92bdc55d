// Package main implements the zipedit CLI commands.
// This file contains the add command, which writes new file entries.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"zipedit/internal/archive"
	"zipedit/internal/history"
	"zipedit/internal/logging"

	"github.com/spf13/cobra"
)

var (
	addContent   string
	addFrom      string
	addOverwrite bool
)

// addCmd adds a file entry to an archive
var addCmd = &cobra.Command{
	Use:   "add <archive> <name>",
	Short: "Add a file entry to an archive",
	Long: `Adds a file entry to the archive, rewriting it atomically.
Content comes from --content, --from, or stdin when neither is given.
A missing archive is created on the fly.

Example:
  zipedit add demo.zip notes.txt --content "hello"
  zipedit add demo.zip docs/readme.md --from README.md
  tar --to-stdout -xf src.tar file | zipedit add demo.zip file`,
	Args: cobra.ExactArgs(2),
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

		archivePath, name := args[0], args[1]

		content, mode, err := resolveAddContent(cmd)
		if err != nil {
			return err
		}

		rw := archive.NewRewrite(archivePath)
		rw.Overwrite = addOverwrite
		if err := rw.PutFile(name, content, mode); err != nil {
			return err
		}

		res, err := rw.Apply(ctx)
		if err != nil {
			if errors.Is(err, archive.ErrEntryExists) {
				return fmt.Errorf("%w (use --overwrite to replace it)", err)
			}
			return err
		}
		logging.Archive("add %s: %d bytes into %s", name, len(content), archivePath)

		if res.Created {
			fmt.Printf("📦 Created archive %s\n", archivePath)
		}
		verb := "Added"
		detail := fmt.Sprintf("%d bytes", len(content))
		if len(res.Replaced) > 0 {
			verb = "Replaced"
			detail = "replaced, " + detail
		}
		fmt.Printf("✅ %s '%s' in %s (%d bytes)\n", verb, name, archivePath, len(content))

		journalRecord(history.OpAdd, archivePath, name, detail)
		return nil
	},
}

// resolveAddContent picks the content source: --content wins, then
// --from, then stdin read to EOF.
func resolveAddContent(cmd *cobra.Command) ([]byte, fs.FileMode, error) {
	if cmd.Flags().Changed("content") {
		return []byte(addContent), 0, nil
	}
	if addFrom != "" {
		data, err := os.ReadFile(addFrom)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read source file: %w", err)
		}
		info, err := os.Stat(addFrom)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to stat source file: %w", err)
		}
		return data, info.Mode().Perm(), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, 0, nil
}

func init() {
	addCmd.Flags().StringVar(&addContent, "content", "", "Entry content as a literal string")
	addCmd.Flags().StringVar(&addFrom, "from", "", "Read entry content from a local file")
	addCmd.Flags().BoolVar(&addOverwrite, "overwrite", false, "Replace the entry if it already exists")
}
