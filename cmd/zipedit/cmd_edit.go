// Package main implements the zipedit CLI commands.
// This file contains the edit command, which runs an external editor
// on a single entry and writes the result back.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"zipedit/internal/archive"
	"zipedit/internal/editor"
	"zipedit/internal/history"
	"zipedit/internal/logging"

	"github.com/spf13/cobra"
)

var (
	editEditor string
	editInline bool
	editCreate bool
)

// editCmd edits one entry in place
var editCmd = &cobra.Command{
	Use:   "edit <archive> <name>",
	Short: "Edit an entry with your editor",
	Long: `Extracts the entry to a temp file, runs your editor on it, and
rewrites the archive if the content changed. The editor comes from
--editor, then editor.command in the config, then $VISUAL, then
$EDITOR, then the configured fallbacks.

--inline skips the editor and reads the replacement from stdin.
--create starts from an empty entry when the name does not exist yet.

Example:
  zipedit edit demo.zip docs/readme.md
  echo "rewritten" | zipedit edit demo.zip notes.txt --inline`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// No timeout here: an editor session legitimately runs for
		// as long as the user keeps it open.
		ctx, cancel := context.WithCancel(context.Background())
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

		content, exists, err := loadEditContent(archivePath, name)
		if err != nil {
			return err
		}

		var newContent []byte
		changed := false
		if editInline {
			newContent, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			changed = !bytes.Equal(content, newContent)
		} else {
			command := cfg.Editor.Command
			if editEditor != "" {
				command = editEditor
			}
			ed := editor.Editor{Command: command, Fallbacks: cfg.Editor.Fallbacks}
			argv, err := ed.Resolve()
			if err != nil {
				return err
			}
			newContent, changed, err = editor.Edit(ctx, argv, name, content)
			if err != nil {
				return err
			}
		}

		if !changed && exists {
			fmt.Printf("⚠️  No changes to '%s'; archive untouched\n", name)
			return nil
		}

		rewriteCtx, rwCancel := context.WithTimeout(ctx, timeout)
		defer rwCancel()

		rw := archive.NewRewrite(archivePath)
		rw.Overwrite = exists
		if err := rw.PutFile(name, newContent, 0); err != nil {
			return err
		}
		if _, err := rw.Apply(rewriteCtx); err != nil {
			return err
		}
		logging.Editor("edit %s in %s: %d -> %d bytes", name, archivePath, len(content), len(newContent))

		if !exists {
			fmt.Printf("✅ Created '%s' in %s (%d bytes)\n", name, archivePath, len(newContent))
		} else {
			fmt.Printf("✅ Updated '%s' in %s (%d -> %d bytes)\n", name, archivePath, len(content), len(newContent))
		}

		journalRecord(history.OpEdit, archivePath, name,
			fmt.Sprintf("%d -> %d bytes", len(content), len(newContent)))
		return nil
	},
}

// loadEditContent reads the current entry bytes. A missing entry is an
// error unless --create was given, in which case editing starts empty.
func loadEditContent(archivePath, name string) (content []byte, exists bool, err error) {
	a, err := archive.Open(archivePath)
	if err != nil {
		return nil, false, err
	}
	defer a.Close()
	a.MaxReadSize = cfg.GetMaxReadBytes()

	entry, ok := a.Manifest().Lookup(name)
	if !ok {
		if editCreate {
			return []byte{}, false, nil
		}
		return nil, false, fmt.Errorf("entry %q: %w (use --create to start a new one)", name, archive.ErrEntryNotFound)
	}

	switch entry.Kind {
	case archive.KindDir:
		return nil, false, fmt.Errorf("'%s' is a directory entry, not a file", name)
	case archive.KindSymlink:
		return nil, false, fmt.Errorf("'%s' is a symlink entry; remove and recreate it instead", name)
	}

	content, err = a.ReadAll(name)
	if err != nil {
		if errors.Is(err, archive.ErrTooLarge) {
			return nil, false, fmt.Errorf("%w (raise limits.max_read_bytes in the config)", err)
		}
		return nil, false, err
	}
	return content, true, nil
}

func init() {
	editCmd.Flags().StringVar(&editEditor, "editor", "", "Editor command for this invocation (overrides config and environment)")
	editCmd.Flags().BoolVar(&editInline, "inline", false, "Read replacement content from stdin instead of launching an editor")
	editCmd.Flags().BoolVar(&editCreate, "create", false, "Create the entry if it does not exist")
}
