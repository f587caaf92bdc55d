package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"zipedit/internal/archive"
	"zipedit/internal/history"
	"zipedit/internal/logging"

	"github.com/spf13/cobra"
)

var rmRecursive bool

// rmCmd deletes entries from an archive
var rmCmd = &cobra.Command{
	Use:   "rm <archive> <name|glob>...",
	Short: "Remove entries from an archive",
	Long: `Removes entries by exact name or glob. Directory entries with
children need --recursive, which takes the whole subtree. Every name
and pattern must match something; otherwise nothing is rewritten.

Example:
  zipedit rm demo.zip notes.txt
  zipedit rm demo.zip 'build/*.o'
  zipedit rm demo.zip src --recursive`,
	Args: cobra.MinimumNArgs(2),
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

		archivePath, patterns := args[0], args[1:]

		a, err := archive.Open(archivePath)
		if err != nil {
			return err
		}
		defer a.Close()
		m := a.Manifest()

		rw := archive.NewRewrite(archivePath)
		for _, pat := range patterns {
			if err := stageRemovals(rw, m, pat); err != nil {
				return err
			}
		}

		res, err := rw.Apply(ctx)
		if err != nil {
			return err
		}
		logging.Archive("rm %v from %s: %d entries", patterns, archivePath, len(res.Deleted))

		fmt.Printf("🗑️  Removed %d entries from %s\n", len(res.Deleted), archivePath)
		for _, name := range res.Deleted {
			fmt.Printf("   - %s\n", name)
		}

		journalRecord(history.OpRemove, archivePath, strings.Join(patterns, " "),
			fmt.Sprintf("removed %d entries", len(res.Deleted)))
		return nil
	},
}

// stageRemovals resolves one name or glob against the manifest and
// stages the matching deletions.
func stageRemovals(rw *archive.Rewrite, m *archive.Manifest, pat string) error {
	if strings.ContainsAny(pat, "*?[") {
		matches, err := m.Glob(pat)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("no entries match %q", pat)
		}
		for _, e := range matches {
			if err := stageOne(rw, m, e); err != nil {
				return err
			}
		}
		return nil
	}

	e, ok := m.Lookup(pat)
	if !ok {
		// Directory records carry a trailing slash the user may omit.
		e, ok = m.Lookup(pat + "/")
	}
	if !ok {
		if rmRecursive && childCount(m, pat) > 0 {
			// Implicit directory: children exist without a dir record.
			return rw.DeleteTree(pat)
		}
		return fmt.Errorf("entry %q: %w", pat, archive.ErrEntryNotFound)
	}
	return stageOne(rw, m, e)
}

func stageOne(rw *archive.Rewrite, m *archive.Manifest, e archive.Entry) error {
	if e.Kind != archive.KindDir {
		return rw.Delete(e.Name)
	}
	if rmRecursive {
		return rw.DeleteTree(e.Name)
	}
	if childCount(m, strings.TrimSuffix(e.Name, "/")) > 0 {
		return fmt.Errorf("directory %q is not empty (use --recursive)", e.Name)
	}
	return rw.Delete(e.Name)
}

// childCount counts entries strictly beneath the given directory name.
func childCount(m *archive.Manifest, dir string) int {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	n := 0
	for _, e := range m.Entries() {
		if e.Name != prefix && strings.HasPrefix(e.Name, prefix) {
			n++
		}
	}
	return n
}

func init() {
	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "Remove directory entries and everything beneath them")
}
