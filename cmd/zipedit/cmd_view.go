package main

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"zipedit/internal/archive"

	"github.com/spf13/cobra"
)

var viewRaw bool

// viewCmd prints entry contents to stdout
var viewCmd = &cobra.Command{
	Use:   "view <archive> <name>",
	Short: "Print an entry's contents",
	Long: `Prints the contents of a file entry to stdout. Binary content is
summarized instead of dumped; --raw forces the bytes out regardless.
Symlink entries print as "name -> target".

Example:
  zipedit view demo.zip docs/readme.md
  zipedit view demo.zip assets/logo.png --raw > logo.png`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath, name := args[0], args[1]

		a, err := archive.Open(archivePath)
		if err != nil {
			return err
		}
		defer a.Close()
		a.MaxReadSize = cfg.GetMaxReadBytes()

		if entry, ok := a.Manifest().Lookup(name); ok && entry.Kind == archive.KindSymlink {
			fmt.Printf("%s -> %s\n", entry.Name, entry.LinkTarget)
			return nil
		}

		data, err := a.ReadAll(name)
		if err != nil {
			if errors.Is(err, archive.ErrNotFile) {
				return fmt.Errorf("'%s' is a directory entry, not a file", name)
			}
			return err
		}

		if !viewRaw && !utf8.Valid(data) {
			fmt.Printf("⚠️  '%s' is binary (%d bytes); use --raw to dump it\n", name, len(data))
			return nil
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	viewCmd.Flags().BoolVar(&viewRaw, "raw", false, "Write raw bytes even for binary content")
}
