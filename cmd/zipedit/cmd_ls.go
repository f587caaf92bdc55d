package main

import (
	"fmt"

	"zipedit/cmd/zipedit/ui"
	"zipedit/internal/archive"

	"github.com/spf13/cobra"
)

var lsLong bool

// lsCmd lists archive contents
var lsCmd = &cobra.Command{
	Use:   "ls <archive> [glob]",
	Short: "List archive contents",
	Long: `Lists the entries of an archive, grouped into directories, files,
and symlinks. Files show size, compression method, and ratio. An
optional glob filters names; * does not cross slashes.

Example:
  zipedit ls demo.zip
  zipedit ls demo.zip 'docs/*.md'
  zipedit ls demo.zip --long`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath := args[0]

		a, err := archive.Open(archivePath)
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.Manifest().Entries()
		if len(args) == 2 {
			entries, err = a.Manifest().Glob(args[1])
			if err != nil {
				return err
			}
		}

		long := lsLong || cfg.List.Long
		styles := ui.DefaultStyles()

		fmt.Printf("📦 %s (%d entries)\n\n", archivePath, len(entries))
		if len(entries) == 0 {
			fmt.Println(styles.Muted.Render("  (nothing to list)"))
			return nil
		}

		var dirs, files, links []archive.Entry
		for _, e := range entries {
			switch e.Kind {
			case archive.KindDir:
				dirs = append(dirs, e)
			case archive.KindSymlink:
				links = append(links, e)
			default:
				files = append(files, e)
			}
		}

		if len(dirs) > 0 {
			fmt.Println(styles.Subtitle.Render(fmt.Sprintf("Directories (%d)", len(dirs))))
			for _, d := range dirs {
				fmt.Println("  " + styles.DirName.Render(d.Name))
			}
			fmt.Println()
		}

		if len(files) > 0 {
			table := fileTable(files, long)
			fmt.Print(table.View(styles))
		}

		if len(links) > 0 {
			fmt.Println(styles.Subtitle.Render(fmt.Sprintf("Symlinks (%d)", len(links))))
			for _, l := range links {
				fmt.Printf("  %s -> %s\n", styles.LinkName.Render(l.Name), l.LinkTarget)
			}
			fmt.Println()
		}

		printTotals(a.Manifest(), styles)
		return nil
	},
}

func fileTable(files []archive.Entry, long bool) *ui.Table {
	headers := []string{"Name", "Size", "Packed", "Method", "Ratio"}
	if long {
		headers = append(headers, "Modified", "CRC32", "Mode")
	}

	table := ui.NewTable(fmt.Sprintf("Files (%d)", len(files)), headers).
		AlignRight(1, 2, 4)
	for _, f := range files {
		row := []string{
			f.Name,
			ui.FormatSize(int64(f.Size)),
			ui.FormatSize(int64(f.CompressedSize)),
			f.MethodName(),
			ui.FormatRatio(f.Ratio()),
		}
		if long {
			row = append(row,
				f.Modified.Format("2006-01-02 15:04"),
				fmt.Sprintf("%08x", f.CRC32),
				f.Mode.Perm().String(),
			)
		}
		table.AddRow(row...)
	}
	return table
}

// printTotals always summarizes the whole archive, even when a glob
// narrowed the listing above it.
func printTotals(m *archive.Manifest, styles ui.Styles) {
	t := m.Totals()
	line := fmt.Sprintf("Total: %d files, %d dirs, %d symlinks, %s packed to %s",
		t.Files, t.Dirs, t.Symlinks,
		ui.FormatSize(int64(t.Uncompressed)), ui.FormatSize(int64(t.Compressed)))
	fmt.Println(styles.Muted.Render(line))
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Show modification time, CRC, and mode columns")
}
