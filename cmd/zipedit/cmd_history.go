package main

import (
	"fmt"
	"path/filepath"

	"zipedit/cmd/zipedit/ui"
	"zipedit/internal/history"
	"zipedit/internal/logging"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd shows the mutation journal
var historyCmd = &cobra.Command{
	Use:   "history [archive]",
	Short: "Show recent archive mutations",
	Long: `Shows the mutation journal, most recent first. Every successful
add, edit, ln, and rm appends a row; pass an archive path to see just
that archive's history.

Example:
  zipedit history
  zipedit history demo.zip --limit 50`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.History.Enabled {
			fmt.Println("ℹ️  History is disabled in the config")
			return nil
		}

		store, err := history.NewStore(cfg.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()

		archiveFilter := ""
		if len(args) == 1 {
			archiveFilter = absPath(args[0])
		}

		records, err := store.Recent(archiveFilter, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("ℹ️  No recorded mutations")
			return nil
		}

		table := ui.NewTable("Mutation history", []string{"When", "Op", "Archive", "Entry", "Detail"})
		for _, rec := range records {
			table.AddRow(
				rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
				string(rec.Operation),
				rec.Archive,
				rec.Entry,
				rec.Detail,
			)
		}

		styles := ui.DefaultStyles()
		fmt.Print(table.View(styles))

		if total, err := store.Count(); err == nil {
			fmt.Println(styles.Muted.Render(fmt.Sprintf("%d records total", total)))
		}
		return nil
	},
}

// journalRecord appends one row to the mutation journal, best effort.
// A journal problem must never fail a mutation that already succeeded,
// so errors are logged and swallowed.
func journalRecord(op history.Operation, archivePath, entry, detail string) {
	if cfg == nil || !cfg.History.Enabled {
		return
	}
	store, err := history.NewStore(cfg.History.DatabasePath)
	if err != nil {
		logging.HistoryError("open journal: %v", err)
		return
	}
	defer store.Close()

	rec := &history.Record{
		Operation: op,
		Archive:   absPath(archivePath),
		Entry:     entry,
		Detail:    detail,
	}
	if err := store.Record(rec); err != nil {
		logging.HistoryError("append journal: %v", err)
	}
}

// absPath normalizes archive paths so journal rows for one archive
// match regardless of the working directory they were written from.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum rows to show")
}
