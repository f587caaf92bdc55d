// Package main implements the zipedit CLI commands.
// This file launches the interactive archive browser.
package main

import (
	"zipedit/cmd/zipedit/browse"
	"zipedit/cmd/zipedit/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// browseCmd opens the interactive browser
var browseCmd = &cobra.Command{
	Use:   "browse <archive>",
	Short: "Browse an archive interactively",
	Long: `Opens a full-screen browser on the archive: the left pane lists
entries, the right pane previews the selection (markdown rendered),
and single keys drive mutations. The view reloads automatically when
the archive changes on disk.

Keys:
  a  add entry        e  edit with your editor
  l  symlink entry    d  delete entry
  r  reload           /  filter
  q  quit

Example:
  zipedit browse demo.zip
  zipedit demo.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

// runBrowse also backs the root command when an archive argument is
// given without a subcommand.
func runBrowse(cmd *cobra.Command, args []string) error {
	m, err := browse.New(browse.Options{
		ArchivePath: args[0],
		Styles:      ui.DefaultStyles(),
		Editor:      cfg.Editor,
		MaxRead:     cfg.GetMaxReadBytes(),
		Journal:     journalRecord,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
