package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a simple table component for rendering static data.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string

	rightAligned map[int]bool
}

// NewTable creates a new Table with the given title and headers.
func NewTable(title string, headers []string) *Table {
	return &Table{
		Title:        title,
		Headers:      headers,
		Rows:         make([][]string, 0),
		rightAligned: make(map[int]bool),
	}
}

// AlignRight right-aligns the given column indexes. Numeric columns
// read better this way.
func (t *Table) AlignRight(cols ...int) *Table {
	for _, c := range cols {
		t.rightAligned[c] = true
	}
	return t
}

// AddRow adds a row to the table.
func (t *Table) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles.
func (t *Table) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder

	// Title
	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	// Calculate column widths
	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				w := lipgloss.Width(cell)
				if w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}

	// Add padding to widths because lipgloss Width includes padding
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	sepStyle := styles.Muted

	cellStyle := func(base lipgloss.Style, col int) lipgloss.Style {
		s := base.Width(colWidths[col])
		if t.rightAligned[col] {
			s = s.Align(lipgloss.Right)
		}
		return s
	}

	// Render Header
	for i, h := range t.Headers {
		if i < len(colWidths) {
			sb.WriteString(cellStyle(headerStyle, i).Render(h))
			if i < len(t.Headers)-1 {
				sb.WriteString(sepStyle.Render("|"))
			}
		}
	}
	sb.WriteString("\n")

	// Render Divider
	totalWidth := 0
	for _, w := range colWidths {
		totalWidth += w
	}
	totalWidth += len(t.Headers) - 1 // Separators

	sb.WriteString(sepStyle.Render(strings.Repeat("-", totalWidth)) + "\n")

	// Render Rows
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				sb.WriteString(cellStyle(rowStyle, i).Render(cell))
				if i < len(row)-1 {
					sb.WriteString(sepStyle.Render("|"))
				}
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
