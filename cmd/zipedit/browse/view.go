package browse

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.list.View(),
		m.styles.Preview.Width(m.viewport.Width).Render(m.viewport.View()),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		main,
		m.renderPrompt(),
		m.renderStatus(),
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" 📦 zipedit ")
	name := m.styles.Badge.Render(filepath.Base(m.archivePath))
	count := m.styles.Muted.Render(fmt.Sprintf(" %d entries", m.manifest.Len()))

	var state string
	switch {
	case m.pendingEdit != nil:
		state = m.styles.Warning.Render("● Editing")
	case m.mode != modeBrowse:
		state = m.styles.Warning.Render("● Input")
	default:
		state = m.styles.Success.Render("● Ready")
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center, title, " ", name, count, "  ", state)
	return lipgloss.JoinVertical(lipgloss.Left, line, m.styles.RenderDivider(m.width))
}

// renderPrompt shows the input line during a flow and the key help
// otherwise.
func (m Model) renderPrompt() string {
	if m.mode == modeBrowse {
		return m.styles.Footer.Render("a add • e edit • l symlink • d delete • r reload • / filter • enter preview • q quit")
	}
	return m.styles.Info.Render(promptLabel(m.mode)) + " " + m.textinput.View()
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return m.styles.Error.Render("❌ " + m.err.Error())
	}
	if m.status == "" {
		return " "
	}
	return m.styles.Body.Render(m.status)
}

func promptLabel(mode promptMode) string {
	switch mode {
	case modeAddName, modeAddContent:
		return "add"
	case modeLinkName, modeLinkTarget:
		return "ln"
	case modeDelete:
		return "rm"
	default:
		return ""
	}
}
