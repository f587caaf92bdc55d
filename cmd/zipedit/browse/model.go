// Package browse implements the interactive archive browser using
// bubbletea. The left pane lists the manifest, the right pane previews
// the selected entry, and single-key commands drive mutations through
// the same rewrite pipeline as the non-interactive commands.
package browse

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"zipedit/cmd/zipedit/ui"
	"zipedit/internal/archive"
	"zipedit/internal/config"
	"zipedit/internal/editor"
	"zipedit/internal/history"
	"zipedit/internal/logging"
	"zipedit/internal/watch"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// JournalFunc records a mutation in the history journal, best effort.
type JournalFunc func(op history.Operation, archivePath, entry, detail string)

// promptMode tracks which input flow the prompt line is collecting.
type promptMode int

const (
	modeBrowse promptMode = iota
	modeAddName
	modeAddContent
	modeLinkName
	modeLinkTarget
	modeDelete
)

// Options configures a browser session.
type Options struct {
	ArchivePath string
	Styles      ui.Styles
	Editor      config.EditorConfig
	MaxRead     int64
	Journal     JournalFunc
}

// editSession carries state across an external editor run.
type editSession struct {
	name      string
	tmpPath   string
	before    []byte
	editor    string
	startedAt time.Time
}

// Model is the bubbletea model for the archive browser.
type Model struct {
	// UI Components
	list      list.Model
	viewport  viewport.Model
	textinput textinput.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// Archive state
	archivePath string
	manifest    *archive.Manifest
	maxRead     int64

	// Prompt state
	mode        promptMode
	pendingName string
	previewName string

	// External editor
	editorCfg   config.EditorConfig
	pendingEdit *editSession

	// Watcher
	watcher *watch.Watcher

	// Journal callback, may be nil
	journal JournalFunc

	// State
	status string
	err    error
	width  int
	height int
	ready  bool
}

// Messages for tea updates
type (
	previewMsg struct {
		name    string
		content string
	}
	reloadMsg struct {
		manifest *archive.Manifest
		status   string
	}
	mutationDoneMsg struct {
		status string
	}
	watchEventMsg watch.Event
	editorDoneMsg struct {
		err error
	}
	errMsg error
)

// New builds a browser over the given archive. The archive must exist
// and parse; watcher setup failures degrade to a session without live
// reload rather than failing the launch.
func New(opts Options) (Model, error) {
	manifest, err := loadManifest(opts.ArchivePath)
	if err != nil {
		return Model{}, err
	}

	styles := opts.Styles

	// Entry list
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(styles.Theme.Accent).
		BorderLeftForeground(styles.Theme.Accent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(styles.Theme.Muted).
		BorderLeftForeground(styles.Theme.Accent)

	l := list.New(entryItems(manifest), delegate, 0, 0)
	l.Title = filepath.Base(opts.ArchivePath)
	l.Styles.Title = styles.Header
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	// Prompt input
	ti := textinput.New()
	ti.Prompt = "│ "
	ti.CharLimit = 4096
	ti.PromptStyle = lipgloss.NewStyle().Foreground(styles.Theme.Accent)

	// Preview viewport
	vp := viewport.New(80, 20)
	vp.SetContent("")

	m := Model{
		list:        l,
		viewport:    vp,
		textinput:   ti,
		styles:      styles,
		renderer:    buildRenderer(80, styles.Theme.IsDark),
		archivePath: opts.ArchivePath,
		manifest:    manifest,
		maxRead:     opts.MaxRead,
		editorCfg:   opts.Editor,
		journal:     opts.Journal,
		mode:        modeBrowse,
	}

	if w, err := watch.New(opts.ArchivePath); err != nil {
		logging.Browse("watcher unavailable: %v", err)
	} else if err := w.Start(context.Background()); err != nil {
		logging.Browse("watcher start failed: %v", err)
	} else {
		m.watcher = w
	}

	return m, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.waitForWatch(),
		m.previewSelected(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updatePrompt(msg)
		}
		return m.updateBrowse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		return m, m.previewSelected()

	case previewMsg:
		if e, ok := m.selectedEntry(); ok && e.Name == msg.name {
			m.previewName = msg.name
			m.viewport.SetContent(msg.content)
			m.viewport.GotoTop()
		}
		return m, nil

	case reloadMsg:
		m.manifest = msg.manifest
		m.err = nil
		if msg.status != "" {
			m.status = msg.status
		}
		cmd := m.list.SetItems(entryItems(msg.manifest))
		m.previewName = ""
		logging.Browse("reloaded %s: %d entries", m.archivePath, msg.manifest.Len())
		return m, tea.Batch(cmd, m.previewSelected())

	case mutationDoneMsg:
		m.status = msg.status
		return m, m.reloadCmd("")

	case watchEventMsg:
		if msg.Kind == watch.Removed {
			m.status = "⚠️  archive removed on disk"
			return m, m.waitForWatch()
		}
		return m, tea.Batch(m.reloadCmd("🔄 archive changed on disk; reloaded"), m.waitForWatch())

	case editorDoneMsg:
		return m.finishEdit(msg.err)

	case errMsg:
		m.err = msg
		m.status = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// updateBrowse handles keys in browse mode.
func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the list filter is typing, every key belongs to it.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyCtrlU, tea.KeyCtrlD:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyEnter:
		return m, m.previewSelected()
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "r":
		return m, m.reloadCmd("🔄 reloaded")
	case "a":
		return m.enterPrompt(modeAddName, "new entry name"), nil
	case "l":
		return m.enterPrompt(modeLinkName, "symlink entry name"), nil
	case "d":
		e, ok := m.selectedEntry()
		if !ok {
			m.status = "nothing selected"
			return m, nil
		}
		question := fmt.Sprintf("delete %s? y/N", e.Name)
		if e.Kind == archive.KindDir && hasChildren(m.manifest, e) {
			question = fmt.Sprintf("delete %s and everything beneath it? y/N", e.Name)
		}
		mm := m.enterPrompt(modeDelete, question)
		return mm, nil
	case "e":
		return m.startEdit()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if e, ok := m.selectedEntry(); ok && e.Name != m.previewName {
		return m, tea.Batch(cmd, m.previewSelected())
	}
	return m, cmd
}

// updatePrompt handles keys while an input flow is active.
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.quit()
	case tea.KeyEsc:
		m.status = "cancelled"
		return m.leavePrompt(), nil
	case tea.KeyEnter:
		return m.submitPrompt()
	}

	var cmd tea.Cmd
	m.textinput, cmd = m.textinput.Update(msg)
	return m, cmd
}

// submitPrompt advances the active input flow one step.
func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	value := m.textinput.Value()

	switch m.mode {
	case modeAddName:
		name := strings.TrimSpace(value)
		if name == "" {
			return m.leavePrompt(), nil
		}
		m.pendingName = name
		m.mode = modeAddContent
		m.textinput.Placeholder = "content"
		m.textinput.Reset()
		return m, nil

	case modeAddContent:
		name := m.pendingName
		mm := m.leavePrompt()
		return mm, mm.applyAdd(name, value)

	case modeLinkName:
		name := strings.TrimSpace(value)
		if name == "" {
			return m.leavePrompt(), nil
		}
		m.pendingName = name
		m.mode = modeLinkTarget
		m.textinput.Placeholder = "target path"
		m.textinput.Reset()
		return m, nil

	case modeLinkTarget:
		target := strings.TrimSpace(value)
		name := m.pendingName
		mm := m.leavePrompt()
		if target == "" {
			mm.status = "cancelled"
			return mm, nil
		}
		return mm, mm.applyLink(name, target)

	case modeDelete:
		answer := strings.ToLower(strings.TrimSpace(value))
		mm := m.leavePrompt()
		if answer != "y" && answer != "yes" {
			mm.status = "cancelled"
			return mm, nil
		}
		e, ok := mm.selectedEntry()
		if !ok {
			return mm, nil
		}
		return mm, mm.applyDelete(e)
	}

	return m.leavePrompt(), nil
}

func (m Model) enterPrompt(mode promptMode, placeholder string) Model {
	m.mode = mode
	m.pendingName = ""
	m.textinput.Placeholder = placeholder
	m.textinput.Reset()
	m.textinput.Focus()
	return m
}

func (m Model) leavePrompt() Model {
	m.mode = modeBrowse
	m.pendingName = ""
	m.textinput.Blur()
	m.textinput.Reset()
	return m
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	return m, tea.Quit
}

// startEdit suspends the TUI and hands the selected entry to the
// external editor.
func (m Model) startEdit() (tea.Model, tea.Cmd) {
	e, ok := m.selectedEntry()
	if !ok {
		m.status = "nothing selected"
		return m, nil
	}
	if e.Kind != archive.KindFile {
		m.status = "only file entries can be edited"
		return m, nil
	}

	content, err := readEntry(m.archivePath, e.Name, m.maxRead)
	if err != nil {
		m.err = err
		return m, nil
	}

	ed := editor.Editor{Command: m.editorCfg.Command, Fallbacks: m.editorCfg.Fallbacks}
	argv, err := ed.Resolve()
	if err != nil {
		m.err = err
		return m, nil
	}

	tmp, err := editor.WriteTemp(e.Name, content)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.pendingEdit = &editSession{
		name:      e.Name,
		tmpPath:   tmp,
		before:    content,
		editor:    argv[0],
		startedAt: time.Now(),
	}
	args := append(append([]string{}, argv[1:]...), tmp)
	execCmd := exec.Command(argv[0], args...)

	logging.Browse("editing %s via %s", e.Name, argv[0])
	return m, tea.ExecProcess(execCmd, func(err error) tea.Msg {
		return editorDoneMsg{err: err}
	})
}

// finishEdit resumes after the external editor exits.
func (m Model) finishEdit(editErr error) (tea.Model, tea.Cmd) {
	sess := m.pendingEdit
	m.pendingEdit = nil
	if sess == nil {
		return m, nil
	}
	defer os.Remove(sess.tmpPath)

	if editErr != nil {
		m.err = fmt.Errorf("editor exited with error: %w", editErr)
		return m, nil
	}

	after, err := os.ReadFile(sess.tmpPath)
	if err != nil {
		m.err = fmt.Errorf("failed to read edited file: %w", err)
		return m, nil
	}

	changed := !bytes.Equal(sess.before, after)
	logging.Audit().EditorSession(sess.name, sess.editor, changed, time.Since(sess.startedAt).Milliseconds())
	if !changed {
		m.status = fmt.Sprintf("⚠️  no changes to %s", sess.name)
		return m, nil
	}
	return m, m.applyEdit(sess.name, sess.before, after)
}

// ----- mutation commands -----

func (m Model) applyAdd(name, content string) tea.Cmd {
	path, journal := m.archivePath, m.journal
	return func() tea.Msg {
		rw := archive.NewRewrite(path)
		if err := rw.PutFile(name, []byte(content), 0); err != nil {
			return errMsg(err)
		}
		if _, err := rw.Apply(context.Background()); err != nil {
			return errMsg(err)
		}
		if journal != nil {
			journal(history.OpAdd, path, name, fmt.Sprintf("%d bytes", len(content)))
		}
		return mutationDoneMsg{status: fmt.Sprintf("✅ added %s", name)}
	}
}

func (m Model) applyLink(name, target string) tea.Cmd {
	path, journal := m.archivePath, m.journal
	return func() tea.Msg {
		rw := archive.NewRewrite(path)
		if err := rw.PutSymlink(name, target); err != nil {
			return errMsg(err)
		}
		if _, err := rw.Apply(context.Background()); err != nil {
			return errMsg(err)
		}
		if journal != nil {
			journal(history.OpLink, path, name, "-> "+target)
		}
		return mutationDoneMsg{status: fmt.Sprintf("🔗 %s -> %s", name, target)}
	}
}

func (m Model) applyDelete(e archive.Entry) tea.Cmd {
	path, journal := m.archivePath, m.journal
	return func() tea.Msg {
		rw := archive.NewRewrite(path)
		var err error
		if e.Kind == archive.KindDir {
			err = rw.DeleteTree(e.Name)
		} else {
			err = rw.Delete(e.Name)
		}
		if err != nil {
			return errMsg(err)
		}
		res, err := rw.Apply(context.Background())
		if err != nil {
			return errMsg(err)
		}
		if journal != nil {
			journal(history.OpRemove, path, e.Name, fmt.Sprintf("removed %d entries", len(res.Deleted)))
		}
		return mutationDoneMsg{status: fmt.Sprintf("🗑️  removed %s (%d entries)", e.Name, len(res.Deleted))}
	}
}

func (m Model) applyEdit(name string, before, after []byte) tea.Cmd {
	path, journal := m.archivePath, m.journal
	return func() tea.Msg {
		rw := archive.NewRewrite(path)
		rw.Overwrite = true
		if err := rw.PutFile(name, after, 0); err != nil {
			return errMsg(err)
		}
		if _, err := rw.Apply(context.Background()); err != nil {
			return errMsg(err)
		}
		if journal != nil {
			journal(history.OpEdit, path, name, fmt.Sprintf("%d -> %d bytes", len(before), len(after)))
		}
		return mutationDoneMsg{status: fmt.Sprintf("✅ updated %s (%d -> %d bytes)", name, len(before), len(after))}
	}
}

// ----- background commands -----

func (m Model) reloadCmd(status string) tea.Cmd {
	path := m.archivePath
	return func() tea.Msg {
		manifest, err := loadManifest(path)
		if err != nil {
			return errMsg(err)
		}
		return reloadMsg{manifest: manifest, status: status}
	}
}

func (m Model) previewSelected() tea.Cmd {
	e, ok := m.selectedEntry()
	if !ok {
		return nil
	}
	path, maxRead, renderer := m.archivePath, m.maxRead, m.renderer
	return func() tea.Msg {
		return previewMsg{name: e.Name, content: buildPreview(path, e, maxRead, renderer)}
	}
}

func (m Model) waitForWatch() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	ch := m.watcher.Events()
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return watchEventMsg(ev)
	}
}

// ----- helpers -----

func (m Model) selectedEntry() (archive.Entry, bool) {
	item, ok := m.list.SelectedItem().(entryItem)
	if !ok {
		return archive.Entry{}, false
	}
	return item.entry, true
}

// layout recomputes component sizes from the window dimensions.
func (m *Model) layout() {
	headerHeight := 2
	promptHeight := 1
	statusHeight := 1
	mainHeight := m.height - headerHeight - promptHeight - statusHeight
	if mainHeight < 3 {
		mainHeight = 3
	}

	listWidth := m.width * 2 / 5
	if listWidth < 24 {
		listWidth = 24
	}
	previewWidth := m.width - listWidth - 4
	if previewWidth < 20 {
		previewWidth = 20
	}

	m.list.SetSize(listWidth, mainHeight)
	m.viewport.Width = previewWidth
	m.viewport.Height = mainHeight - 2
	m.textinput.Width = m.width - 8
	m.renderer = buildRenderer(previewWidth-2, m.styles.Theme.IsDark)
}

func loadManifest(path string) (*archive.Manifest, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Manifest(), nil
}

func readEntry(path, name string, maxRead int64) ([]byte, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	a.MaxReadSize = maxRead
	return a.ReadAll(name)
}

func hasChildren(m *archive.Manifest, e archive.Entry) bool {
	prefix := strings.TrimSuffix(e.Name, "/") + "/"
	for _, other := range m.Entries() {
		if other.Name != prefix && strings.HasPrefix(other.Name, prefix) {
			return true
		}
	}
	return false
}

func buildRenderer(width int, dark bool) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	if dark {
		r, _ := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		return r
	}
	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("light"),
		glamour.WithWordWrap(width),
	)
	return r
}
