// Package tui is an interactive browser over the indexed sessions: a
// filterable list on the left, the selected conversation's previews on the
// right.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/pkerr/ai-session-index/internal/store"
)

const listShare = 45 // percent of the width given to the session list

type sessionsLoadedMsg struct {
	sessions []store.Session
	err      error
}

type previewLoadedMsg struct {
	sessionID string
	content   string
	err       error
}

type model struct {
	store       *store.Store
	sessions    []store.Session
	filtered    []store.Session
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewID   string // avoids duplicate loads for the same selection
	width       int
	height      int
	ready       bool
	err         error
}

// Run starts the browser and blocks until it exits.
func Run(st *store.Store) error {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	m := model{
		store:       st,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return loadSessionsCmd(m.store)
}

func loadSessionsCmd(st *store.Store) tea.Cmd {
	return func() tea.Msg {
		sessions, err := st.ListSessions(store.ListOptions{})
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

func loadPreviewCmd(st *store.Store, sessionID string) tea.Cmd {
	return func() tea.Msg {
		messages, err := st.Messages(sessionID, "")
		if err != nil {
			return previewLoadedMsg{sessionID: sessionID, err: err}
		}

		var sb strings.Builder
		for _, msg := range messages {
			sb.WriteString(fmt.Sprintf("[%s] %s\n", msg.Type, msg.Timestamp.Format("2006-01-02 15:04")))
			sb.WriteString(msg.ContentPreview)
			sb.WriteString("\n\n")
		}
		return previewLoadedMsg{sessionID: sessionID, content: sb.String()}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = viewport.New(m.previewWidth(), m.panelHeight())
		m.preview.Style = stylePanelBorder
		return m, nil

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.sessions = msg.sessions
		m.applyFilter()
		return m, m.selectCmd()

	case previewLoadedMsg:
		if msg.err == nil && msg.sessionID == m.previewID {
			m.preview.SetContent(msg.content)
			m.preview.GotoTop()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			m.adjustScroll()
			return m, m.selectCmd()
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			m.adjustScroll()
			return m, m.selectCmd()
		case key.Matches(msg, keys.PreviewUp):
			m.preview.HalfPageUp()
			return m, nil
		case key.Matches(msg, keys.PreviewDn):
			m.preview.HalfPageDown()
			return m, nil
		}

		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, tea.Batch(cmd, m.selectCmd())
	}

	return m, nil
}

// applyFilter keeps sessions whose display text or project contains the
// filter, case-insensitively.
func (m *model) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	if query == "" {
		m.filtered = m.sessions
	} else {
		m.filtered = nil
		for _, sess := range m.sessions {
			if strings.Contains(strings.ToLower(sess.Display), query) ||
				strings.Contains(strings.ToLower(sess.Project), query) {
				m.filtered = append(m.filtered, sess)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = 0
		m.listOffset = 0
	}
}

func (m *model) selectCmd() tea.Cmd {
	if m.cursor >= len(m.filtered) {
		m.previewID = ""
		m.preview.SetContent("")
		return nil
	}
	sess := m.filtered[m.cursor]
	if sess.ID == m.previewID {
		return nil
	}
	m.previewID = sess.ID
	return loadPreviewCmd(m.store, sess.ID)
}

const linesPerItem = 2

func (m *model) adjustScroll() {
	visible := m.panelHeight() / linesPerItem
	if visible < 1 {
		visible = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visible {
		m.listOffset = m.cursor - visible + 1
	}
}

func (m model) listWidth() int    { return m.width * listShare / 100 }
func (m model) previewWidth() int { return m.width - m.listWidth() - 2 }
func (m model) panelHeight() int  { return m.height - 4 }

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	list := m.renderList(m.listWidth(), m.panelHeight())
	panels := lipgloss.JoinHorizontal(lipgloss.Top, list, m.preview.View())

	status := styleStatusBar.Render(fmt.Sprintf(
		"%d/%d sessions  up/dn move  C-u/C-d preview  esc quit",
		len(m.filtered), len(m.sessions)))

	return m.filterInput.View() + "\n" + panels + "\n" + status
}

func (m model) renderList(width, height int) string {
	if len(m.filtered) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No sessions")
	}

	var lines []string
	for i := m.listOffset; i < len(m.filtered); i++ {
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatSessionLines(m.filtered[i], width, i == m.cursor)...)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatSessionLines renders one session as two lines:
//
//	line 1: [>] source  MM-DD  display
//	line 2:     project (dimmed)
func formatSessionLines(sess store.Session, width int, selected bool) []string {
	var src string
	switch sess.Source {
	case "claude":
		src = styleSourceClaude.Render("claude")
	case "codex":
		src = styleSourceCodex.Render("codex ")
	default:
		src = sess.Source
	}

	date := sess.UpdatedAt.Format("01-02")

	display := strings.ReplaceAll(sess.Display, "\n", " ")
	displayMax := width - 2 - 7 - 6 - 2
	if displayMax < 0 {
		displayMax = 0
	}
	if runewidth.StringWidth(display) > displayMax {
		display = runewidth.Truncate(display, displayMax, "")
	}

	line1 := fmt.Sprintf("%s %s %s", src, date, display)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	project := sess.Project
	projectMax := width - 4
	if projectMax < 0 {
		projectMax = 0
	}
	if runewidth.StringWidth(project) > projectMax {
		project = runewidth.Truncate(project, projectMax, "")
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(project)

	return []string{line1, line2}
}
