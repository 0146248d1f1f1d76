// Package progress provides the optional Bubble Tea terminal UI that
// renders live check progress while internal/checker drains, adapted from
// the teacher's tui package: a spinner plus a running checked/broken/
// redirected tally instead of a crawl's checked/broken pair.
package progress

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arnewalsh/hyperguard/internal/checker"
)

// Model is the Bubble Tea model driving the progress view.
type Model struct {
	progressCh <-chan checker.ProgressEvent
	spinner    spinner.Model

	checked    int
	broken     int
	redirected int
	current    string
	quitting   bool
	done       bool
}

// NewModel builds a Model that reads progress events from ch until it
// closes.
func NewModel(ch <-chan checker.ProgressEvent) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{progressCh: ch, spinner: spin}
}

// Init starts the spinner and the progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.progressCh))
}

// eventMsg wraps one checker.ProgressEvent for the Bubble Tea event loop.
type eventMsg checker.ProgressEvent

// doneMsg signals the progress channel has closed, meaning Check is done.
type doneMsg struct{}

func waitForProgress(ch <-chan checker.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return eventMsg(evt)
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		m.checked = msg.Checked
		m.broken = msg.Broken
		m.current = msg.URI
		if msg.Status == checker.StatusRedirected {
			m.redirected++
		}
		return m, waitForProgress(m.progressCh)

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current state of the check.
func (m Model) View() string {
	if m.done {
		return successStyle.Render(fmt.Sprintf(
			"Checked %d links: %d broken, %d redirected\n", m.checked, m.broken, m.redirected))
	}
	return fmt.Sprintf("%s checking... %d checked, %d broken, %d redirected\n%s\n",
		m.spinner.View(), m.checked, m.broken, m.redirected,
		dimStyle.Render("  "+m.current))
}
