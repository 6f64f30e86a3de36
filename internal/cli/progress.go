package cli

import (
	"fmt"

	"go-image-grader/internal/observer"
	"go-image-grader/internal/session"
	"go-image-grader/pkg/models"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22D3EE"))
	urlStyle      = lipgloss.NewStyle().Bold(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

// stateMsg carries a state change of the session being watched.
type stateMsg models.StateResponse

// finishedMsg is sent once the submitted generation has settled.
type finishedMsg struct {
	state session.State
	err   error
}

type progressModel struct {
	spinner spinner.Model
	url     string
	status  string
	updates <-chan observer.StateEvent

	state     session.State
	err       error
	done      bool
	cancelled bool
}

func newProgressModel(pageURL string, updates <-chan observer.StateEvent) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return progressModel{
		spinner: s,
		url:     pageURL,
		status:  session.StatusMessages[0],
		updates: updates,
	}
}

func waitForUpdate(updates <-chan observer.StateEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-updates
		if !ok {
			return nil
		}
		return stateMsg(e.State)
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancelled = true
			return m, tea.Quit
		}
		return m, nil

	case stateMsg:
		if msg.Progress != "" {
			m.status = msg.Progress
		}
		return m, waitForUpdate(m.updates)

	case finishedMsg:
		m.state = msg.state
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s AI is analyzing %s\n  %s\n", m.spinner.View(), urlStyle.Render(m.url), progressStyle.Render(m.status))
}
