// Package ui provides the interactive capture loop: a Bubble Tea program
// for terminals with raw key support and a line mode for everything else.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

const statusMessageTimeout = time.Second * 3

type state int

const (
	stateReady state = iota
	stateCapturing
)

type (
	captureMsg              struct{ capture Capture }
	errMsg                  struct{ err error }
	statusMessageTimeoutMsg struct{}
)

func (e errMsg) Error() string { return e.err.Error() }

type model struct {
	cfg      Config
	capturer *Capturer
	spinner  spinner.Model
	state    state
	width    int

	last    *Capture
	history []Capture
	count   int
	err     error
	status  string
}

// NewProgram returns a new Tea program driving capturer.
func NewProgram(cfg Config, capturer *Capturer) *tea.Program {
	log.Debug("Starting capture loop", "threshold", cfg.threshold(), "top", cfg.Top, "snapshots", cfg.SnapshotDir)
	return tea.NewProgram(newModel(cfg, capturer))
}

func newModel(cfg Config, capturer *Capturer) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = confidentStyle
	return model{cfg: cfg, capturer: capturer, spinner: sp}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			if m.state == stateCapturing {
				return m, nil
			}
			m.state = stateCapturing
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.captureCmd())
		case "c":
			if m.last == nil {
				return m, nil
			}
			label := m.last.Result.Label
			// OSC 52 for remote sessions, then the native clipboard
			termenv.Copy(label)
			_ = clipboard.WriteAll(label)
			return m, m.showStatusMessage("Copied " + label)
		}

	case captureMsg:
		m.state = stateReady
		m.count++
		if m.last != nil {
			m.history = append([]Capture{*m.last}, m.history...)
			if len(m.history) > m.cfg.History {
				m.history = m.history[:max(0, m.cfg.History)]
			}
		}
		c := msg.capture
		m.last = &c

	case errMsg:
		m.state = stateReady
		m.err = msg.err
		log.Warn("Capture failed", "err", msg.err)

	case statusMessageTimeoutMsg:
		m.status = ""

	case spinner.TickMsg:
		if m.state != stateCapturing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) captureCmd() tea.Cmd {
	capturer := m.capturer
	return func() tea.Msg {
		c, err := capturer.Capture()
		if err != nil {
			return errMsg{err}
		}
		return captureMsg{c}
	}
}

func (m *model) showStatusMessage(text string) tea.Cmd {
	m.status = text
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}

func (m model) View() string {
	var b strings.Builder
	threshold := m.cfg.threshold()

	fmt.Fprintf(&b, "\n  %s\n\n", titleStyle.Render("Pokédex"))

	switch {
	case m.state == stateCapturing:
		fmt.Fprintf(&b, "  %s Analysing...\n", m.spinner.View())
	case m.err != nil:
		b.WriteString("  " + errorStyle.Render(fit(m.err.Error(), m.width-2)) + "\n")
	case m.last != nil:
		b.WriteString("  " + resultLine(m.last.Result, threshold) + "\n")
	default:
		b.WriteString("  Point the camera at a Pokémon and press space.\n")
	}

	if m.last != nil && m.state != stateCapturing {
		if m.cfg.Top > 1 {
			b.WriteString("\n")
			for _, line := range rankTable(topN(m.last.Result.Top, m.cfg.Top)) {
				b.WriteString("  " + fit(line, m.width-2) + "\n")
			}
		}
		meta := fmt.Sprintf("#%d in %s", m.count, m.last.Result.Elapsed.Round(time.Millisecond))
		if m.last.Snapshot != "" {
			meta += " · " + m.last.Snapshot
		}
		b.WriteString("\n  " + helpStyle.Render(fit(meta, m.width-2)) + "\n")
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		for _, c := range m.history {
			line := c.At.Format("15:04:05") + "  " + c.Result.Format(threshold)
			b.WriteString("  " + helpStyle.Render(fit(line, m.width-2)) + "\n")
		}
	}

	help := "space capture • c copy • q quit"
	if m.status != "" {
		help = m.status
	}
	b.WriteString("\n  " + helpStyle.Render(help) + "\n")
	return b.String()
}
