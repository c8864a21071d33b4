// Package setup provides the interactive setup wizard that writes
// cockpit.toml.
package setup

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/openclaw/cockpit/internal/config"
)

// Step identifies one wizard screen.
type Step int

const (
	StepWelcome Step = iota
	StepGatewayURL
	StepTokenEnv
	StepReplayDir
	StepLogLevel
	StepConfirm
	StepDone
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Model is the wizard state.
type Model struct {
	step   Step
	input  textinput.Model
	cursor int
	cfg    *config.Config
	path   string
	err    error
}

// New creates a wizard that writes to path.
func New(path string) Model {
	input := textinput.New()
	input.CharLimit = 200
	input.Width = 60

	return Model{
		step:  StepWelcome,
		input: input,
		cfg:   config.New(),
		path:  path,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.handleEnter()
		case "up", "k":
			if m.step == StepLogLevel && m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.step == StepLogLevel && m.cursor < len(logLevels)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	if m.isTextInputStep() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) isTextInputStep() bool {
	switch m.step {
	case StepGatewayURL, StepTokenEnv, StepReplayDir:
		return true
	}
	return false
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case StepWelcome:
		m.step = StepGatewayURL
		m.input.SetValue(m.cfg.Gateway.URL)
		m.input.Placeholder = "wss://gateway.example.com/session"
		m.input.Focus()

	case StepGatewayURL:
		m.cfg.Gateway.URL = strings.TrimSpace(m.input.Value())
		m.step = StepTokenEnv
		m.input.SetValue(m.cfg.Gateway.TokenEnv)
		m.input.Placeholder = "COCKPIT_GATEWAY_TOKEN"

	case StepTokenEnv:
		m.cfg.Gateway.TokenEnv = strings.TrimSpace(m.input.Value())
		m.step = StepReplayDir
		m.input.SetValue(m.cfg.Replay.Dir)
		m.input.Placeholder = "showcases"

	case StepReplayDir:
		if dir := strings.TrimSpace(m.input.Value()); dir != "" {
			m.cfg.Replay.Dir = dir
		}
		m.step = StepLogLevel
		m.cursor = 1 // info

	case StepLogLevel:
		m.cfg.Logging.Level = logLevels[m.cursor]
		m.step = StepConfirm

	case StepConfirm:
		m.err = write(m.path, m.cfg)
		m.step = StepDone
		return m, tea.Quit
	}
	return m, nil
}

func write(path string, cfg *config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("cockpit setup"))
	b.WriteString("\n")

	switch m.step {
	case StepWelcome:
		b.WriteString(subtitleStyle.Render("This wizard writes " + m.path + "."))
		b.WriteString("\n\nPress enter to begin, esc to abort.\n")

	case StepGatewayURL:
		b.WriteString("Gateway WebSocket URL:\n\n")
		b.WriteString(m.input.View())

	case StepTokenEnv:
		b.WriteString("Environment variable holding the gateway token (empty for none):\n\n")
		b.WriteString(m.input.View())

	case StepReplayDir:
		b.WriteString("Showcase catalog directory:\n\n")
		b.WriteString(m.input.View())

	case StepLogLevel:
		b.WriteString("Log level:\n\n")
		for i, level := range logLevels {
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("  ▸ " + level))
			} else {
				b.WriteString(dimStyle.Render("    " + level))
			}
			b.WriteString("\n")
		}

	case StepConfirm:
		b.WriteString("About to write:\n\n")
		b.WriteString(fmt.Sprintf("  gateway.url  = %s\n", m.cfg.Gateway.URL))
		b.WriteString(fmt.Sprintf("  token env    = %s\n", m.cfg.Gateway.TokenEnv))
		b.WriteString(fmt.Sprintf("  replay.dir   = %s\n", m.cfg.Replay.Dir))
		b.WriteString(fmt.Sprintf("  log level    = %s\n", m.cfg.Logging.Level))
		b.WriteString("\nEnter to save, esc to abort.\n")

	case StepDone:
		if m.err != nil {
			b.WriteString(fmt.Sprintf("failed: %v\n", m.err))
		} else {
			b.WriteString("Saved " + m.path + "\n")
		}
	}

	return b.String()
}

// Err reports a write failure after the wizard finishes.
func (m Model) Err() error {
	return m.err
}

// Run executes the wizard.
func Run(path string) error {
	final, err := tea.NewProgram(New(path)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
