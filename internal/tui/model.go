package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/openclaw/cockpit/internal/gateway"
	"github.com/openclaw/cockpit/internal/protocol"
	"github.com/openclaw/cockpit/internal/replay"
	"github.com/openclaw/cockpit/internal/session"
)

// Mode selects which source drives the model. A model is bound to exactly
// one source for its lifetime.
type Mode int

const (
	ModeLive Mode = iota
	ModeReplay
)

// External events pushed into the program.
type (
	refreshMsg   struct{}
	connStateMsg gateway.ConnState
)

type model struct {
	mode  Mode
	title string

	sess   *session.Session
	client *gateway.Client    // live mode only
	sched  *replay.Scheduler  // replay mode only

	viewport viewport.Model
	input    textinput.Model
	ready    bool
	follow   bool

	connState gateway.ConnState
}

func newModel(mode Mode, title string, sess *session.Session) *model {
	input := textinput.New()
	input.Placeholder = "Message the agent..."
	input.CharLimit = 2000
	if mode == ModeLive {
		input.Focus()
	}
	return &model{
		mode:   mode,
		title:  title,
		sess:   sess,
		input:  input,
		follow: true,
	}
}

func (m *model) Init() tea.Cmd {
	if m.mode == ModeLive {
		return textinput.Blink
	}
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case refreshMsg:
		m.refreshContent()

	case connStateMsg:
		m.connState = gateway.ConnState(msg)

	case tea.KeyMsg:
		if done, cmd := m.handleKey(msg); done {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.refreshContent()
	}

	if m.mode == ModeLive {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey returns true when the key was consumed as a control.
func (m *model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return true, tea.Quit
	case "g":
		if m.mode == ModeReplay {
			m.viewport.GotoTop()
			m.follow = false
			return true, nil
		}
	case "G":
		if m.mode == ModeReplay {
			m.viewport.GotoBottom()
			m.follow = true
			return true, nil
		}
	}

	if m.mode == ModeReplay {
		switch key {
		case "q":
			return true, tea.Quit
		case " ":
			m.sched.TogglePause()
			return true, nil
		case "+", "=":
			m.sched.SetSpeed(m.sched.Speed() + 0.5)
			return true, nil
		case "-":
			m.sched.SetSpeed(m.sched.Speed() - 0.5)
			return true, nil
		case "s":
			m.sched.Skip()
			return true, nil
		case "r":
			m.sched.Restart()
			return true, nil
		case "left":
			next, _ := m.sched.Position()
			if next > 1 {
				m.sched.Seek(max(0, next-6))
			}
			return true, nil
		case "right":
			next, total := m.sched.Position()
			if next < total {
				m.sched.Seek(min(total-1, next+4))
			}
			return true, nil
		}
		// Anything else (up/down/pgup/pgdn) belongs to the viewport.
		return false, nil
	}

	// Live mode: the input owns most keys.
	switch key {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return true, nil
		}
		if m.connState == gateway.StateFailed {
			return true, nil
		}
		m.sess.NewTurn(text)
		if err := m.client.Chat(protocol.ChatCommand{Message: text}); err != nil {
			m.sess.StreamError(err.Error())
		}
		m.input.Reset()
		return true, nil
	case "ctrl+r":
		// Manual retry once bounded reconnects are exhausted.
		if m.connState == gateway.StateFailed {
			client := m.client
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				client.Reconnect(ctx)
			}()
		}
		return true, nil
	}
	return false, nil
}

func (m *model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(RenderSession(m.sess, m.viewport.Width))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := titleStyle.Render(m.title)
	status := m.statusLine()
	pad := max(0, m.viewport.Width-lipgloss.Width(title)-lipgloss.Width(status))
	header := title + dimStyle.Render(strings.Repeat("─", pad)) + status

	footer := m.footer()
	return header + "\n" + m.viewport.View() + "\n" + footer
}

func (m *model) statusLine() string {
	if m.mode == ModeReplay {
		next, total := m.sched.Position()
		state := m.sched.State().String()
		styled := warnStyle.Render(state)
		if m.sched.State() == replay.StateComplete {
			styled = successStyle.Render(state)
		}
		return fmt.Sprintf(" %s %s ", styled,
			dimStyle.Render(fmt.Sprintf("%d/%d ×%.1f", next, total, m.sched.Speed())))
	}

	switch m.connState {
	case gateway.StateConnected:
		return successStyle.Render(" ● connected ")
	case gateway.StateReconnecting:
		return warnStyle.Render(" ◌ reconnecting… ")
	case gateway.StateFailed:
		return errorStyle.Render(" ✗ connection lost — ctrl+r to retry ")
	case gateway.StateConnecting:
		return warnStyle.Render(" ◌ connecting… ")
	default:
		return dimStyle.Render(" ○ disconnected ")
	}
}

func (m *model) footer() string {
	if m.mode == ModeReplay {
		help := " space: pause │ +/-: speed │ ←/→: seek │ s: skip │ r: restart │ q: quit "
		return helpStyle.Render(help)
	}
	return m.input.View() + "\n" + helpStyle.Render(" enter: send │ ctrl+r: retry connection │ ctrl+c: quit ")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RunLive drives a live gateway session until the user quits.
func RunLive(client *gateway.Client, sess *session.Session, title string) error {
	m := newModel(ModeLive, title, sess)
	m.client = client
	prog := tea.NewProgram(m, tea.WithAltScreen())

	sess.OnChange(NotifyChange(prog))
	client.OnStateChange(func(s gateway.ConnState) {
		prog.Send(connStateMsg(s))
	})

	_, err := prog.Run()
	return err
}

// RunReplay plays one showcase until it completes and the user quits.
func RunReplay(sched *replay.Scheduler, sess *session.Session, title string) error {
	m := newModel(ModeReplay, title, sess)
	m.sched = sched
	prog := tea.NewProgram(m, tea.WithAltScreen())

	sess.OnChange(NotifyChange(prog))
	go sched.Play()

	_, err := prog.Run()
	sched.Stop()
	return err
}

// NotifyChange returns a session OnChange hook bound to a program, so any
// state mutation triggers a re-render.
func NotifyChange(prog *tea.Program) func() {
	return func() { prog.Send(refreshMsg{}) }
}
