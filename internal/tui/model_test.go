package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/replay"
)

func replayModel(t *testing.T) *model {
	t.Helper()
	l := logging.New()
	l.SetLevel(logging.LevelError)
	sess := testSession(t)
	rec := &replay.Recording{Events: []replay.Event{
		{Type: replay.EventThinking, TimestampMS: 0, Text: "planning"},
		{Type: replay.EventThinking, TimestampMS: 10, Text: "building"},
	}}
	sched, err := replay.NewScheduler(rec, sess, l, replay.WithOnReset(sess.Reset))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	m := newModel(ModeReplay, "test", sess)
	m.sched = sched
	return m
}

// Scroll keys are not replay controls; they must pass through to the
// viewport.
func TestHandleKey_ReplayScrollKeysPassThrough(t *testing.T) {
	m := replayModel(t)

	scroll := []tea.KeyMsg{
		{Type: tea.KeyUp},
		{Type: tea.KeyDown},
		{Type: tea.KeyPgUp},
		{Type: tea.KeyPgDown},
	}
	for _, msg := range scroll {
		if consumed, _ := m.handleKey(msg); consumed {
			t.Errorf("key %q consumed, should reach the viewport", msg.String())
		}
	}
}

func TestHandleKey_ReplayControlsConsumed(t *testing.T) {
	m := replayModel(t)

	controls := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{' '}},
		{Type: tea.KeyRunes, Runes: []rune{'+'}},
		{Type: tea.KeyRunes, Runes: []rune{'-'}},
		{Type: tea.KeyRunes, Runes: []rune{'s'}},
		{Type: tea.KeyRunes, Runes: []rune{'r'}},
		{Type: tea.KeyLeft},
		{Type: tea.KeyRight},
	}
	for _, msg := range controls {
		if consumed, _ := m.handleKey(msg); !consumed {
			t.Errorf("control key %q not consumed", msg.String())
		}
	}
	m.sched.Stop()
}
