// Package session glues the reducers together: one transcript, one worker
// registry, the sandbox file map and terminal buffers, fed through the
// shared event sink by either the live gateway or the replay scheduler.
// A Session is bound to exactly one source; switching requires Reset.
package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
	"github.com/openclaw/cockpit/internal/transcript"
	"github.com/openclaw/cockpit/internal/workers"
)

// FileEntry is one sandbox file as last reported over the wire.
type FileEntry struct {
	Path    string
	Content string
	Size    int
}

// Session owns all derived state for one conversation. It implements
// protocol.EventSink, so live and replay traffic fold identically.
type Session struct {
	mu sync.Mutex

	transcript *transcript.Transcript
	registry   *workers.Registry
	logger     *logging.Logger

	files      map[string]FileEntry
	terminals  map[string]*strings.Builder
	previewURL string
	sandboxID  string

	// onChange fires after any state mutation so a UI can re-render.
	onChange func()
	// onCheckpoint surfaces trigger_checkpoint_save; persistence itself is
	// external.
	onCheckpoint func(protocol.TriggerCheckpointSaveEvent)
}

// Option configures a Session.
type Option func(*Session)

// WithOnChange registers the re-render callback.
func WithOnChange(fn func()) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithOnCheckpoint registers the checkpoint-save callback.
func WithOnCheckpoint(fn func(protocol.TriggerCheckpointSaveEvent)) Option {
	return func(s *Session) { s.onCheckpoint = fn }
}

// New creates an empty session.
func New(logger *logging.Logger, opts ...Option) *Session {
	s := &Session{
		transcript: transcript.New(logger),
		registry:   workers.New(logger),
		logger:     logger.WithComponent("session"),
		files:      make(map[string]FileEntry),
		terminals:  make(map[string]*strings.Builder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTurn records the user message, opens a streaming assistant message and
// clears the worker registry. This is the only point the registry is
// cleared; it never happens mid-turn.
func (s *Session) NewTurn(userText string) {
	s.transcript.BeginTurn(userText)
	s.registry.Reset()
	s.changed()
}

// Reset clears everything: transcript, workers, files, terminals, preview.
// Required when switching between live and replay sources, and when a
// stale sandbox id forces a fresh identity.
func (s *Session) Reset() {
	s.transcript.Reset()
	s.registry.Reset()
	s.mu.Lock()
	s.files = make(map[string]FileEntry)
	s.terminals = make(map[string]*strings.Builder)
	s.previewURL = ""
	s.sandboxID = ""
	s.mu.Unlock()
	s.changed()
}

// OnChange replaces the re-render callback after construction, used when
// the UI program is built around an existing session. Events may already be
// flowing from the source goroutine by then, so the field is mutex-guarded.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// --- protocol.EventSink ---

func (s *Session) Text(ev protocol.TextEvent) {
	s.transcript.SetText(ev.Content)
	s.changed()
}

func (s *Session) TextDelta(ev protocol.TextDeltaEvent) {
	s.transcript.AppendDelta(ev.Delta)
	s.changed()
}

func (s *Session) Thinking(text string) {
	s.transcript.AppendText(text)
	s.changed()
}

func (s *Session) ToolCall(ev protocol.ToolCallEvent) {
	s.transcript.AddToolCall(ev.ID, ev.Name, ev.Input)
	s.changed()
}

func (s *Session) ToolResult(ev protocol.ToolResultEvent) {
	s.transcript.ResolveToolCall(ev.ID, ev.Success, ev.Result, ev.Error)
	s.changed()
}

func (s *Session) Done() {
	s.transcript.Finalize()
	s.changed()
}

func (s *Session) WorkerSpawned(ev protocol.WorkerSpawnedEvent) {
	s.registry.Spawn(ev.Workers)
	s.changed()
}

func (s *Session) WorkerStarted(ev protocol.WorkerStartedEvent) {
	s.registry.Started(ev.WorkerID)
	s.changed()
}

func (s *Session) WorkerToolCall(ev protocol.WorkerToolCallEvent) {
	s.registry.ToolCall(ev.WorkerID, ev.ToolName, ev.Input)
	s.changed()
}

func (s *Session) WorkerToolResult(ev protocol.WorkerToolResultEvent) {
	s.registry.ToolResult(ev.WorkerID, ev.ToolName, ev.Success, ev.Result, ev.Error)
	s.changed()
}

func (s *Session) WorkerCompleted(ev protocol.WorkerCompletedEvent) {
	s.registry.Completed(ev.WorkerID, ev.Success, ev.Files, ev.Summary, ev.Error)
	s.changed()
}

func (s *Session) WorkerError(ev protocol.WorkerErrorEvent) {
	s.registry.Failed(ev.WorkerID, ev.Error)
	s.changed()
}

func (s *Session) WorkerIteration(ev protocol.WorkerIterationEvent) {
	s.registry.Iteration(ev.WorkerID, ev.Iteration, ev.MaxIterations)
	s.changed()
}

func (s *Session) WorkerTextDelta(ev protocol.WorkerTextDeltaEvent) {
	s.registry.AppendReasoning(ev.WorkerID, ev.Delta)
	s.changed()
}

// StateUpdate is the authoritative sandbox push: the file map is replaced
// wholesale, never merged.
func (s *Session) StateUpdate(ev protocol.StateUpdateEvent) {
	s.mu.Lock()
	s.files = make(map[string]FileEntry, len(ev.Files))
	for path, content := range ev.Files {
		s.files[path] = FileEntry{Path: path, Content: content, Size: len(content)}
	}
	if ev.SandboxID != "" {
		s.sandboxID = ev.SandboxID
	}
	if ev.PreviewURL != "" {
		s.previewURL = ev.PreviewURL
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) FileWritten(ev protocol.FileWrittenEvent) {
	s.mu.Lock()
	size := ev.Size
	if size == 0 {
		size = len(ev.Content)
	}
	s.files[ev.Path] = FileEntry{Path: ev.Path, Content: ev.Content, Size: size}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) FileDeleted(ev protocol.FileDeletedEvent) {
	s.mu.Lock()
	delete(s.files, ev.Path)
	s.mu.Unlock()
	s.changed()
}

func (s *Session) TerminalOutput(ev protocol.TerminalOutputEvent) {
	s.mu.Lock()
	buf, ok := s.terminals[ev.TerminalID]
	if !ok {
		buf = &strings.Builder{}
		s.terminals[ev.TerminalID] = buf
	}
	buf.WriteString(ev.Data)
	s.mu.Unlock()
	s.changed()
}

func (s *Session) PreviewReady(url string) {
	s.mu.Lock()
	s.previewURL = url
	s.mu.Unlock()
	s.changed()
}

func (s *Session) CheckpointRequested(ev protocol.TriggerCheckpointSaveEvent) {
	if s.onCheckpoint != nil {
		s.onCheckpoint(ev)
	}
}

// StreamError renders a backend stream error inline as a system message.
func (s *Session) StreamError(message string) {
	s.transcript.AddSystemMessage("error: " + message)
	s.changed()
}

// --- read model ---

// Messages snapshots the transcript.
func (s *Session) Messages() []transcript.Message {
	return s.transcript.Messages()
}

// Streaming reports whether an assistant message is still open.
func (s *Session) Streaming() bool {
	return s.transcript.Streaming()
}

// Workers snapshots the registry in spawn order.
func (s *Session) Workers() []workers.State {
	return s.registry.Snapshot()
}

// ActiveWorkers counts non-terminal workers.
func (s *Session) ActiveWorkers() int {
	return s.registry.ActiveCount()
}

// Files returns the file map sorted by path.
func (s *Session) Files() []FileEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileEntry, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// File returns one file by path.
func (s *Session) File(path string) (FileEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	return f, ok
}

// Terminal returns the accumulated output of one terminal.
func (s *Session) Terminal(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok := s.terminals[id]; ok {
		return buf.String()
	}
	return ""
}

// PreviewURL returns the latest preview address, empty when none.
func (s *Session) PreviewURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewURL
}

// SandboxID returns the sandbox identity from the last state push.
func (s *Session) SandboxID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sandboxID
}
