package gateway

import (
	"sync"

	"github.com/openclaw/cockpit/internal/protocol"
)

// recordingSink captures every sink callback for assertions.
type recordingSink struct {
	mu          sync.Mutex
	texts       []protocol.TextEvent
	deltas      []protocol.TextDeltaEvent
	thinking    []string
	toolCalls   []protocol.ToolCallEvent
	toolResults []protocol.ToolResultEvent
	spawned     []protocol.WorkerSpawnedEvent
	started     []protocol.WorkerStartedEvent
	wtCalls     []protocol.WorkerToolCallEvent
	wtResults   []protocol.WorkerToolResultEvent
	completed   []protocol.WorkerCompletedEvent
	wErrors     []protocol.WorkerErrorEvent
	iterations  []protocol.WorkerIterationEvent
	wDeltas     []protocol.WorkerTextDeltaEvent
	states      []protocol.StateUpdateEvent
	files       []protocol.FileWrittenEvent
	deleted     []protocol.FileDeletedEvent
	terminal    []protocol.TerminalOutputEvent
	previews    []string
	checkpoints []protocol.TriggerCheckpointSaveEvent
	errors      []string
	doneCount   int
}

func (s *recordingSink) Text(ev protocol.TextEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, ev)
}

func (s *recordingSink) TextDelta(ev protocol.TextDeltaEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas = append(s.deltas, ev)
}

func (s *recordingSink) Thinking(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thinking = append(s.thinking, text)
}

func (s *recordingSink) ToolCall(ev protocol.ToolCallEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCalls = append(s.toolCalls, ev)
}

func (s *recordingSink) ToolResult(ev protocol.ToolResultEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolResults = append(s.toolResults, ev)
}

func (s *recordingSink) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doneCount++
}

func (s *recordingSink) WorkerSpawned(ev protocol.WorkerSpawnedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawned = append(s.spawned, ev)
}

func (s *recordingSink) WorkerStarted(ev protocol.WorkerStartedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, ev)
}

func (s *recordingSink) WorkerToolCall(ev protocol.WorkerToolCallEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wtCalls = append(s.wtCalls, ev)
}

func (s *recordingSink) WorkerToolResult(ev protocol.WorkerToolResultEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wtResults = append(s.wtResults, ev)
}

func (s *recordingSink) WorkerCompleted(ev protocol.WorkerCompletedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, ev)
}

func (s *recordingSink) WorkerError(ev protocol.WorkerErrorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wErrors = append(s.wErrors, ev)
}

func (s *recordingSink) WorkerIteration(ev protocol.WorkerIterationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterations = append(s.iterations, ev)
}

func (s *recordingSink) WorkerTextDelta(ev protocol.WorkerTextDeltaEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wDeltas = append(s.wDeltas, ev)
}

func (s *recordingSink) StateUpdate(ev protocol.StateUpdateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, ev)
}

func (s *recordingSink) FileWritten(ev protocol.FileWrittenEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, ev)
}

func (s *recordingSink) FileDeleted(ev protocol.FileDeletedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, ev)
}

func (s *recordingSink) TerminalOutput(ev protocol.TerminalOutputEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminal = append(s.terminal, ev)
}

func (s *recordingSink) PreviewReady(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews = append(s.previews, url)
}

func (s *recordingSink) CheckpointRequested(ev protocol.TriggerCheckpointSaveEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = append(s.checkpoints, ev)
}

func (s *recordingSink) StreamError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
}

func (s *recordingSink) snapshot(fn func(*recordingSink)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}
