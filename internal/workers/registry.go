// Package workers tracks the sub-agents the primary agent fans out to:
// their status machines, tool histories, iteration counters and reasoning
// streams. The registry is the single writer; the TUI reads snapshots.
package workers

import (
	"sync"
	"time"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
)

// Status is the worker lifecycle. Transitions only move forward:
// spawned → started → running → completed|error.
type Status string

const (
	StatusSpawned   Status = "spawned"
	StatusStarted   Status = "started"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// statusRank orders statuses so backward transitions can be rejected.
var statusRank = map[Status]int{
	StatusSpawned:   0,
	StatusStarted:   1,
	StatusRunning:   2,
	StatusCompleted: 3,
	StatusError:     3,
}

// Terminal reports whether the status ends the worker lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ToolRecord is one entry in a worker's tool history.
type ToolRecord struct {
	ToolName string
	Status   string // executing, success, error
	Input    map[string]interface{}
	Result   string
	Error    string
	At       time.Time
}

// State is the full observable state of one worker.
type State struct {
	WorkerID        string
	SectionName     string
	DisplayName     string
	Status          Status
	TaskDescription string
	CurrentTool     string
	ToolHistory     []ToolRecord
	Iteration       int
	MaxIterations   int
	ReasoningText   string
	Files           map[string]string
	Summary         string
	Error           string
	SpawnedAt       time.Time
}

// Registry maintains worker_id → state. Completed workers stay visible until
// the next user turn clears the registry in full.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	workers map[string]*State
	logger  *logging.Logger
	clock   func() time.Time
}

// New creates an empty registry.
func New(logger *logging.Logger) *Registry {
	return &Registry{
		workers: make(map[string]*State),
		logger:  logger.WithComponent("workers"),
		clock:   time.Now,
	}
}

// Spawn inserts workers with status spawned. A duplicate spawn for an
// existing id is a no-op; worker ids are globally unique per session.
func (r *Registry) Spawn(specs []protocol.WorkerSpawn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, spec := range specs {
		if _, ok := r.workers[spec.WorkerID]; ok {
			r.logger.Debug("duplicate worker spawn ignored", map[string]interface{}{"worker_id": spec.WorkerID})
			continue
		}
		r.workers[spec.WorkerID] = &State{
			WorkerID:        spec.WorkerID,
			SectionName:     spec.SectionName,
			DisplayName:     spec.DisplayName,
			Status:          StatusSpawned,
			TaskDescription: spec.TaskDescription,
			MaxIterations:   spec.MaxIterations,
			SpawnedAt:       r.clock(),
		}
		r.order = append(r.order, spec.WorkerID)
	}
}

// advanceLocked moves a worker forward to the target status. Backward
// transitions are dropped with a log.
func (r *Registry) advanceLocked(w *State, to Status) bool {
	if statusRank[to] < statusRank[w.Status] {
		r.logger.Warn("ignoring backward worker transition", map[string]interface{}{
			"worker_id": w.WorkerID,
			"from":      string(w.Status),
			"to":        string(to),
		})
		return false
	}
	w.Status = to
	return true
}

// lookupLocked fetches a worker, logging unknown ids.
func (r *Registry) lookupLocked(workerID, event string) *State {
	w, ok := r.workers[workerID]
	if !ok {
		r.logger.Warn("event for unknown worker", map[string]interface{}{
			"worker_id": workerID,
			"event":     event,
		})
		return nil
	}
	return w
}

// Started moves a worker to started.
func (r *Registry) Started(workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w := r.lookupLocked(workerID, "worker_started"); w != nil {
		r.advanceLocked(w, StatusStarted)
	}
}

// ToolCall records a tool invocation: the worker goes running, the call is
// pushed onto its history and becomes the current tool.
func (r *Registry) ToolCall(workerID, toolName string, input map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.lookupLocked(workerID, "worker_tool_call")
	if w == nil {
		return
	}
	if !r.advanceLocked(w, StatusRunning) {
		return
	}
	w.ToolHistory = append(w.ToolHistory, ToolRecord{
		ToolName: toolName,
		Status:   "executing",
		Input:    input,
		At:       r.clock(),
	})
	w.CurrentTool = toolName
}

// ToolResult resolves the most recently pushed history entry whose tool name
// matches and is still executing, then clears the current tool.
//
// Known fidelity gap carried over from the recorded protocol: results match
// by tool name, not by call id, so two concurrent calls to the same tool
// within one worker resolve in LIFO order.
func (r *Registry) ToolResult(workerID, toolName string, success bool, result, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.lookupLocked(workerID, "worker_tool_result")
	if w == nil {
		return
	}
	for i := len(w.ToolHistory) - 1; i >= 0; i-- {
		rec := &w.ToolHistory[i]
		if rec.ToolName != toolName || rec.Status != "executing" {
			continue
		}
		if success {
			rec.Status = "success"
			rec.Result = result
		} else {
			rec.Status = "error"
			rec.Error = errMsg
		}
		w.CurrentTool = ""
		return
	}
	r.logger.Warn("worker tool_result with no matching call", map[string]interface{}{
		"worker_id": workerID,
		"tool":      toolName,
	})
}

// Completed terminates a worker. Success=false lands in status error with
// the failure reason.
func (r *Registry) Completed(workerID string, success bool, files map[string]string, summary, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.lookupLocked(workerID, "worker_completed")
	if w == nil {
		return
	}
	target := StatusCompleted
	if !success {
		target = StatusError
	}
	if !r.advanceLocked(w, target) {
		return
	}
	w.Files = files
	w.Summary = summary
	w.Error = errMsg
	w.CurrentTool = ""
}

// Failed terminates a worker with an error.
func (r *Registry) Failed(workerID, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.lookupLocked(workerID, "worker_error")
	if w == nil {
		return
	}
	if !r.advanceLocked(w, StatusError) {
		return
	}
	w.Error = errMsg
	w.CurrentTool = ""
}

// Iteration updates the iteration counters. Monitoring only; status is
// untouched.
func (r *Registry) Iteration(workerID string, iteration, maxIterations int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.lookupLocked(workerID, "worker_iteration")
	if w == nil {
		return
	}
	w.Iteration = iteration
	if maxIterations > 0 {
		w.MaxIterations = maxIterations
	}
}

// AppendReasoning appends to the worker's reasoning stream. Append-only;
// only a registry Reset discards it.
func (r *Registry) AppendReasoning(workerID, delta string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w := r.lookupLocked(workerID, "worker_text_delta"); w != nil {
		w.ReasoningText += delta
	}
}

// Len returns the number of tracked workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// ActiveCount returns the number of workers not yet terminal.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, w := range r.workers {
		if !w.Status.Terminal() {
			n++
		}
	}
	return n
}

// Snapshot returns worker states in spawn order, deep-copied for readers.
func (r *Registry) Snapshot() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]State, 0, len(r.order))
	for _, id := range r.order {
		w := r.workers[id]
		cp := *w
		cp.ToolHistory = make([]ToolRecord, len(w.ToolHistory))
		copy(cp.ToolHistory, w.ToolHistory)
		if w.Files != nil {
			cp.Files = make(map[string]string, len(w.Files))
			for k, v := range w.Files {
				cp.Files[k] = v
			}
		}
		out = append(out, cp)
	}
	return out
}

// Get returns a copy of one worker's state.
func (r *Registry) Get(workerID string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[workerID]
	if !ok {
		return State{}, false
	}
	cp := *w
	cp.ToolHistory = append([]ToolRecord(nil), w.ToolHistory...)
	return cp, true
}

// Reset clears the registry in full. Called exactly once per new user turn,
// never mid-turn.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.workers = make(map[string]*State)
}
