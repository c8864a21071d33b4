// Package replay drives deterministic playback of recorded sessions into the
// same event sink the live gateway feeds, so consumers never branch on the
// source.
package replay

import (
	"fmt"

	"github.com/openclaw/cockpit/internal/protocol"
)

// Recorded event types. A recording collapses the live worker event family
// into spawned/progress/completed.
const (
	EventThinking        = "agent_thinking"
	EventToolCall        = "tool_call"
	EventToolResult      = "tool_result"
	EventWorkerSpawned   = "worker_spawned"
	EventWorkerProgress  = "worker_progress"
	EventWorkerCompleted = "worker_completed"
	EventFileWritten     = "file_written"
	EventPreviewReady    = "preview_ready"
	EventError           = "error"
)

// Event is one entry in a recorded session log. Type selects which of the
// optional fields are meaningful; TimestampMS is relative to recording start.
type Event struct {
	Type        string `json:"type"`
	TimestampMS int64  `json:"timestamp"`

	// agent_thinking
	Text string `json:"text,omitempty"`

	// tool_call / tool_result
	ToolID    string                 `json:"tool_id,omitempty"`
	ToolName  string                 `json:"tool_name,omitempty"`
	ToolInput map[string]interface{} `json:"tool_input,omitempty"`
	Result    string                 `json:"result,omitempty"`
	Success   *bool                  `json:"success,omitempty"`

	// worker_spawned
	Workers []protocol.WorkerSpawn `json:"workers,omitempty"`

	// worker_progress / worker_completed
	WorkerID      string   `json:"worker_id,omitempty"`
	Status        string   `json:"status,omitempty"`
	CurrentTool   string   `json:"current_tool,omitempty"`
	Iteration     int      `json:"iteration,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Files         []string `json:"files,omitempty"`

	// file_written
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`

	// preview_ready
	URL string `json:"url,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// Recording is the immutable input to a Scheduler: the ordered event log
// plus the materialized end state used by the skip fast path. Events and
// TotalDurationMS come from replay.json; FinalFiles and Summary are filled
// in by the showcase loader from files.json and meta.json.
type Recording struct {
	Events          []Event `json:"events"`
	TotalDurationMS int64   `json:"total_duration_ms"`

	FinalFiles map[string]string `json:"-"`
	Summary    string            `json:"-"`
}

// Validate checks timestamp monotonicity and per-variant required fields.
// The log is assumed well-formed by the scheduler, so it must be checked
// here, once, up front.
func (r *Recording) Validate() error {
	var prev int64
	for i, ev := range r.Events {
		if ev.TimestampMS < prev {
			return fmt.Errorf("event %d: timestamp %dms precedes %dms", i, ev.TimestampMS, prev)
		}
		prev = ev.TimestampMS

		switch ev.Type {
		case EventThinking:
			if ev.Text == "" {
				return fmt.Errorf("event %d: agent_thinking without text", i)
			}
		case EventToolCall:
			if ev.ToolName == "" {
				return fmt.Errorf("event %d: tool_call without tool_name", i)
			}
		case EventToolResult:
			if ev.ToolID == "" && ev.ToolName == "" {
				return fmt.Errorf("event %d: tool_result without tool_id or tool_name", i)
			}
		case EventWorkerSpawned:
			if len(ev.Workers) == 0 {
				return fmt.Errorf("event %d: worker_spawned without workers", i)
			}
		case EventWorkerProgress, EventWorkerCompleted:
			if ev.WorkerID == "" {
				return fmt.Errorf("event %d: %s without worker_id", i, ev.Type)
			}
		case EventFileWritten:
			if ev.Path == "" {
				return fmt.Errorf("event %d: file_written without path", i)
			}
		case EventPreviewReady:
			if ev.URL == "" {
				return fmt.Errorf("event %d: preview_ready without url", i)
			}
		case EventError:
			if ev.Message == "" {
				return fmt.Errorf("event %d: error without message", i)
			}
		default:
			return fmt.Errorf("event %d: unknown type %q", i, ev.Type)
		}
	}
	return nil
}
