package protocol

// TextEvent replaces the trailing text block of the streaming message with
// the full content so far. The gateway switches freely between full-text and
// delta modes; the reducer does not negotiate.
type TextEvent struct {
	Content string `json:"content"`
}

// TextDeltaEvent appends an increment to the trailing text block.
type TextDeltaEvent struct {
	Delta string `json:"delta"`
}

// ToolCallEvent announces a tool invocation by the agent.
type ToolCallEvent struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input,omitempty"`
}

// ToolResultEvent resolves an earlier tool call, matched by ID.
type ToolResultEvent struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StateUpdateEvent carries the authoritative sandbox state push.
type StateUpdateEvent struct {
	SandboxID  string            `json:"sandbox_id,omitempty"`
	Files      map[string]string `json:"files,omitempty"`
	PreviewURL string            `json:"preview_url,omitempty"`
}

// FileWrittenEvent reports a file materialized in the sandbox.
type FileWrittenEvent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}

// FileDeletedEvent reports a file removed from the sandbox.
type FileDeletedEvent struct {
	Path string `json:"path"`
}

// TerminalOutputEvent carries a chunk of sandbox terminal output.
type TerminalOutputEvent struct {
	TerminalID string `json:"terminal_id"`
	Data       string `json:"data"`
	Stream     string `json:"stream,omitempty"` // stdout or stderr
}

// TriggerCheckpointSaveEvent asks the client to persist a checkpoint through
// its external checkpoint service.
type TriggerCheckpointSaveEvent struct {
	ProjectID  string `json:"project_id"`
	FilesCount int    `json:"files_count"`
}

// ErrorEvent surfaces a stream-level error from the backend.
type ErrorEvent struct {
	Message string `json:"message"`
}

// WorkerSpawn describes one sub-agent in a worker_spawned fan-out.
type WorkerSpawn struct {
	WorkerID        string `json:"worker_id"`
	SectionName     string `json:"section_name"`
	DisplayName     string `json:"display_name,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
	MaxIterations   int    `json:"max_iterations,omitempty"`
}

// WorkerSpawnedEvent announces a batch of spawned sub-agents.
type WorkerSpawnedEvent struct {
	Workers []WorkerSpawn `json:"workers"`
}

// WorkerStartedEvent marks a worker as started.
type WorkerStartedEvent struct {
	WorkerID string `json:"worker_id"`
}

// WorkerToolCallEvent reports a tool invocation inside a worker.
type WorkerToolCallEvent struct {
	WorkerID string                 `json:"worker_id"`
	ToolName string                 `json:"tool_name"`
	Input    map[string]interface{} `json:"input,omitempty"`
}

// WorkerToolResultEvent resolves a worker tool invocation.
type WorkerToolResultEvent struct {
	WorkerID string `json:"worker_id"`
	ToolName string `json:"tool_name"`
	Success  bool   `json:"success"`
	Result   string `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WorkerCompletedEvent is the worker's terminal event. Success=false carries
// the failure reason in Error.
type WorkerCompletedEvent struct {
	WorkerID string            `json:"worker_id"`
	Success  bool              `json:"success"`
	Files    map[string]string `json:"files,omitempty"`
	Summary  string            `json:"summary,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// WorkerErrorEvent fails a worker out of band.
type WorkerErrorEvent struct {
	WorkerID string `json:"worker_id"`
	Error    string `json:"error"`
}

// WorkerIterationEvent updates iteration counters. Monitoring signal only;
// it never changes worker status.
type WorkerIterationEvent struct {
	WorkerID      string `json:"worker_id"`
	Iteration     int    `json:"iteration"`
	MaxIterations int    `json:"max_iterations,omitempty"`
}

// WorkerTextDeltaEvent appends to a worker's reasoning text.
type WorkerTextDeltaEvent struct {
	WorkerID string `json:"worker_id"`
	Delta    string `json:"delta"`
}
