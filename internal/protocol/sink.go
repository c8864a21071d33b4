package protocol

// EventSink is the reducer-facing surface that both event sources feed: the
// live gateway dispatcher and the replay scheduler. Consumers observing a
// session never branch on where an event came from.
//
// All methods are invoked from a single dispatching goroutine per source;
// implementations own their own locking for passive readers.
type EventSink interface {
	// Primary message stream.
	Text(ev TextEvent)
	TextDelta(ev TextDeltaEvent)
	Thinking(text string) // replay agent_thinking: appends a fresh text block
	ToolCall(ev ToolCallEvent)
	ToolResult(ev ToolResultEvent)
	Done()

	// Worker fan-out.
	WorkerSpawned(ev WorkerSpawnedEvent)
	WorkerStarted(ev WorkerStartedEvent)
	WorkerToolCall(ev WorkerToolCallEvent)
	WorkerToolResult(ev WorkerToolResultEvent)
	WorkerCompleted(ev WorkerCompletedEvent)
	WorkerError(ev WorkerErrorEvent)
	WorkerIteration(ev WorkerIterationEvent)
	WorkerTextDelta(ev WorkerTextDeltaEvent)

	// Sandbox side effects.
	StateUpdate(ev StateUpdateEvent)
	FileWritten(ev FileWrittenEvent)
	FileDeleted(ev FileDeletedEvent)
	TerminalOutput(ev TerminalOutputEvent)
	PreviewReady(url string)
	CheckpointRequested(ev TriggerCheckpointSaveEvent)

	// Stream-level failure. Not a transcript tool error; those arrive as
	// ToolResult with Success=false.
	StreamError(message string)
}
