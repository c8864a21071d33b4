package gateway

import (
	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
)

// Dispatcher decodes raw wire frames and routes typed events into the sink.
// Both inbound paths share it: the WebSocket read loop and the NATS source.
// Malformed frames and unknown types are logged and dropped; dispatch never
// fails the connection.
type Dispatcher struct {
	sink   protocol.EventSink
	calls  *Calls
	logger *logging.Logger
	onPong func()
}

// NewDispatcher creates a dispatcher. calls and onPong may be nil.
func NewDispatcher(sink protocol.EventSink, calls *Calls, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		sink:   sink,
		calls:  calls,
		logger: logger.WithComponent("dispatch"),
	}
}

// Dispatch decodes one frame and invokes the matching sink callback.
func (d *Dispatcher) Dispatch(data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		d.logger.DroppedEvent("?", err)
		return
	}

	switch env.Type {
	case protocol.TypeText:
		var ev protocol.TextEvent
		if d.decode(env, &ev) {
			d.sink.Text(ev)
		}

	case protocol.TypeTextDelta:
		var ev protocol.TextDeltaEvent
		if d.decode(env, &ev) {
			d.sink.TextDelta(ev)
		}

	case protocol.TypeToolCall:
		var ev protocol.ToolCallEvent
		if d.decode(env, &ev) {
			d.sink.ToolCall(ev)
		}

	case protocol.TypeToolResult:
		var ev protocol.ToolResultEvent
		if d.decode(env, &ev) {
			// Resolve an out-of-band waiter if one is pending on this id,
			// then fold into the transcript either way.
			if d.calls != nil {
				d.calls.Resolve(ev)
			}
			d.sink.ToolResult(ev)
		}

	case protocol.TypeStateUpdate:
		var ev protocol.StateUpdateEvent
		if d.decode(env, &ev) {
			d.sink.StateUpdate(ev)
		}

	case protocol.TypeFileWritten:
		var ev protocol.FileWrittenEvent
		if d.decode(env, &ev) {
			d.sink.FileWritten(ev)
		}

	case protocol.TypeFileDeleted:
		var ev protocol.FileDeletedEvent
		if d.decode(env, &ev) {
			d.sink.FileDeleted(ev)
		}

	case protocol.TypeTerminalOutput:
		var ev protocol.TerminalOutputEvent
		if d.decode(env, &ev) {
			d.sink.TerminalOutput(ev)
		}

	case protocol.TypeTriggerCheckpointSave:
		var ev protocol.TriggerCheckpointSaveEvent
		if d.decode(env, &ev) {
			d.sink.CheckpointRequested(ev)
		}

	case protocol.TypeWorkerSpawned:
		var ev protocol.WorkerSpawnedEvent
		if d.decode(env, &ev) {
			d.sink.WorkerSpawned(ev)
		}

	case protocol.TypeWorkerStarted:
		var ev protocol.WorkerStartedEvent
		if d.decode(env, &ev) {
			d.sink.WorkerStarted(ev)
		}

	case protocol.TypeWorkerToolCall:
		var ev protocol.WorkerToolCallEvent
		if d.decode(env, &ev) {
			d.sink.WorkerToolCall(ev)
		}

	case protocol.TypeWorkerToolResult:
		var ev protocol.WorkerToolResultEvent
		if d.decode(env, &ev) {
			d.sink.WorkerToolResult(ev)
		}

	case protocol.TypeWorkerCompleted:
		var ev protocol.WorkerCompletedEvent
		if d.decode(env, &ev) {
			d.sink.WorkerCompleted(ev)
		}

	case protocol.TypeWorkerError:
		var ev protocol.WorkerErrorEvent
		if d.decode(env, &ev) {
			d.sink.WorkerError(ev)
		}

	case protocol.TypeWorkerIteration:
		var ev protocol.WorkerIterationEvent
		if d.decode(env, &ev) {
			d.sink.WorkerIteration(ev)
		}

	case protocol.TypeWorkerTextDelta:
		var ev protocol.WorkerTextDeltaEvent
		if d.decode(env, &ev) {
			d.sink.WorkerTextDelta(ev)
		}

	case protocol.TypeError:
		var ev protocol.ErrorEvent
		if d.decode(env, &ev) {
			d.sink.StreamError(ev.Message)
		}

	case protocol.TypeDone:
		d.sink.Done()

	case protocol.TypePong:
		if d.onPong != nil {
			d.onPong()
		}

	default:
		d.logger.Debug("unknown event type ignored", map[string]interface{}{"type": env.Type})
	}
}

// decode unmarshals the payload, logging and dropping on failure.
func (d *Dispatcher) decode(env protocol.Envelope, v interface{}) bool {
	if err := env.DecodePayload(v); err != nil {
		d.logger.DroppedEvent(env.Type, err)
		return false
	}
	return true
}
