// Package protocol defines the wire protocol between the client and the
// agent gateway: a {type, payload} envelope in both directions, with one
// typed payload struct per event so nothing downstream handles a raw map.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client→server command types.
const (
	TypeChat         = "chat"
	TypeStateRefresh = "state_refresh"
	TypePing         = "ping"
	TypeExecuteTool  = "execute_tool"
)

// Server→client event types.
const (
	TypeText                  = "text"
	TypeTextDelta             = "text_delta"
	TypeToolCall              = "tool_call"
	TypeToolResult            = "tool_result"
	TypeStateUpdate           = "state_update"
	TypeFileWritten           = "file_written"
	TypeFileDeleted           = "file_deleted"
	TypeTerminalOutput        = "terminal_output"
	TypeTriggerCheckpointSave = "trigger_checkpoint_save"
	TypeWorkerSpawned         = "worker_spawned"
	TypeWorkerStarted         = "worker_started"
	TypeWorkerToolCall        = "worker_tool_call"
	TypeWorkerToolResult      = "worker_tool_result"
	TypeWorkerCompleted       = "worker_completed"
	TypeWorkerError           = "worker_error"
	TypeWorkerIteration       = "worker_iteration"
	TypeWorkerTextDelta       = "worker_text_delta"
	TypeError                 = "error"
	TypeDone                  = "done"
	TypePong                  = "pong"
)

// Envelope is the wire frame shared by both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload value into an envelope of the given type.
func NewEnvelope(msgType string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Envelope{Type: msgType, Payload: data}, nil
}

// DecodeEnvelope parses a raw wire frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into the given typed struct.
// An absent payload decodes into the zero value, matching events like done
// and pong that carry no body.
func (e Envelope) DecodePayload(v interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("malformed %s payload: %w", e.Type, err)
	}
	return nil
}

// Encode serializes the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// ChatCommand starts a new turn with the agent.
type ChatCommand struct {
	Message          string                 `json:"message"`
	State            map[string]interface{} `json:"state,omitempty"`
	SelectedSourceID string                 `json:"selected_source_id,omitempty"`
	Images           []string               `json:"images,omitempty"`
}

// ExecuteToolCommand asks the backend to run a tool out of band. The
// RequestID correlates the eventual tool_result back to the caller.
type ExecuteToolCommand struct {
	RequestID string                 `json:"request_id"`
	Tool      string                 `json:"tool"`
	Params    map[string]interface{} `json:"params,omitempty"`
}
