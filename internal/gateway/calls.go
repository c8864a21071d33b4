package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
)

// DefaultCallTimeout bounds how long an out-of-band tool execution may stay
// unresolved before it is settled with a synthetic failure.
const DefaultCallTimeout = 60 * time.Second

// Calls is the correlation table bridging synchronous-looking tool execution
// onto the asynchronous channel: one pending waiter per request id, resolved
// by the matching inbound tool_result.
type Calls struct {
	mu      sync.Mutex
	pending map[string]chan protocol.ToolResultEvent
	send    func(protocol.Envelope) error
	timeout time.Duration
	logger  *logging.Logger
}

// NewCalls creates a correlation table that submits commands through send.
func NewCalls(send func(protocol.Envelope) error, timeout time.Duration, logger *logging.Logger) *Calls {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Calls{
		pending: make(map[string]chan protocol.ToolResultEvent),
		send:    send,
		timeout: timeout,
		logger:  logger.WithComponent("calls"),
	}
}

// Execute sends an execute_tool command and blocks until the correlated
// result arrives or the timeout elapses. A timeout settles the call with a
// synthetic failure result; callers never distinguish a network timeout from
// an application-level tool failure. The returned error covers send
// failures only.
func (c *Calls) Execute(ctx context.Context, tool string, params map[string]interface{}) (protocol.ToolResultEvent, error) {
	id := uuid.NewString()
	ch := c.register(id)
	defer c.unregister(id)

	env, err := protocol.NewEnvelope(protocol.TypeExecuteTool, protocol.ExecuteToolCommand{
		RequestID: id,
		Tool:      tool,
		Params:    params,
	})
	if err != nil {
		return protocol.ToolResultEvent{}, err
	}
	start := time.Now()
	if err := c.send(env); err != nil {
		return protocol.ToolResultEvent{}, err
	}
	c.logger.ToolCall(tool, id)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		c.logger.ToolResult(tool, id, time.Since(start), nil)
		return res, nil
	case <-timer.C:
		c.logger.Warn("tool call timed out", map[string]interface{}{"tool": tool, "id": id})
		return syntheticFailure(id, "timeout"), nil
	case <-ctx.Done():
		return syntheticFailure(id, "cancelled"), nil
	}
}

// Resolve settles a pending call. Returns false when no waiter is registered
// for the id, which is the normal case for transcript-only tool results.
func (c *Calls) Resolve(ev protocol.ToolResultEvent) bool {
	c.mu.Lock()
	ch, ok := c.pending[ev.ID]
	if ok {
		delete(c.pending, ev.ID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	ch <- ev
	return true
}

// Pending returns the number of outstanding calls.
func (c *Calls) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// register adds a waiter. Request ids are unique for the session lifetime;
// hitting an existing entry is a programmer error, logged loudly, and the
// old waiter is settled with a synthetic failure rather than left hanging.
func (c *Calls) register(id string) chan protocol.ToolResultEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.pending[id]; ok {
		c.logger.Error("BUG: request id reused while pending", map[string]interface{}{"id": id})
		old <- syntheticFailure(id, "request id reused")
	}
	ch := make(chan protocol.ToolResultEvent, 1)
	c.pending[id] = ch
	return ch
}

func (c *Calls) unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func syntheticFailure(id, reason string) protocol.ToolResultEvent {
	return protocol.ToolResultEvent{ID: id, Success: false, Error: reason}
}
