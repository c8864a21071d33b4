// Package sandbox holds the client side of the sandbox contract: the
// execution backend itself lives elsewhere, this package only negotiates
// identity (create or reconnect) and routes tool execution.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
	"github.com/openclaw/cockpit/internal/telemetry"
)

// ErrNotFound is returned by a Backend when a persisted sandbox id no
// longer exists on the other side.
var ErrNotFound = errors.New("sandbox not found")

// Backend is the external execution surface the client consumes.
type Backend interface {
	CreateSandbox(ctx context.Context) (string, error)
	ConnectSandbox(ctx context.Context, id string) error
	ExecuteTool(ctx context.Context, name string, params map[string]interface{}) (protocol.ToolResultEvent, error)
}

// Bridge negotiates sandbox identity and persists it across runs.
type Bridge struct {
	backend Backend
	store   *IDStore
	logger  *logging.Logger

	// onStaleState clears locally cached session state (files, transcript
	// remnants) when a persisted id turns out to be gone, so stale data is
	// never presented under a fresh sandbox identity.
	onStaleState func()

	mu        sync.Mutex
	sandboxID string
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithStaleStateHandler registers the local-state clear callback.
func WithStaleStateHandler(fn func()) BridgeOption {
	return func(b *Bridge) { b.onStaleState = fn }
}

// NewBridge wires a backend to the persisted id store.
func NewBridge(backend Backend, store *IDStore, logger *logging.Logger, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		backend: backend,
		store:   store,
		logger:  logger.WithComponent("sandbox"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateOrReconnect tries the persisted sandbox id first. If the backend
// reports it gone, all locally cached state is cleared and a fresh sandbox
// is created; any other connect failure is surfaced as-is.
func (b *Bridge) CreateOrReconnect(ctx context.Context) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "sandbox.create_or_reconnect", nil)

	if id := b.store.Load(); id != "" {
		err := b.backend.ConnectSandbox(ctx, id)
		if err == nil {
			b.setID(id)
			b.logger.Info("reconnected to sandbox", map[string]interface{}{"sandbox_id": id})
			telemetry.EndSpan(span, nil)
			return id, nil
		}
		if !errors.Is(err, ErrNotFound) {
			telemetry.EndSpan(span, err)
			return "", fmt.Errorf("connect sandbox %s: %w", id, err)
		}
		b.logger.Warn("persisted sandbox gone, creating fresh", map[string]interface{}{"sandbox_id": id})
		b.store.Clear()
		if b.onStaleState != nil {
			b.onStaleState()
		}
	}

	id, err := b.backend.CreateSandbox(ctx)
	if err != nil {
		telemetry.EndSpan(span, err)
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	if err := b.store.Save(id); err != nil {
		b.logger.Warn("could not persist sandbox id", map[string]interface{}{"error": err.Error()})
	}
	b.setID(id)
	b.logger.Info("created sandbox", map[string]interface{}{"sandbox_id": id})
	telemetry.EndSpan(span, nil)
	return id, nil
}

// ExecuteTool routes a tool invocation to the backend under a span. Tool
// failure arrives as a ToolResultEvent with Success=false, not an error.
func (b *Bridge) ExecuteTool(ctx context.Context, name string, params map[string]interface{}) (protocol.ToolResultEvent, error) {
	ctx, span := telemetry.StartSpan(ctx, "sandbox.execute_tool", map[string]string{"tool": name})
	res, err := b.backend.ExecuteTool(ctx, name, params)
	telemetry.EndSpan(span, err)
	return res, err
}

// SandboxID reports the current sandbox identity, empty before negotiation.
func (b *Bridge) SandboxID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sandboxID
}

func (b *Bridge) setID(id string) {
	b.mu.Lock()
	b.sandboxID = id
	b.mu.Unlock()
}
