// Package transcript folds the inbound event stream into an ordered
// transcript of messages, each composed of text runs and tool-call records.
// It is the single writer for message state; the TUI and other consumers
// read snapshots.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/cockpit/internal/logging"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ToolStatus is the tool-call lifecycle: pending → executing → success|error.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolExecuting ToolStatus = "executing"
	ToolSuccess   ToolStatus = "success"
	ToolError     ToolStatus = "error"
)

// Terminal reports whether the status ends the tool-call lifecycle.
func (s ToolStatus) Terminal() bool {
	return s == ToolSuccess || s == ToolError
}

// ToolCall records one tool invocation inside a message. Identity is the
// correlation ID: a second event carrying the same ID updates this record
// rather than creating a new one.
type ToolCall struct {
	ID        string
	Name      string
	Input     map[string]interface{}
	Status    ToolStatus
	Result    string
	Error     string
	StartTime time.Time
	EndTime   time.Time // zero until Status is terminal
}

// BlockKind discriminates content blocks.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockToolCall
)

// ContentBlock is one ordered element of a message: a text run or a tool
// call. Order reflects arrival, not category.
type ContentBlock struct {
	Kind BlockKind
	Text string
	Tool *ToolCall
	At   time.Time
}

// Message is one transcript entry. Assistant messages stream: blocks mutate
// in place until Done freezes them.
type Message struct {
	ID        string
	Role      Role
	Timestamp time.Time
	Blocks    []ContentBlock
	Content   string // flat text projection, set when streaming ends
	Streaming bool
}

// flatten concatenates the text blocks in order. Tool-call blocks contribute
// nothing to this projection.
func (m *Message) flatten() string {
	var b strings.Builder
	for _, blk := range m.Blocks {
		if blk.Kind == BlockText {
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}

// Transcript is the session state reducer for message content. All mutating
// methods are called from one dispatching goroutine; the mutex only protects
// snapshot readers.
type Transcript struct {
	mu       sync.RWMutex
	messages []*Message
	current  *Message // in-flight assistant message, nil between turns
	seen     map[string]bool
	logger   *logging.Logger
	clock    func() time.Time
}

// Option configures a Transcript.
type Option func(*Transcript)

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Transcript) {
		t.clock = clock
	}
}

// New creates an empty transcript.
func New(logger *logging.Logger, opts ...Option) *Transcript {
	t := &Transcript{
		seen:   make(map[string]bool),
		logger: logger.WithComponent("transcript"),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BeginTurn appends a frozen user message and opens a streaming assistant
// message that subsequent events fold into.
func (t *Transcript) BeginTurn(userText string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	t.messages = append(t.messages, &Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Timestamp: now,
		Blocks:    []ContentBlock{{Kind: BlockText, Text: userText, At: now}},
		Content:   userText,
	})
	t.openAssistantLocked(now)
}

// openAssistantLocked starts a streaming assistant message.
func (t *Transcript) openAssistantLocked(now time.Time) {
	msg := &Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: now,
		Streaming: true,
	}
	t.messages = append(t.messages, msg)
	t.current = msg
}

// ensureCurrentLocked returns the streaming assistant message, opening one
// when an event arrives outside an explicit turn (replay streams have no
// user message).
func (t *Transcript) ensureCurrentLocked() *Message {
	if t.current == nil {
		t.openAssistantLocked(t.clock())
	}
	return t.current
}

// SetText replaces the trailing text block with the full content so far, or
// appends a new text block if the message ends in a tool call.
func (t *Transcript) SetText(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := t.ensureCurrentLocked()
	if n := len(msg.Blocks); n > 0 && msg.Blocks[n-1].Kind == BlockText {
		msg.Blocks[n-1].Text = content
		return
	}
	msg.Blocks = append(msg.Blocks, ContentBlock{Kind: BlockText, Text: content, At: t.clock()})
}

// AppendDelta appends an increment to the trailing text block, starting a
// new block after a tool call.
func (t *Transcript) AppendDelta(delta string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := t.ensureCurrentLocked()
	if n := len(msg.Blocks); n > 0 && msg.Blocks[n-1].Kind == BlockText {
		msg.Blocks[n-1].Text += delta
		return
	}
	msg.Blocks = append(msg.Blocks, ContentBlock{Kind: BlockText, Text: delta, At: t.clock()})
}

// AppendText always opens a fresh text block. Replay thinking steps use this
// so each step keeps its own run instead of merging into the previous one.
func (t *Transcript) AppendText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := t.ensureCurrentLocked()
	msg.Blocks = append(msg.Blocks, ContentBlock{Kind: BlockText, Text: text, At: t.clock()})
}

// AddToolCall appends a new executing tool-call block. A repeated ID within
// the session is an update to the existing record, never a second entity.
func (t *Transcript) AddToolCall(id, name string, input map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen[id] {
		if tc := t.findToolLocked(id); tc != nil {
			tc.Name = name
			tc.Input = input
			t.logger.Debug("duplicate tool_call treated as update", map[string]interface{}{"id": id})
			return
		}
	}
	t.seen[id] = true

	msg := t.ensureCurrentLocked()
	msg.Blocks = append(msg.Blocks, ContentBlock{
		Kind: BlockToolCall,
		At:   t.clock(),
		Tool: &ToolCall{
			ID:        id,
			Name:      name,
			Input:     input,
			Status:    ToolExecuting,
			StartTime: t.clock(),
		},
	})
}

// ResolveToolCall locates the tool call by ID and applies the result.
// Duplicate results for one ID are resolved latest-wins: status, result,
// error and end time are overwritten deterministically; the start time is
// kept from the original call.
func (t *Transcript) ResolveToolCall(id string, success bool, result, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tc := t.findToolLocked(id)
	if tc == nil {
		t.logger.Warn("tool_result for unknown id", map[string]interface{}{"id": id})
		return
	}
	if success {
		tc.Status = ToolSuccess
		tc.Result = result
		tc.Error = ""
	} else {
		tc.Status = ToolError
		tc.Error = errMsg
		tc.Result = result
	}
	tc.EndTime = t.clock()
}

// findToolLocked scans messages newest-first, blocks last-first. Tool calls
// resolve near their issue point, so the reverse scan ends quickly.
func (t *Transcript) findToolLocked(id string) *ToolCall {
	for i := len(t.messages) - 1; i >= 0; i-- {
		blocks := t.messages[i].Blocks
		for j := len(blocks) - 1; j >= 0; j-- {
			if blocks[j].Kind == BlockToolCall && blocks[j].Tool.ID == id {
				return blocks[j].Tool
			}
		}
	}
	return nil
}

// Finalize freezes the streaming message: Streaming is cleared and the flat
// content projection is computed from the text blocks in order.
func (t *Transcript) Finalize() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return
	}
	t.current.Streaming = false
	t.current.Content = t.current.flatten()
	t.current = nil
}

// AddSystemMessage appends a frozen system message, used for stream-level
// errors and replay summaries.
func (t *Transcript) AddSystemMessage(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	t.messages = append(t.messages, &Message{
		ID:        uuid.NewString(),
		Role:      RoleSystem,
		Timestamp: now,
		Blocks:    []ContentBlock{{Kind: BlockText, Text: text, At: now}},
		Content:   text,
	})
}

// Streaming reports whether an assistant message is currently open.
func (t *Transcript) Streaming() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current != nil
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Messages returns a deep snapshot safe for concurrent readers.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, 0, len(t.messages))
	for _, m := range t.messages {
		cp := Message{
			ID:        m.ID,
			Role:      m.Role,
			Timestamp: m.Timestamp,
			Content:   m.Content,
			Streaming: m.Streaming,
			Blocks:    make([]ContentBlock, len(m.Blocks)),
		}
		for i, blk := range m.Blocks {
			cp.Blocks[i] = blk
			if blk.Tool != nil {
				tool := *blk.Tool
				cp.Blocks[i].Tool = &tool
			}
		}
		if cp.Streaming {
			cp.Content = m.flatten()
		}
		out = append(out, cp)
	}
	return out
}

// Reset clears all transcript state for a mode switch or sandbox fallback.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = nil
	t.current = nil
	t.seen = make(map[string]bool)
}
