package replay

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
)

// Playback state machine: idle -> playing <-> paused -> complete.
// Restart returns to playing from any state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Scheduling bounds. MaxDelay caps real-world gaps in the recording so long
// pauses never stall playback; MinTick keeps back-to-back events visible.
const (
	DefaultMaxDelay = 2000 * time.Millisecond
	MinTick         = 50 * time.Millisecond

	MinSpeed = 0.5
	MaxSpeed = 5.0
)

// Scheduler plays a Recording into an EventSink on a timer chain. All derived
// state lives behind the sink; the scheduler itself only tracks position,
// speed and synthesized tool-call ids.
type Scheduler struct {
	rec    *Recording
	sink   protocol.EventSink
	logger *logging.Logger

	onReset    func()
	onComplete func()
	onProgress func(index int)

	maxDelay time.Duration

	mu    sync.Mutex
	state State
	speed float64
	next  int // index of the next unprocessed event
	gen   int // invalidates timers from superseded schedules
	timer *time.Timer

	// Replay logs may omit tool ids; ids are synthesized deterministically
	// from event index and matched back by tool name.
	openByName map[string]string
	lastToolID string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithOnReset registers the callback that clears all derived state (transcript,
// workers, files) before a seek or restart re-fold.
func WithOnReset(fn func()) Option {
	return func(s *Scheduler) { s.onReset = fn }
}

// WithOnComplete registers the completion hook. It fires exactly once per run,
// whether completion is reached by natural playback, seek to the end, or skip.
func WithOnComplete(fn func()) Option {
	return func(s *Scheduler) { s.onComplete = fn }
}

// WithOnProgress registers a per-event position callback.
func WithOnProgress(fn func(index int)) Option {
	return func(s *Scheduler) { s.onProgress = fn }
}

// WithMaxDelay overrides the inter-event delay cap.
func WithMaxDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.maxDelay = d
		}
	}
}

// WithSpeed sets the initial playback speed, clamped to [MinSpeed, MaxSpeed].
func WithSpeed(speed float64) Option {
	return func(s *Scheduler) { s.speed = clampSpeed(speed) }
}

// NewScheduler validates the recording and prepares playback in the idle
// state.
func NewScheduler(rec *Recording, sink protocol.EventSink, logger *logging.Logger, opts ...Option) (*Scheduler, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recording: %w", err)
	}
	s := &Scheduler{
		rec:        rec,
		sink:       sink,
		logger:     logger.WithComponent("replay"),
		maxDelay:   DefaultMaxDelay,
		speed:      1.0,
		openByName: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func clampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// State reports the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Position reports the index of the next unprocessed event and the total
// event count.
func (s *Scheduler) Position() (next, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, len(s.rec.Events)
}

// Speed reports the current playback speed.
func (s *Scheduler) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// SetSpeed changes playback speed mid-run without resetting progress. The
// value is clamped to [MinSpeed, MaxSpeed]; the new speed applies from the
// next scheduled event.
func (s *Scheduler) SetSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = clampSpeed(speed)
}

// Play starts playback from the current position. No-op when already playing
// or complete. On a paused run it behaves exactly like Resume, keeping the
// upcoming event's scheduled gap.
func (s *Scheduler) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StatePlaying, StateComplete:
		return
	case StatePaused:
		s.resumeLocked()
		return
	}
	s.state = StatePlaying
	s.logger.Info("playback started", map[string]interface{}{
		"events": len(s.rec.Events),
		"speed":  s.speed,
	})
	s.stepLocked()
}

// Pause suspends playback, cancelling the pending timer.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return
	}
	s.cancelLocked()
	s.state = StatePaused
}

// Resume continues a paused run. The upcoming event keeps its scheduled gap.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return
	}
	s.resumeLocked()
}

func (s *Scheduler) resumeLocked() {
	s.state = StatePlaying
	if s.next == 0 {
		s.stepLocked()
		return
	}
	if s.next >= len(s.rec.Events) {
		s.finishLocked()
		return
	}
	s.scheduleLocked(s.delayLocked(s.next - 1))
}

// TogglePause flips between playing and paused.
func (s *Scheduler) TogglePause() {
	if s.State() == StatePaused {
		s.Resume()
	} else {
		s.Pause()
	}
}

// Seek resets all derived state and synchronously re-folds events [0, index]
// through the same per-event handler used during timed playback. The state at
// index is therefore identical whether reached by natural playback or by
// seeking. Seeking to the last event completes the run.
func (s *Scheduler) Seek(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rec.Events) {
		s.logger.Warn("seek out of range", map[string]interface{}{
			"index": index, "events": len(s.rec.Events),
		})
		return
	}

	s.cancelLocked()
	wasPlaying := s.state == StatePlaying
	s.resetLocked()
	// Leave StateComplete before re-folding so a seek landing on the last
	// event funnels through finishLocked like every other completion path.
	s.state = StatePaused

	for i := 0; i <= index; i++ {
		s.foldLocked(s.rec.Events[i], i)
	}
	s.next = index + 1

	if s.next >= len(s.rec.Events) {
		s.finishLocked()
		return
	}
	if wasPlaying {
		s.state = StatePlaying
		s.scheduleLocked(s.delayLocked(index))
	} else {
		s.state = StatePaused
	}
}

// Skip jumps straight to the materialized end state: the final file map is
// loaded wholesale and a single synthetic summary message is emitted. No
// intermediate events are processed, so this is an explicit fast path and
// deliberately NOT equivalent to Seek(len-1).
func (s *Scheduler) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return
	}

	s.cancelLocked()
	s.resetLocked()

	paths := make([]string, 0, len(s.rec.FinalFiles))
	for path := range s.rec.FinalFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		content := s.rec.FinalFiles[path]
		s.sink.FileWritten(protocol.FileWrittenEvent{
			Path:    path,
			Content: content,
			Size:    len(content),
		})
	}
	if s.rec.Summary != "" {
		s.sink.Text(protocol.TextEvent{Content: s.rec.Summary})
	}
	s.next = len(s.rec.Events)
	s.finishLocked()
}

// Restart resets all derived state and begins playback from the first event,
// from any state.
func (s *Scheduler) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.resetLocked()
	s.state = StatePlaying
	s.stepLocked()
}

// Stop cancels playback and returns to idle without touching derived state.
// Used on teardown so no timer fires into a dismantled session.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.state = StateIdle
}

// cancelLocked invalidates any pending timer fire.
func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// resetLocked rewinds position, clears the synthesized tool-id table and
// tells the owner to clear derived state.
func (s *Scheduler) resetLocked() {
	s.next = 0
	s.openByName = make(map[string]string)
	s.lastToolID = ""
	if s.onReset != nil {
		s.onReset()
	}
}

// stepLocked processes the next event and schedules its successor.
func (s *Scheduler) stepLocked() {
	if s.state != StatePlaying {
		return
	}
	if s.next >= len(s.rec.Events) {
		s.finishLocked()
		return
	}

	i := s.next
	s.foldLocked(s.rec.Events[i], i)
	s.next++
	if s.onProgress != nil {
		s.onProgress(i)
	}

	if s.next >= len(s.rec.Events) {
		s.finishLocked()
		return
	}
	s.scheduleLocked(s.delayLocked(i))
}

// delayLocked computes the wait between event i and i+1:
// min(gap, maxDelay) / speed, floored at MinTick.
func (s *Scheduler) delayLocked(i int) time.Duration {
	gap := time.Duration(s.rec.Events[i+1].TimestampMS-s.rec.Events[i].TimestampMS) * time.Millisecond
	if gap > s.maxDelay {
		gap = s.maxDelay
	}
	delay := time.Duration(float64(gap) / s.speed)
	if delay < MinTick {
		delay = MinTick
	}
	return delay
}

func (s *Scheduler) scheduleLocked(delay time.Duration) {
	gen := s.gen
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.stepLocked()
	})
}

// finishLocked freezes the run and fires the completion hook. Every
// completion path funnels through here so onComplete fires exactly once.
func (s *Scheduler) finishLocked() {
	if s.state == StateComplete {
		return
	}
	s.cancelLocked()
	s.state = StateComplete
	s.sink.Done()
	s.logger.Info("playback complete", nil)
	if s.onComplete != nil {
		s.onComplete()
	}
}

// foldLocked translates one recorded event into sink callbacks. Seek and
// timed playback share this path, which is what makes seeking deterministic.
func (s *Scheduler) foldLocked(ev Event, index int) {
	switch ev.Type {
	case EventThinking:
		s.sink.Thinking(ev.Text)

	case EventToolCall:
		id := ev.ToolID
		if id == "" {
			id = fmt.Sprintf("tool-%d", index)
		}
		s.openByName[ev.ToolName] = id
		s.lastToolID = id
		s.sink.ToolCall(protocol.ToolCallEvent{ID: id, Name: ev.ToolName, Input: ev.ToolInput})

	case EventToolResult:
		id := ev.ToolID
		if id == "" {
			id = s.openByName[ev.ToolName]
		}
		if id == "" {
			id = s.lastToolID
		}
		success := true
		if ev.Success != nil {
			success = *ev.Success
		}
		res := protocol.ToolResultEvent{ID: id, Success: success, Result: ev.Result}
		if !success {
			res.Error = ev.Message
		}
		s.sink.ToolResult(res)

	case EventWorkerSpawned:
		s.sink.WorkerSpawned(protocol.WorkerSpawnedEvent{Workers: ev.Workers})

	case EventWorkerProgress:
		if ev.Status == "started" {
			s.sink.WorkerStarted(protocol.WorkerStartedEvent{WorkerID: ev.WorkerID})
		}
		if ev.CurrentTool != "" {
			s.sink.WorkerToolCall(protocol.WorkerToolCallEvent{
				WorkerID: ev.WorkerID,
				ToolName: ev.CurrentTool,
			})
		}
		if ev.Iteration > 0 {
			s.sink.WorkerIteration(protocol.WorkerIterationEvent{
				WorkerID:      ev.WorkerID,
				Iteration:     ev.Iteration,
				MaxIterations: ev.MaxIterations,
			})
		}
		if ev.Text != "" {
			s.sink.WorkerTextDelta(protocol.WorkerTextDeltaEvent{
				WorkerID: ev.WorkerID,
				Delta:    ev.Text,
			})
		}

	case EventWorkerCompleted:
		success := true
		if ev.Success != nil {
			success = *ev.Success
		}
		files := make(map[string]string, len(ev.Files))
		for _, path := range ev.Files {
			files[path] = ""
		}
		s.sink.WorkerCompleted(protocol.WorkerCompletedEvent{
			WorkerID: ev.WorkerID,
			Success:  success,
			Files:    files,
			Summary:  ev.Summary,
			Error:    ev.Message,
		})

	case EventFileWritten:
		s.sink.FileWritten(protocol.FileWrittenEvent{
			Path:    ev.Path,
			Content: ev.Content,
			Size:    len(ev.Content),
		})

	case EventPreviewReady:
		s.sink.PreviewReady(ev.URL)

	case EventError:
		s.sink.StreamError(ev.Message)
	}
}
