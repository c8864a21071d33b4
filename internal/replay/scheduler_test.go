package replay

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
)

// logSink flattens every sink callback into an ordered string log, which
// makes whole-run state comparisons trivial.
type logSink struct {
	mu  sync.Mutex
	log []string
}

func (s *logSink) add(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, fmt.Sprintf(format, args...))
}

func (s *logSink) entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}

func (s *logSink) Text(ev protocol.TextEvent)           { s.add("text:%s", ev.Content) }
func (s *logSink) TextDelta(ev protocol.TextDeltaEvent) { s.add("delta:%s", ev.Delta) }
func (s *logSink) Thinking(text string)                 { s.add("thinking:%s", text) }
func (s *logSink) ToolCall(ev protocol.ToolCallEvent) {
	s.add("tool_call:%s:%s", ev.ID, ev.Name)
}
func (s *logSink) ToolResult(ev protocol.ToolResultEvent) {
	s.add("tool_result:%s:%t:%s", ev.ID, ev.Success, ev.Result)
}
func (s *logSink) Done() { s.add("done") }
func (s *logSink) WorkerSpawned(ev protocol.WorkerSpawnedEvent) {
	s.add("spawned:%d", len(ev.Workers))
}
func (s *logSink) WorkerStarted(ev protocol.WorkerStartedEvent) {
	s.add("started:%s", ev.WorkerID)
}
func (s *logSink) WorkerToolCall(ev protocol.WorkerToolCallEvent) {
	s.add("wtool:%s:%s", ev.WorkerID, ev.ToolName)
}
func (s *logSink) WorkerToolResult(ev protocol.WorkerToolResultEvent) {
	s.add("wtoolres:%s:%s", ev.WorkerID, ev.ToolName)
}
func (s *logSink) WorkerCompleted(ev protocol.WorkerCompletedEvent) {
	s.add("completed:%s:%t", ev.WorkerID, ev.Success)
}
func (s *logSink) WorkerError(ev protocol.WorkerErrorEvent) {
	s.add("werror:%s", ev.WorkerID)
}
func (s *logSink) WorkerIteration(ev protocol.WorkerIterationEvent) {
	s.add("iter:%s:%d", ev.WorkerID, ev.Iteration)
}
func (s *logSink) WorkerTextDelta(ev protocol.WorkerTextDeltaEvent) {
	s.add("wdelta:%s:%s", ev.WorkerID, ev.Delta)
}
func (s *logSink) StateUpdate(ev protocol.StateUpdateEvent) { s.add("state") }
func (s *logSink) FileWritten(ev protocol.FileWrittenEvent) {
	s.add("file:%s:%s", ev.Path, ev.Content)
}
func (s *logSink) FileDeleted(ev protocol.FileDeletedEvent) { s.add("deleted:%s", ev.Path) }
func (s *logSink) TerminalOutput(ev protocol.TerminalOutputEvent) {
	s.add("term:%s", ev.Data)
}
func (s *logSink) PreviewReady(url string) { s.add("preview:%s", url) }
func (s *logSink) CheckpointRequested(ev protocol.TriggerCheckpointSaveEvent) {
	s.add("checkpoint")
}
func (s *logSink) StreamError(message string) { s.add("error:%s", message) }

func testLogger() *logging.Logger {
	l := logging.New()
	l.SetLevel(logging.LevelError)
	return l
}

func boolPtr(b bool) *bool { return &b }

// sampleRecording exercises every variant with small inter-event gaps so
// timed runs stay fast.
func sampleRecording() *Recording {
	return &Recording{
		Events: []Event{
			{Type: EventThinking, TimestampMS: 0, Text: "planning"},
			{Type: EventToolCall, TimestampMS: 10, ToolName: "write_file", ToolInput: map[string]interface{}{"path": "a.txt"}},
			{Type: EventToolResult, TimestampMS: 20, ToolName: "write_file", Success: boolPtr(true), Result: "ok"},
			{Type: EventWorkerSpawned, TimestampMS: 30, Workers: []protocol.WorkerSpawn{{WorkerID: "w1", SectionName: "hero"}}},
			{Type: EventWorkerProgress, TimestampMS: 40, WorkerID: "w1", Status: "started"},
			{Type: EventWorkerProgress, TimestampMS: 50, WorkerID: "w1", CurrentTool: "web_fetch", Iteration: 1},
			{Type: EventFileWritten, TimestampMS: 60, Path: "b.txt", Content: "bbb"},
			{Type: EventWorkerCompleted, TimestampMS: 70, WorkerID: "w1", Success: boolPtr(true), Summary: "hero built"},
			{Type: EventPreviewReady, TimestampMS: 80, URL: "https://preview.test"},
			{Type: EventError, TimestampMS: 90, Message: "transient"},
		},
		TotalDurationMS: 90,
		FinalFiles:      map[string]string{"b.txt": "bbb", "a.txt": "aaa"},
		Summary:         "built the page",
	}
}

func TestRecording_Validate(t *testing.T) {
	tests := []struct {
		name    string
		events  []Event
		wantErr bool
	}{
		{
			name: "well formed",
			events: []Event{
				{Type: EventThinking, TimestampMS: 0, Text: "x"},
				{Type: EventToolCall, TimestampMS: 0, ToolName: "write_file"},
			},
		},
		{
			name: "decreasing timestamps",
			events: []Event{
				{Type: EventThinking, TimestampMS: 100, Text: "x"},
				{Type: EventThinking, TimestampMS: 50, Text: "y"},
			},
			wantErr: true,
		},
		{
			name:    "unknown type",
			events:  []Event{{Type: "mystery", TimestampMS: 0}},
			wantErr: true,
		},
		{
			name:    "tool_call without name",
			events:  []Event{{Type: EventToolCall, TimestampMS: 0}},
			wantErr: true,
		},
		{
			name:    "worker_progress without id",
			events:  []Event{{Type: EventWorkerProgress, TimestampMS: 0, Status: "started"}},
			wantErr: true,
		},
		{
			name:    "preview without url",
			events:  []Event{{Type: EventPreviewReady, TimestampMS: 0}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recording{Events: tt.events}
			err := rec.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestScheduler_RejectsInvalidRecording(t *testing.T) {
	rec := &Recording{Events: []Event{{Type: "mystery", TimestampMS: 0}}}
	if _, err := NewScheduler(rec, &logSink{}, testLogger()); err == nil {
		t.Fatal("expected error for invalid recording")
	}
}

func playToEnd(t *testing.T, rec *Recording, opts ...Option) []string {
	t.Helper()
	sink := &logSink{}
	done := make(chan struct{})
	opts = append(opts, WithOnComplete(func() { close(done) }))
	sched, err := NewScheduler(rec, sink, testLogger(), opts...)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	sched.Play()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("playback never completed")
	}
	return sink.entries()
}

// Seeking to the last event must produce exactly the state natural playback
// produces.
func TestScheduler_SeekMatchesNaturalPlayback(t *testing.T) {
	rec := sampleRecording()
	natural := playToEnd(t, rec)

	sink := &logSink{}
	completed := 0
	sched, err := NewScheduler(rec, sink, testLogger(),
		WithOnComplete(func() { completed++ }))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	sched.Seek(len(rec.Events) - 1)

	if got := sink.entries(); !reflect.DeepEqual(got, natural) {
		t.Errorf("seek state diverged from natural playback:\nseek:    %v\nnatural: %v", got, natural)
	}
	if completed != 1 {
		t.Errorf("onComplete fired %d times, want 1", completed)
	}
	if sched.State() != StateComplete {
		t.Errorf("state = %s, want complete", sched.State())
	}
}

// A direct seek and a seek that wanders first must land on identical state:
// the reset before re-fold must leave nothing behind.
func TestScheduler_SeekIsPathIndependent(t *testing.T) {
	rec := sampleRecording()
	k := 5

	direct := &logSink{}
	a, _ := NewScheduler(rec, direct, testLogger())
	a.Seek(k)

	wandering := &logSink{}
	b, _ := NewScheduler(rec, wandering, testLogger())
	b.Seek(8)
	b.Seek(2)
	b.Seek(k)

	// Compare only the folds after the final reset.
	got := wandering.entries()
	want := direct.entries()
	if len(got) < len(want) || !reflect.DeepEqual(got[len(got)-len(want):], want) {
		t.Errorf("wandering seek tail %v != direct seek %v", got, want)
	}
	if b.State() != StatePaused {
		t.Errorf("mid-log seek from idle should pause, got %s", b.State())
	}
	if next, _ := b.Position(); next != k+1 {
		t.Errorf("position = %d, want %d", next, k+1)
	}
}

// Seeking to the last event from a completed run must still terminate the
// fold with done: completion is a fresh run's completion, not a leftover of
// the previous one.
func TestScheduler_SeekToEndFromComplete(t *testing.T) {
	rec := sampleRecording()
	natural := playToEnd(t, rec)

	sink := &logSink{}
	completed := 0
	sched, err := NewScheduler(rec, sink, testLogger(),
		WithOnComplete(func() { completed++ }))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	sched.Skip()
	skipped := len(sink.entries())
	sched.Seek(len(rec.Events) - 1)

	if got := sink.entries()[skipped:]; !reflect.DeepEqual(got, natural) {
		t.Errorf("seek-to-end after complete diverged from natural playback:\nseek:    %v\nnatural: %v", got, natural)
	}
	if completed != 2 {
		t.Errorf("onComplete fired %d times, want 2 (skip + seek)", completed)
	}
	if sched.State() != StateComplete {
		t.Errorf("state = %s, want complete", sched.State())
	}
}

// A mid-log seek from complete leaves the run paused like any other
// non-terminal seek.
func TestScheduler_SeekBackFromComplete(t *testing.T) {
	rec := sampleRecording()
	sched, err := NewScheduler(rec, &logSink{}, testLogger())
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	sched.Skip()
	sched.Seek(3)
	if sched.State() != StatePaused {
		t.Errorf("state = %s, want paused", sched.State())
	}
	if next, _ := sched.Position(); next != 4 {
		t.Errorf("position = %d, want 4", next)
	}
}

// Play on a paused run must honor the upcoming event's gap, exactly like
// Resume: the next event is scheduled, never folded inline.
func TestScheduler_PlayOnPausedKeepsGap(t *testing.T) {
	rec := sampleRecording()
	sink := &logSink{}
	done := make(chan struct{})
	sched, err := NewScheduler(rec, sink, testLogger(),
		WithOnComplete(func() { close(done) }))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	sched.Play()
	sched.Pause()
	n := len(sink.entries())

	sched.Play()
	if got := len(sink.entries()); got != n {
		t.Errorf("Play folded an event inline on resume: %d -> %d entries", n, got)
	}
	if sched.State() != StatePlaying {
		t.Fatalf("state = %s, want playing", sched.State())
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("resumed run never completed")
	}
}

func TestScheduler_SpeedInvarianceOfOutcome(t *testing.T) {
	rec := sampleRecording()
	slow := playToEnd(t, rec, WithSpeed(1))
	fast := playToEnd(t, rec, WithSpeed(5))
	if !reflect.DeepEqual(slow, fast) {
		t.Errorf("final state depends on speed:\nx1: %v\nx5: %v", slow, fast)
	}
}

func TestScheduler_DelayRule(t *testing.T) {
	rec := &Recording{Events: []Event{
		{Type: EventThinking, TimestampMS: 0, Text: "a"},
		{Type: EventThinking, TimestampMS: 1000, Text: "b"},
		{Type: EventThinking, TimestampMS: 1010, Text: "c"},
		{Type: EventThinking, TimestampMS: 60000, Text: "d"},
	}}
	s, err := NewScheduler(rec, &logSink{}, testLogger())
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	tests := []struct {
		name  string
		index int
		speed float64
		want  time.Duration
	}{
		{"plain gap", 0, 1, 1000 * time.Millisecond},
		{"speed divides gap", 0, 2, 500 * time.Millisecond},
		{"small gap floors at min tick", 1, 1, MinTick},
		{"long gap capped then divided", 2, 2, time.Second},
		{"cap at speed 1", 2, 1, DefaultMaxDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.mu.Lock()
			s.speed = tt.speed
			got := s.delayLocked(tt.index)
			s.mu.Unlock()
			if got != tt.want {
				t.Errorf("delay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_PauseFreezesResumeContinues(t *testing.T) {
	rec := sampleRecording()
	sink := &logSink{}
	done := make(chan struct{})
	sched, err := NewScheduler(rec, sink, testLogger(),
		WithOnComplete(func() { close(done) }))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	sched.Play()
	sched.Pause()
	if sched.State() != StatePaused {
		t.Fatalf("state = %s, want paused", sched.State())
	}

	frozen, _ := sched.Position()
	time.Sleep(150 * time.Millisecond)
	if next, _ := sched.Position(); next != frozen {
		t.Errorf("position advanced while paused: %d -> %d", frozen, next)
	}

	sched.Resume()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("resume never reached completion")
	}
	if got := sink.entries(); got[len(got)-1] != "done" {
		t.Errorf("missing terminal done, log tail %v", got[len(got)-3:])
	}
}

// Skip is the explicit fast path: materialized files plus one synthetic
// summary, nothing from the event log.
func TestScheduler_SkipMaterializesEndState(t *testing.T) {
	rec := sampleRecording()
	sink := &logSink{}
	completed := 0
	sched, err := NewScheduler(rec, sink, testLogger(),
		WithOnComplete(func() { completed++ }))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	sched.Skip()

	want := []string{
		"file:a.txt:aaa",
		"file:b.txt:bbb",
		"text:built the page",
		"done",
	}
	if got := sink.entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("skip log = %v, want %v", got, want)
	}
	if completed != 1 {
		t.Errorf("onComplete fired %d times, want 1", completed)
	}
	if sched.State() != StateComplete {
		t.Errorf("state = %s, want complete", sched.State())
	}

	// Repeat skip is a no-op.
	sched.Skip()
	if completed != 1 {
		t.Error("skip after complete must not refire onComplete")
	}
}

func TestScheduler_RestartFromComplete(t *testing.T) {
	rec := sampleRecording()
	sink := &logSink{}
	resets := 0
	done := make(chan struct{}, 2)
	sched, err := NewScheduler(rec, sink, testLogger(),
		WithOnReset(func() { resets++ }),
		WithOnComplete(func() { done <- struct{}{} }))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	sched.Skip()
	<-done
	first := len(sink.entries())

	sched.Restart()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("restart run never completed")
	}

	if resets != 2 {
		t.Errorf("resets = %d, want 2 (skip + restart)", resets)
	}
	rerun := sink.entries()[first:]
	if len(rerun) != len(rec.Events)+1 { // every event plus done
		t.Errorf("restart replayed %d entries, want %d", len(rerun), len(rec.Events)+1)
	}
}

func TestScheduler_SetSpeedClamps(t *testing.T) {
	sched, err := NewScheduler(sampleRecording(), &logSink{}, testLogger())
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	sched.SetSpeed(0.1)
	if got := sched.Speed(); got != MinSpeed {
		t.Errorf("speed = %v, want %v", got, MinSpeed)
	}
	sched.SetSpeed(50)
	if got := sched.Speed(); got != MaxSpeed {
		t.Errorf("speed = %v, want %v", got, MaxSpeed)
	}
	sched.SetSpeed(2)
	if got := sched.Speed(); got != 2 {
		t.Errorf("speed = %v, want 2", got)
	}
}

// Recordings may omit tool ids; they are synthesized from event index and
// matched back by tool name.
func TestScheduler_SynthesizedToolIDs(t *testing.T) {
	rec := &Recording{Events: []Event{
		{Type: EventToolCall, TimestampMS: 0, ToolName: "write_file"},
		{Type: EventToolResult, TimestampMS: 10, ToolName: "write_file", Result: "ok"},
	}}
	sink := &logSink{}
	sched, err := NewScheduler(rec, sink, testLogger())
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	sched.Seek(1)

	want := []string{"tool_call:tool-0:write_file", "tool_result:tool-0:true:ok", "done"}
	if got := sink.entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("log = %v, want %v", got, want)
	}
}

func TestScheduler_StopCancelsTimers(t *testing.T) {
	rec := sampleRecording()
	sink := &logSink{}
	sched, err := NewScheduler(rec, sink, testLogger())
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	sched.Play()
	sched.Stop()
	n := len(sink.entries())
	time.Sleep(150 * time.Millisecond)
	if got := len(sink.entries()); got != n {
		t.Errorf("events kept flowing after Stop: %d -> %d", n, got)
	}
	if sched.State() != StateIdle {
		t.Errorf("state = %s, want idle", sched.State())
	}
}
