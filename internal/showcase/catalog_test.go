package showcase

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/openclaw/cockpit/internal/logging"
)

func testLogger() *logging.Logger {
	l := logging.New()
	l.SetLevel(logging.LevelError)
	return l
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

const goodReplay = `{
  "events": [
    {"type": "agent_thinking", "timestamp": 0, "text": "planning"},
    {"type": "file_written", "timestamp": 100, "path": "index.html", "content": "<html>"}
  ],
  "total_duration_ms": 100
}`

// writeShowcase lays down a complete, loadable showcase directory.
func writeShowcase(t *testing.T, dir, id string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, id, "meta.json"),
		`{"id":"`+id+`","title":"Demo","summary":"done building"}`)
	writeFile(t, filepath.Join(dir, id, "replay.json"), goodReplay)
	writeFile(t, filepath.Join(dir, id, "files.json"), `{"index.html":"<html>"}`)
}

func TestLoad_CombinesFileSet(t *testing.T) {
	dir := t.TempDir()
	writeShowcase(t, dir, "demo")

	sc, err := Load(dir, "demo")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Meta.Title != "Demo" {
		t.Errorf("title = %q", sc.Meta.Title)
	}
	if len(sc.Recording.Events) != 2 || sc.Recording.TotalDurationMS != 100 {
		t.Errorf("recording not parsed: %+v", sc.Recording)
	}
	if sc.Recording.FinalFiles["index.html"] != "<html>" {
		t.Error("files.json not combined into recording")
	}
	if sc.Recording.Summary != "done building" {
		t.Error("meta summary not combined into recording")
	}
}

func TestLoad_MissingFileFailsShowcase(t *testing.T) {
	dir := t.TempDir()
	writeShowcase(t, dir, "demo")
	os.Remove(filepath.Join(dir, "demo", "files.json"))

	if _, err := Load(dir, "demo"); err == nil {
		t.Fatal("expected error when files.json is missing")
	}
}

func TestCatalog_BrokenShowcaseIsolated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.json"),
		`[{"id":"good","title":"Good"},{"id":"broken","title":"Broken"}]`)
	writeShowcase(t, dir, "good")
	// "broken" has a corrupt replay log.
	writeFile(t, filepath.Join(dir, "broken", "meta.json"), `{"id":"broken","title":"Broken"}`)
	writeFile(t, filepath.Join(dir, "broken", "replay.json"), `{"events":[{"type":"mystery","timestamp":0}]}`)
	writeFile(t, filepath.Join(dir, "broken", "files.json"), `{}`)

	cat, err := NewCatalog(dir, testLogger())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	if got := len(cat.Index()); got != 2 {
		t.Errorf("index entries = %d, want 2", got)
	}
	if _, err := cat.Get("good"); err != nil {
		t.Errorf("good showcase failed: %v", err)
	}
	if _, err := cat.Get("broken"); err == nil {
		t.Error("broken showcase should fail to load")
	}
	// Index stays intact after the failure.
	if got := len(cat.Index()); got != 2 {
		t.Errorf("index entries after failure = %d, want 2", got)
	}
}

func TestCatalog_GetUnknownID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.json"), `[]`)

	cat, err := NewCatalog(dir, testLogger())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if _, err := cat.Get("nope"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestBuildIndex_CompilesManifests(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "demo", "showcase.yaml"),
		"id: demo\ntitle: Demo Page\ndescription: A demo\nsummary: built it\ntags: [landing, hero]\n")
	writeFile(t, filepath.Join(dir, "demo", "replay.json"), goodReplay)
	writeFile(t, filepath.Join(dir, "demo", "files.json"), `{"index.html":"<html>"}`)

	// Broken entry: manifest without a recording. Must be skipped.
	writeFile(t, filepath.Join(dir, "halfdone", "showcase.yaml"), "id: halfdone\ntitle: Half\n")

	index, err := BuildIndex(dir, testLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(index) != 1 {
		t.Fatalf("index entries = %d, want 1", len(index))
	}
	if index[0].ID != "demo" || index[0].DurationMS != 100 || len(index[0].Tags) != 2 {
		t.Errorf("unexpected summary: %+v", index[0])
	}

	// The build output must round-trip through the loader.
	cat, err := NewCatalog(dir, testLogger())
	if err != nil {
		t.Fatalf("catalog on built dir: %v", err)
	}
	sc, err := cat.Get("demo")
	if err != nil {
		t.Fatalf("get built showcase: %v", err)
	}
	if sc.Meta.Summary != "built it" {
		t.Errorf("meta summary = %q", sc.Meta.Summary)
	}

	var meta Meta
	data, err := os.ReadFile(filepath.Join(dir, "demo", "meta.json"))
	if err != nil {
		t.Fatalf("meta.json not written: %v", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("meta.json corrupt: %v", err)
	}
	if meta.Title != "Demo Page" {
		t.Errorf("meta title = %q", meta.Title)
	}
}

func TestLoadManifest_RequiresIDAndTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "showcase.yaml")
	writeFile(t, path, "description: no id here\n")

	if _, err := LoadManifest(path); err == nil {
		t.Error("expected error for manifest without id/title")
	}
}
