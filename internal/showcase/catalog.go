// Package showcase loads recorded demo sessions from the on-disk catalog:
// index.json at the root, and meta.json, replay.json, files.json per
// showcase directory.
package showcase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/replay"
)

// Summary is one entry of index.json.
type Summary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	DurationMS  int64    `json:"duration_ms,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Meta is the per-showcase meta.json.
type Meta struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"` // synthetic end message for skip
	PreviewURL  string `json:"preview_url,omitempty"`
	RecordedAt  string `json:"recorded_at,omitempty"`
}

// Showcase is one fully loaded entry: metadata plus the recording ready to
// hand to a replay.Scheduler.
type Showcase struct {
	Meta      Meta
	Recording *replay.Recording
}

// LoadIndex reads index.json from dir.
func LoadIndex(dir string) ([]Summary, error) {
	data, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		return nil, fmt.Errorf("read showcase index: %w", err)
	}
	var index []Summary
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse showcase index: %w", err)
	}
	return index, nil
}

// Load reads one showcase by id. The three files are loaded independently
// and combined; absence or corruption of any one fails this showcase only,
// never the index.
func Load(dir, id string) (*Showcase, error) {
	base := filepath.Join(dir, id)

	var meta Meta
	if err := readJSON(filepath.Join(base, "meta.json"), &meta); err != nil {
		return nil, fmt.Errorf("showcase %s: %w", id, err)
	}

	var rec replay.Recording
	if err := readJSON(filepath.Join(base, "replay.json"), &rec); err != nil {
		return nil, fmt.Errorf("showcase %s: %w", id, err)
	}

	var files map[string]string
	if err := readJSON(filepath.Join(base, "files.json"), &files); err != nil {
		return nil, fmt.Errorf("showcase %s: %w", id, err)
	}

	rec.FinalFiles = files
	rec.Summary = meta.Summary
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("showcase %s: %w", id, err)
	}
	return &Showcase{Meta: meta, Recording: &rec}, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Catalog caches the index and serves showcases on demand, with optional
// live reload when the directory changes.
type Catalog struct {
	dir    string
	logger *logging.Logger

	mu    sync.RWMutex
	index []Summary

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	onChange func([]Summary)
}

// NewCatalog loads the index from dir.
func NewCatalog(dir string, logger *logging.Logger) (*Catalog, error) {
	c := &Catalog{
		dir:    dir,
		logger: logger.WithComponent("showcase"),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads index.json.
func (c *Catalog) Reload() error {
	index, err := LoadIndex(c.dir)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.index = index
	c.mu.Unlock()
	return nil
}

// Index returns the cached summaries, sorted by id.
func (c *Catalog) Index() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Summary, len(c.index))
	copy(out, c.index)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get loads one showcase. A broken showcase fails here without affecting
// the rest of the catalog.
func (c *Catalog) Get(id string) (*Showcase, error) {
	c.mu.RLock()
	found := false
	for _, s := range c.index {
		if s.ID == id {
			found = true
			break
		}
	}
	c.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("showcase %s: not in index", id)
	}
	return Load(c.dir, id)
}

// Watch reloads the index when the catalog directory changes and invokes
// onChange with the fresh summaries. Stops when Close is called.
func (c *Catalog) Watch(onChange func([]Summary)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	c.watcher = watcher
	c.stop = make(chan struct{})
	c.onChange = onChange

	go c.watchLoop()
	return nil
}

func (c *Catalog) watchLoop() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Debounce: wait for writes to settle.
			time.Sleep(100 * time.Millisecond)
			if err := c.Reload(); err != nil {
				c.logger.Warn("catalog reload failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if c.onChange != nil {
				c.onChange(c.Index())
			}
		case _, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			// Keep watching.
		case <-c.stop:
			return
		}
	}
}

// Close stops the watcher, if any.
func (c *Catalog) Close() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
}
