// Package checkpoint keeps local snapshots of the sandbox file map, taken
// when the backend asks for a checkpoint save. The authoritative checkpoint
// service is external; these snapshots are a client-side safety net.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Snapshot is one saved state of a project's files.
type Snapshot struct {
	ProjectID  string            `json:"project_id"`
	Seq        int               `json:"seq"`
	FilesCount int               `json:"files_count"`
	Files      map[string]string `json:"files"`
	TakenAt    time.Time         `json:"taken_at"`
}

// Store manages snapshots for one state directory.
type Store struct {
	dir string

	mu        sync.RWMutex
	snapshots map[string][]*Snapshot // project id -> snapshots in seq order
}

// NewStore creates a snapshot store under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Store{
		dir:       dir,
		snapshots: make(map[string][]*Snapshot),
	}, nil
}

// Save records a snapshot and writes it to disk as
// {project_id}-{seq}.json.
func (s *Store) Save(projectID string, files map[string]string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := &Snapshot{
		ProjectID:  projectID,
		Seq:        len(s.snapshots[projectID]) + 1,
		FilesCount: len(files),
		Files:      make(map[string]string, len(files)),
		TakenAt:    time.Now().UTC(),
	}
	for path, content := range files {
		cp.Files[path] = content
	}
	s.snapshots[projectID] = append(s.snapshots[projectID], cp)

	if err := s.flush(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Latest returns the most recent snapshot for a project, nil when none.
func (s *Store) Latest(projectID string) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.snapshots[projectID]
	if len(snaps) == 0 {
		return nil
	}
	return snaps[len(snaps)-1]
}

// Trail returns all snapshots for a project in save order.
func (s *Store) Trail(projectID string) []*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := s.snapshots[projectID]
	out := make([]*Snapshot, len(snaps))
	copy(out, snaps)
	return out
}

func (s *Store) flush(cp *Snapshot) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%d.json", cp.ProjectID, cp.Seq))
	return os.WriteFile(path, data, 0o644)
}

// Load reads snapshots back from disk, for inspection across runs.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	s.snapshots = make(map[string][]*Snapshot)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var cp Snapshot
		if err := json.Unmarshal(data, &cp); err != nil {
			continue
		}
		s.snapshots[cp.ProjectID] = append(s.snapshots[cp.ProjectID], &cp)
	}

	for id := range s.snapshots {
		snaps := s.snapshots[id]
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].Seq < snaps[j].Seq })
	}
	return nil
}
