package sandbox

import (
	"os"
	"path/filepath"
	"strings"
)

// IDStore persists the sandbox id in a single file under the state
// directory so the next run can attempt a reconnect.
type IDStore struct {
	path string
}

// NewIDStore stores the id under dir/sandbox_id.
func NewIDStore(dir string) *IDStore {
	return &IDStore{path: filepath.Join(dir, "sandbox_id")}
}

// Load returns the persisted id, or empty when none is stored.
func (s *IDStore) Load() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Save writes the id, creating the state directory if needed.
func (s *IDStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(id+"\n"), 0o600)
}

// Clear drops the persisted id. Missing file is not an error.
func (s *IDStore) Clear() {
	os.Remove(s.path)
}
