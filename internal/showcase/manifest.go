package showcase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/replay"
)

// Manifest is the authoring format: a showcase.yaml next to the recorded
// replay.json and files.json. `showcase build` compiles manifests into the
// JSON catalog the client consumes.
type Manifest struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description,omitempty"`
	Summary     string   `yaml:"summary,omitempty"`
	PreviewURL  string   `yaml:"preview_url,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// LoadManifest parses one showcase.yaml.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" || m.Title == "" {
		return nil, fmt.Errorf("manifest %s: id and title are required", path)
	}
	return &m, nil
}

// BuildIndex scans dir for subdirectories carrying a showcase.yaml, compiles
// each into meta.json, and writes a fresh index.json. A broken showcase is
// skipped with a warning; it never breaks the rest of the build.
func BuildIndex(dir string, logger *logging.Logger) ([]Summary, error) {
	log := logger.WithComponent("showcase")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}

	var index []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		base := filepath.Join(dir, entry.Name())
		manifestPath := filepath.Join(base, "showcase.yaml")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}

		summary, err := buildOne(base, manifestPath)
		if err != nil {
			log.Warn("skipping showcase", map[string]interface{}{
				"dir":   entry.Name(),
				"error": err.Error(),
			})
			continue
		}
		index = append(index, *summary)
	}

	sort.Slice(index, func(i, j int) bool { return index[i].ID < index[j].ID })

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	log.Info("catalog built", map[string]interface{}{"showcases": len(index)})
	return index, nil
}

func buildOne(base, manifestPath string) (*Summary, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	var rec replay.Recording
	if err := readJSON(filepath.Join(base, "replay.json"), &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	var files map[string]string
	if err := readJSON(filepath.Join(base, "files.json"), &files); err != nil {
		return nil, err
	}

	meta := Meta{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Summary:     m.Summary,
		PreviewURL:  m.PreviewURL,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(base, "meta.json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("write meta: %w", err)
	}

	return &Summary{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		DurationMS:  rec.TotalDurationMS,
		Tags:        m.Tags,
	}, nil
}
