package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetaVersion is the current run metadata format version.
const MetaVersion = 1

// RunMeta describes one collection run: when it happened, what it
// produced, and which entries changed since the previous run.
type RunMeta struct {
	Version    int               `json:"version"`
	ID         string            `json:"id"`
	Hostname   string            `json:"hostname"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Digests    map[string]string `json:"digests"`
	Changed    []string          `json:"changed,omitempty"`
	BundleSize int64             `json:"bundle_size"`
}

// MetaStore persists run metadata next to the bundle.
type MetaStore struct {
	path string
}

// NewMetaStore creates a store for collect.meta.json under the data
// directory.
func NewMetaStore(dataDir string) *MetaStore {
	return &MetaStore{path: filepath.Join(dataDir, MetaFileName)}
}

// Path returns the metadata file location.
func (s *MetaStore) Path() string {
	return s.path
}

// Load reads the last run's metadata. A missing file is not an error;
// it returns nil for the first run.
func (s *MetaStore) Load() (*RunMeta, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run metadata: %w", err)
	}

	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse run metadata: %w", err)
	}

	if meta.Version > MetaVersion {
		return nil, fmt.Errorf("run metadata version %d is newer than supported version %d", meta.Version, MetaVersion)
	}

	return &meta, nil
}

// Save writes run metadata atomically via a temp file.
func (s *MetaStore) Save(meta *RunMeta) error {
	if meta == nil {
		return fmt.Errorf("cannot save nil run metadata")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	meta.Version = MetaVersion

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp run metadata: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename run metadata: %w", err)
	}

	return nil
}
