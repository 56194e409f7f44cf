package inventory

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/charmsmith/charmsmith/pkg/util"
)

const (
	// DataFileName is the bundle written into the agent data directory.
	DataFileName = "collect.json"

	// MetaFileName records metadata about the most recent collection run.
	MetaFileName = "collect.meta.json"
)

// Bundle holds the collected inventory, one entry per file produced by
// the collection run, keyed by file name.
type Bundle map[string]string

// DataFilePath returns the bundle location under the data directory.
func DataFilePath(dataDir string) string {
	return filepath.Join(dataDir, DataFileName)
}

// ReadBundle loads a bundle previously written with WriteFile.
func ReadBundle(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}
	return b, nil
}

// WriteFile writes the bundle as JSON, atomically via a temp file so a
// crashed run never leaves a truncated datafile behind.
func (b Bundle) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp bundle: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename bundle: %w", err)
	}

	return nil
}

// Names returns the entry names in sorted order.
func (b Bundle) Names() []string {
	return util.SortedKeys(b)
}

// Digests computes the xxHash64 of every entry, keyed by entry name.
func (b Bundle) Digests() map[string]string {
	digests := make(map[string]string, len(b))
	for name, contents := range b {
		digests[name] = hashBytes([]byte(contents))
	}
	return digests
}

// Size returns the total number of content bytes across all entries.
func (b Bundle) Size() int64 {
	var n int64
	for _, contents := range b {
		n += int64(len(contents))
	}
	return n
}

// hashBytes computes xxHash64 of bytes, returns hex string.
func hashBytes(data []byte) string {
	h := xxhash.Sum64(data)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return hex.EncodeToString(buf[:])
}
