// Package charm reads charm project metadata and resolves the build
// target identity.
package charm

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/charmsmith/charmsmith/pkg/config"
)

// MetadataFileName is the charm metadata file at the project root.
const MetadataFileName = "metadata.yaml"

// LayerFileName is the layer declaration file of a reactive charm.
const LayerFileName = "layer.yaml"

// Metadata is the subset of metadata.yaml the tooling cares about.
type Metadata struct {
	Name        string   `yaml:"name"`
	Summary     string   `yaml:"summary"`
	Description string   `yaml:"description"`
	Series      []string `yaml:"series"`
	Subordinate bool     `yaml:"subordinate"`
	Tags        []string `yaml:"tags"`
}

// DefaultSeries returns the first declared series, or empty when the
// metadata declares none.
func (m *Metadata) DefaultSeries() string {
	if len(m.Series) == 0 {
		return ""
	}
	return m.Series[0]
}

// ReadMetadata parses metadata.yaml from the project root.
func ReadMetadata(root string) (*Metadata, error) {
	path := filepath.Join(root, MetadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading charm metadata: %w", err)
	}

	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", MetadataFileName, err)
	}
	return &md, nil
}

// Layer is the layer.yaml declaration of a reactive charm.
type Layer struct {
	Includes []string                  `yaml:"includes"`
	Options  map[string]map[string]any `yaml:"options"`
}

// ReadLayer parses layer.yaml from the project root.
func ReadLayer(root string) (*Layer, error) {
	path := filepath.Join(root, LayerFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layer declaration: %w", err)
	}

	var layer Layer
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", LayerFileName, err)
	}
	return &layer, nil
}

// Identity is the resolved charm name and series for a project.
type Identity struct {
	Name   string
	Series string
}

// ResolveIdentity determines the charm name and series, preferring
// explicit configuration (which already folds in environment and config
// files), then charm metadata, then the built-in defaults. Metadata
// read errors are not fatal here; a missing metadata.yaml simply means
// the fallbacks apply.
func ResolveIdentity(cfg *config.Config, root string) Identity {
	id := Identity{
		Name:   cfg.Charm.Name,
		Series: cfg.Charm.Series,
	}

	if id.Name == "" || id.Series == "" {
		if md, err := ReadMetadata(root); err == nil {
			if id.Name == "" {
				id.Name = md.Name
			}
			if id.Series == "" {
				id.Series = md.DefaultSeries()
			}
		}
	}

	if id.Name == "" {
		id.Name = config.DefaultName
	}
	if id.Series == "" {
		id.Series = config.DefaultSeries
	}
	return id
}
