// Package build decides when a charm must be rebuilt and drives the
// external build tool when it is.
//
// Staleness is judged from filesystem timestamps alone: the build
// manifest inside the output directory is compared against every
// declared source. No content hashing is involved; touching a source
// forward makes the target stale, and nothing else does.
package build

import "path/filepath"

// ManifestName is the marker file the external build tool writes into
// a completed build. Its modification time is the last successful
// build time.
const ManifestName = ".build.manifest"

// Target is a named charm build output for one series.
type Target struct {
	// Name is the charm name.
	Name string

	// Series is the target series identifier.
	Series string

	// BuildRoot is the directory build output is placed under.
	BuildRoot string
}

// OutputDir returns the directory the built charm lands in:
// <BuildRoot>/<Series>/<Name>.
func (t Target) OutputDir() string {
	return filepath.Join(t.BuildRoot, t.Series, t.Name)
}

// ManifestPath returns the build manifest location for this target.
func (t Target) ManifestPath() string {
	return filepath.Join(t.OutputDir(), ManifestName)
}
