package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmsmith/charmsmith/internal/log"
	"github.com/charmsmith/charmsmith/internal/runner"
)

// ErrCharmNotFound is returned when the charm build tool cannot be located.
var ErrCharmNotFound = errors.New("charm tool not found")

// ErrBuildFailed is returned when the external build process fails or
// completes without producing a manifest.
var ErrBuildFailed = errors.New("charm build failed")

// Builder drives the external charm build tool for one project.
type Builder struct {
	run         runner.Runner
	charmPath   string
	projectRoot string
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithCharmPath sets an explicit path to the charm tool, skipping the
// PATH lookup. Used for tests and unusual installs.
func WithCharmPath(path string) Option {
	return func(b *Builder) {
		b.charmPath = path
	}
}

// WithRunner substitutes the process runner. Used by tests to record
// invocations.
func WithRunner(r runner.Runner) Option {
	return func(b *Builder) {
		b.run = r
	}
}

// New creates a Builder for the project root. Unless an explicit path
// is given, the charm tool is resolved from PATH up front so a missing
// tool surfaces before any staleness work.
func New(projectRoot string, opts ...Option) (*Builder, error) {
	b := &Builder{
		run:         runner.New(),
		projectRoot: projectRoot,
		logger:      log.Component("build"),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.charmPath == "" {
		path, err := runner.Find("charm", "")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCharmNotFound, err)
		}
		b.charmPath = path
	}

	return b, nil
}

// EnsureBuilt rebuilds the target when any source is newer than the
// build manifest (or the manifest is missing) and reports whether a
// build actually ran. A fresh manifest makes this a no-op.
//
// On build failure the output directory is left exactly as the tool
// left it: partial artifacts stay on disk for inspection.
func (b *Builder) EnsureBuilt(ctx context.Context, target Target, sources []string) (bool, error) {
	if len(sources) == 0 {
		return false, fmt.Errorf("target %s: no sources declared", target.Name)
	}

	manifestPath := target.ManifestPath()
	stale, err := IsStale(manifestPath, sources)
	if err != nil {
		return false, err
	}
	if !stale {
		b.logger.Debug("manifest up to date", "target", target.Name, "manifest", manifestPath)
		return false, nil
	}

	argv := []string{
		b.charmPath, "build",
		"-s", target.Series,
		"-n", target.Name,
		"-o", target.BuildRoot,
	}
	b.logger.Info("building charm",
		"target", target.Name,
		"series", target.Series,
		"output", target.OutputDir())
	b.logger.Debug("invoking build tool", "argv", argv)

	if err := b.run.Run(ctx, b.projectRoot, argv...); err != nil {
		return true, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	// The tool owns the manifest; only its existence is verified here.
	if _, err := os.Stat(manifestPath); err != nil {
		return true, fmt.Errorf("%w: completed without manifest at %s", ErrBuildFailed, manifestPath)
	}

	return true, nil
}

// Clean removes the target's entire output directory. An output
// directory that never existed is success. Clean needs no build tool,
// so it is independent of any Builder.
func Clean(target Target) error {
	outputDir := target.OutputDir()
	log.Component("build").Info("removing build output", "target", target.Name, "dir", outputDir)
	if err := os.RemoveAll(outputDir); err != nil {
		return fmt.Errorf("cleaning %s: %w", outputDir, err)
	}
	return nil
}
