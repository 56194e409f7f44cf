package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/charmsmith/charmsmith/internal/log"
	"github.com/charmsmith/charmsmith/internal/runner"
)

// Option configures a Collector.
type Option func(*Collector)

// WithRunner overrides the process runner, mainly for tests.
func WithRunner(r runner.Runner) Option {
	return func(c *Collector) {
		c.run = r
	}
}

// WithCommands overrides the inspection command set, mainly for tests.
func WithCommands(cmds []Command) Option {
	return func(c *Collector) {
		c.commands = cmds
	}
}

// WithSudo controls whether inspection commands are prefixed with sudo.
// The default prefixes them whenever the agent is not running as root.
func WithSudo(sudo bool) Option {
	return func(c *Collector) {
		c.sudo = sudo
	}
}

// Collector runs the inspection command set and bundles the results
// into the agent data directory.
type Collector struct {
	run      runner.Runner
	dataDir  string
	sudo     bool
	commands []Command
	logger   *slog.Logger
}

// NewCollector creates a collector writing into dataDir.
func NewCollector(dataDir string, opts ...Option) *Collector {
	c := &Collector{
		run:      runner.New(),
		dataDir:  dataDir,
		sudo:     os.Geteuid() != 0,
		commands: commands,
		logger:   log.Component("inventory"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DataFile returns the path the collector writes the bundle to.
func (c *Collector) DataFile() string {
	return DataFilePath(c.dataDir)
}

// Collect runs every inspection command, bundles the captured outputs
// into the datafile, and records run metadata. A failing command does
// not abort the run; its stderr lands in the bundle like any other
// output.
func (c *Collector) Collect(ctx context.Context) (*RunMeta, error) {
	started := time.Now().UTC()

	workdir, err := os.MkdirTemp("", "inventory-collect-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workdir) }()

	for _, cmd := range c.commands {
		c.runCommand(ctx, workdir, cmd)
	}

	bundle, err := readWorkdir(workdir)
	if err != nil {
		return nil, err
	}

	if err := bundle.WriteFile(c.DataFile()); err != nil {
		return nil, err
	}

	metaStore := NewMetaStore(c.dataDir)
	previous, err := metaStore.Load()
	if err != nil {
		c.logger.Warn("discarding unreadable run metadata", "error", err)
		previous = nil
	}
	var previousDigests map[string]string
	if previous != nil {
		previousDigests = previous.Digests
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	digests := bundle.Digests()
	meta := &RunMeta{
		ID:         uuid.NewString(),
		Hostname:   hostname,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Digests:    digests,
		Changed:    ChangedEntries(previousDigests, digests),
		BundleSize: bundle.Size(),
	}
	if err := metaStore.Save(meta); err != nil {
		return nil, err
	}

	c.logger.Info("collection complete",
		"entries", len(bundle),
		"changed", len(meta.Changed),
		"bytes", meta.BundleSize)

	return meta, nil
}

// runCommand captures one command's stdout and stderr as <slug>.txt and
// <slug>.err in the scratch directory. Both files are always written so
// the bundle shape stays stable across hosts.
func (c *Collector) runCommand(ctx context.Context, workdir string, cmd Command) {
	argv := cmd.Argv
	if c.sudo {
		argv = append([]string{"sudo"}, argv...)
	}

	stdout, stderr, err := c.run.Output(ctx, workdir, argv...)
	if err != nil {
		if len(stderr) == 0 {
			stderr = []byte(err.Error() + "\n")
		}
		c.logger.Debug("inspection command failed", "slug", cmd.Slug, "error", err)
	}

	if werr := os.WriteFile(filepath.Join(workdir, cmd.Slug+".txt"), stdout, 0o600); werr != nil {
		c.logger.Warn("failed to write command output", "slug", cmd.Slug, "error", werr)
	}
	if werr := os.WriteFile(filepath.Join(workdir, cmd.Slug+".err"), stderr, 0o600); werr != nil {
		c.logger.Warn("failed to write command errors", "slug", cmd.Slug, "error", werr)
	}
}

// readWorkdir bundles every regular file in the scratch directory.
func readWorkdir(dir string) (Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	b := make(Bundle, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		b[entry.Name()] = string(data)
	}
	return b, nil
}
