// Package hook implements the charm's collect-and-submit state machine.
//
// Hooks apply flag transitions to the persistent unit state, then ready
// handlers run until none are left. A handler clears its trigger flag
// before doing any work, so a failed attempt stays idle until the next
// update-status hook re-arms it.
package hook

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/charmsmith/charmsmith/internal/inventory"
	"github.com/charmsmith/charmsmith/internal/juju"
	"github.com/charmsmith/charmsmith/internal/log"
	"github.com/charmsmith/charmsmith/internal/runner"
	"github.com/charmsmith/charmsmith/internal/state"
	"github.com/charmsmith/charmsmith/internal/submit"
	"github.com/charmsmith/charmsmith/pkg/config"
)

// Flags of the collect-and-submit machine.
const (
	FlagCollecting = "collecting"
	FlagCollected  = "collected"
	FlagSubmitting = "submitting"
	FlagSubmitted  = "submitted"
	FlagConfigured = "configured"
)

// Hooks with flag transitions. Any other hook name dispatches with no
// transitions, which still gives ready handlers a chance to run.
const (
	HookInstall       = "install"
	HookConfigChanged = "config-changed"
	HookUpdateStatus  = "update-status"
	HookUpgradeCharm  = "upgrade-charm"
	HookStop          = "stop"
)

// configKey is the charm configuration option naming the endpoint.
const configKey = "submit_url"

// Hooks returns the hook names with flag transitions, in lifecycle
// order. Used for symlink dispatch and CLI argument validation.
func Hooks() []string {
	return []string{HookInstall, HookConfigChanged, HookUpdateStatus, HookUpgradeCharm, HookStop}
}

// Collector produces the inventory datafile.
type Collector interface {
	Collect(ctx context.Context) (*inventory.RunMeta, error)
	DataFile() string
}

// Submitter delivers a datafile to the endpoint.
type Submitter interface {
	SubmitFile(ctx context.Context, path string) error
}

// StatusReporter pushes workload status to the controller.
type StatusReporter interface {
	StatusSet(ctx context.Context, status juju.Status, message string) error
}

// ConfigReader resolves the charm configuration.
type ConfigReader interface {
	ConfigGet(ctx context.Context) (map[string]any, error)
}

// Option configures a Machine.
type Option func(*Machine)

// WithCollector overrides the inventory collector.
func WithCollector(c Collector) Option {
	return func(m *Machine) {
		m.collector = c
	}
}

// WithSubmitter overrides how submitters are built for an endpoint URL.
func WithSubmitter(factory func(url string) Submitter) Option {
	return func(m *Machine) {
		m.newSubmitter = factory
	}
}

// WithStatusReporter overrides where workload status goes.
func WithStatusReporter(r StatusReporter) Option {
	return func(m *Machine) {
		m.statuses = r
	}
}

// WithConfigReader overrides where charm configuration comes from.
func WithConfigReader(r ConfigReader) Option {
	return func(m *Machine) {
		m.configs = r
	}
}

// WithRunner overrides the process runner used for package installs.
func WithRunner(r runner.Runner) Option {
	return func(m *Machine) {
		m.run = r
	}
}

// WithSudo controls sudo prefixing for package installs.
func WithSudo(sudo bool) Option {
	return func(m *Machine) {
		m.sudo = sudo
	}
}

// Machine holds the unit state and the collaborators the handlers need.
type Machine struct {
	store        *state.Store
	cfg          *config.Config
	collector    Collector
	newSubmitter func(url string) Submitter
	statuses     StatusReporter
	configs      ConfigReader
	run          runner.Runner
	sudo         bool
	logger       *slog.Logger
}

// New creates a machine over the given unit state. Inside a Juju hook
// context the charm configuration and status updates go through the
// hook tools; outside one they fall back to the agent configuration.
func New(store *state.Store, cfg *config.Config, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		cfg:       cfg,
		collector: inventory.NewCollector(cfg.Agent.DataDir),
		run:       runner.New(),
		sudo:      os.Geteuid() != 0,
		logger:    log.Component("hook"),
	}
	m.newSubmitter = func(url string) Submitter {
		return submit.New(url,
			submit.WithTimeout(time.Duration(cfg.Agent.SubmitTimeoutSeconds)*time.Second))
	}
	if juju.InHookContext() {
		tools := juju.NewHookTools(nil)
		m.statuses = tools
		m.configs = tools
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// charmConfig resolves the charm configuration: from the hook
// environment when available, otherwise from the agent's own config.
func (m *Machine) charmConfig(ctx context.Context) (map[string]any, error) {
	if m.configs != nil {
		return m.configs.ConfigGet(ctx)
	}
	values := map[string]any{}
	if m.cfg != nil && m.cfg.Agent.SubmitURL != "" {
		values[configKey] = m.cfg.Agent.SubmitURL
	}
	return values, nil
}

// submitURL extracts the endpoint from a charm configuration map. An
// unset or non-string value reads as unconfigured.
func submitURL(values map[string]any) string {
	url, _ := values[configKey].(string)
	return url
}

// status reports workload status, best effort.
func (m *Machine) status(ctx context.Context, st juju.Status, message string) {
	if m.statuses == nil {
		return
	}
	if err := m.statuses.StatusSet(ctx, st, message); err != nil {
		m.logger.Warn("failed to set workload status", "error", err)
	}
}

func (m *Machine) setFlags(names ...string) error {
	for _, name := range names {
		if err := m.store.SetFlag(name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) clearFlags(names ...string) error {
	for _, name := range names {
		if err := m.store.ClearFlag(name); err != nil {
			return err
		}
	}
	return nil
}

// holds reports whether every when flag is set and every whenNot flag
// is clear.
func (m *Machine) holds(when, whenNot []string) (bool, error) {
	for _, name := range when {
		ok, err := m.store.HasFlag(name)
		if err != nil || !ok {
			return false, err
		}
	}
	for _, name := range whenNot {
		ok, err := m.store.HasFlag(name)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}
