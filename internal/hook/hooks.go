package hook

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmsmith/charmsmith/internal/inventory"
	"github.com/charmsmith/charmsmith/internal/juju"
)

// Dispatch applies the named hook's flag transitions, then runs ready
// handlers until a full pass fires none. The stop hook tears the unit
// down instead and runs no handlers.
func (m *Machine) Dispatch(ctx context.Context, hookName string) error {
	m.logger.Debug("dispatching hook", "hook", hookName)

	switch hookName {
	case HookInstall:
		if err := m.install(ctx); err != nil {
			return err
		}
	case HookConfigChanged:
		if err := m.configChanged(ctx); err != nil {
			return err
		}
	case HookUpdateStatus:
		if err := m.updateStatus(ctx); err != nil {
			return err
		}
	case HookUpgradeCharm:
		if err := m.upgradeCharm(ctx); err != nil {
			return err
		}
	case HookStop:
		return m.stop(ctx)
	default:
		m.logger.Debug("hook has no flag transitions", "hook", hookName)
	}

	return m.runHandlers(ctx)
}

// install schedules both a collection and a submission.
func (m *Machine) install(ctx context.Context) error {
	m.logger.Debug("install: scheduling collection and submission")
	if err := m.setFlags(FlagCollecting, FlagSubmitting); err != nil {
		return err
	}
	if err := m.clearFlags(FlagCollected, FlagSubmitted); err != nil {
		return err
	}
	m.status(ctx, juju.StatusMaintenance, "setting up")
	return nil
}

// configChanged reacts to the submit_url option being set, changed, or
// removed.
func (m *Machine) configChanged(ctx context.Context) error {
	current, err := m.charmConfig(ctx)
	if err != nil {
		return err
	}
	url := submitURL(current)

	previous, had, err := m.store.SavedConfig()
	if err != nil {
		return err
	}
	changed := !had || submitURL(previous) != url
	if err := m.store.SaveConfig(current); err != nil {
		return err
	}

	if url == "" {
		m.logger.Debug("no submission endpoint configured")
		if err := m.clearFlags(FlagConfigured, FlagSubmitting, FlagSubmitted); err != nil {
			return err
		}
		m.status(ctx, juju.StatusMaintenance, "waiting for configuration")
		return nil
	}

	configured, err := m.store.HasFlag(FlagConfigured)
	if err != nil {
		return err
	}
	if !changed && configured {
		m.logger.Debug("submission endpoint unchanged", "url", url)
		return nil
	}

	m.logger.Debug("new submission endpoint", "url", url)
	if err := m.setFlags(FlagConfigured, FlagSubmitting); err != nil {
		return err
	}
	if err := m.clearFlags(FlagSubmitted); err != nil {
		return err
	}

	collected, err := m.store.HasFlag(FlagCollected)
	if err != nil {
		return err
	}
	collecting, err := m.store.HasFlag(FlagCollecting)
	if err != nil {
		return err
	}
	if !collected && !collecting {
		m.logger.Debug("scheduling another collection attempt")
		m.status(ctx, juju.StatusMaintenance, "about to try to collect data again")
		return m.setFlags(FlagCollecting)
	}
	m.status(ctx, juju.StatusMaintenance, "about to resubmit any collected data")
	return nil
}

// updateStatus re-arms whichever of collection and submission has not
// completed yet.
func (m *Machine) updateStatus(ctx context.Context) error {
	collected, err := m.store.HasFlag(FlagCollected)
	if err != nil {
		return err
	}
	if !collected {
		m.logger.Debug("update-status: scheduling another collection attempt")
		if err := m.setFlags(FlagCollecting); err != nil {
			return err
		}
	}

	submitted, err := m.store.HasFlag(FlagSubmitted)
	if err != nil {
		return err
	}
	if !submitted {
		m.logger.Debug("update-status: scheduling another submission attempt")
		if err := m.setFlags(FlagSubmitting); err != nil {
			return err
		}
	}
	return nil
}

// upgradeCharm starts the cycle over, forgetting the endpoint until the
// next config-changed confirms it.
func (m *Machine) upgradeCharm(ctx context.Context) error {
	m.logger.Debug("upgrade-charm: resetting all the flags")
	if err := m.setFlags(FlagCollecting, FlagSubmitting); err != nil {
		return err
	}
	return m.clearFlags(FlagCollected, FlagSubmitted, FlagConfigured)
}

// stop removes the collected data and its run metadata, and forgets the
// packages recorded at collection time.
func (m *Machine) stop(ctx context.Context) error {
	datafile := m.collector.DataFile()
	m.logger.Debug("removing the collected data", "path", datafile)
	if err := os.Remove(datafile); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("could not remove the datafile", "path", datafile, "error", err)
	}

	meta := filepath.Join(filepath.Dir(datafile), inventory.MetaFileName)
	if err := os.Remove(meta); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("could not remove the run metadata", "path", meta, "error", err)
	}

	return m.store.UnrecordPackages()
}

// handler is one reactive handler with its flag preconditions.
type handler struct {
	name    string
	when    []string
	whenNot []string
	run     func(context.Context) error
}

func (m *Machine) handlers() []handler {
	return []handler{
		{
			name:    "collect",
			when:    []string{FlagCollecting},
			whenNot: []string{FlagCollected},
			run:     m.collect,
		},
		{
			name:    "nowhere-to-submit",
			when:    []string{FlagCollected, FlagSubmitting},
			whenNot: []string{FlagConfigured, FlagSubmitted},
			run:     m.nowhereToSubmit,
		},
		{
			name:    "submit",
			when:    []string{FlagConfigured, FlagCollected, FlagSubmitting},
			whenNot: []string{FlagSubmitted},
			run:     m.trySubmit,
		},
	}
}

// runHandlers runs every ready handler, at most once each, repeating
// until a full pass fires nothing.
func (m *Machine) runHandlers(ctx context.Context) error {
	ran := make(map[string]bool)
	for {
		fired := false
		for _, h := range m.handlers() {
			if ran[h.name] {
				continue
			}
			ready, err := m.holds(h.when, h.whenNot)
			if err != nil {
				return err
			}
			if !ready {
				continue
			}
			m.logger.Debug("running handler", "handler", h.name)
			ran[h.name] = true
			fired = true
			if err := h.run(ctx); err != nil {
				return err
			}
		}
		if !fired {
			return nil
		}
	}
}

// collect installs the inspection tooling and gathers the inventory.
// Collection failures do not fail the hook; the cleared trigger flag
// stays down until update-status raises it again.
func (m *Machine) collect(ctx context.Context) error {
	if err := m.clearFlags(FlagCollecting); err != nil {
		return err
	}

	m.status(ctx, juju.StatusMaintenance, "installing packages for data collection")
	newly, err := inventory.EnsurePackages(ctx, m.run, m.sudo)
	if err != nil {
		m.logger.Error("failed to install the OS packages", "error", err)
		m.status(ctx, juju.StatusBlocked, "failed to install the OS packages")
		return nil
	}
	if len(newly) > 0 {
		m.logger.Debug("installed new packages", "packages", newly)
		if err := m.store.RecordPackages(newly); err != nil {
			return err
		}
	} else {
		m.logger.Debug("inspection tooling already present")
	}

	m.status(ctx, juju.StatusMaintenance, "collecting data")
	meta, err := m.collector.Collect(ctx)
	if err != nil {
		m.logger.Error("failed to collect the data", "error", err)
		m.status(ctx, juju.StatusBlocked, "failed to collect the data")
		return nil
	}
	m.logger.Info("collected inventory",
		"run", meta.ID,
		"entries", len(meta.Digests),
		"changed", len(meta.Changed))

	return m.setFlags(FlagCollected)
}

// nowhereToSubmit notes that data is waiting for an endpoint.
func (m *Machine) nowhereToSubmit(ctx context.Context) error {
	m.logger.Info("collected some data, but nowhere to submit it to")
	return nil
}

// trySubmit delivers the datafile to the configured endpoint.
// Submission failures do not fail the hook.
func (m *Machine) trySubmit(ctx context.Context) error {
	if err := m.clearFlags(FlagSubmitting); err != nil {
		return err
	}

	values, err := m.charmConfig(ctx)
	if err != nil {
		return err
	}
	url := submitURL(values)
	if url == "" {
		m.logger.Debug("submission endpoint vanished before submitting")
		return nil
	}

	m.logger.Debug("submitting collected data", "url", url)
	m.status(ctx, juju.StatusMaintenance, "submitting the collected data")
	if err := m.newSubmitter(url).SubmitFile(ctx, m.collector.DataFile()); err != nil {
		m.logger.Error("failed to submit the collected data", "error", err)
		m.status(ctx, juju.StatusBlocked, "failed to submit the collected data")
		return nil
	}

	m.status(ctx, juju.StatusActive, "here, have a blob of data")
	return m.setFlags(FlagSubmitted)
}
