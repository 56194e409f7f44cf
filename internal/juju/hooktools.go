package juju

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmsmith/charmsmith/internal/runner"
)

// Status is a unit workload status understood by status-set.
type Status string

const (
	StatusMaintenance Status = "maintenance"
	StatusActive      Status = "active"
	StatusBlocked     Status = "blocked"
	StatusWaiting     Status = "waiting"
)

// InHookContext reports whether the process is running inside a Juju
// hook invocation, where the hook tools (config-get, status-set,
// juju-log) are on PATH.
func InHookContext() bool {
	return os.Getenv("JUJU_CONTEXT_ID") != ""
}

// HookTools exposes the hook environment commands available to a charm
// while a hook runs.
type HookTools struct {
	run runner.Runner
}

// NewHookTools creates hook tools backed by the given runner; nil uses
// the real process runner.
func NewHookTools(r runner.Runner) *HookTools {
	if r == nil {
		r = runner.New()
	}
	return &HookTools{run: r}
}

// ConfigGet reads the full charm configuration from the hook context.
func (h *HookTools) ConfigGet(ctx context.Context) (map[string]any, error) {
	stdout, stderr, err := h.run.Output(ctx, "", "config-get", "--format=json")
	if err != nil {
		return nil, fmt.Errorf("config-get: %w (%s)", err, stderr)
	}

	cfg := make(map[string]any)
	if len(stdout) > 0 {
		if err := json.Unmarshal(stdout, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config-get output: %w", err)
		}
	}
	return cfg, nil
}

// StatusSet reports the unit workload status.
func (h *HookTools) StatusSet(ctx context.Context, status Status, message string) error {
	if _, stderr, err := h.run.Output(ctx, "", "status-set", string(status), message); err != nil {
		return fmt.Errorf("status-set: %w (%s)", err, stderr)
	}
	return nil
}

// Log writes a line to the Juju debug log.
func (h *HookTools) Log(ctx context.Context, message string) error {
	if _, stderr, err := h.run.Output(ctx, "", "juju-log", message); err != nil {
		return fmt.Errorf("juju-log: %w (%s)", err, stderr)
	}
	return nil
}
