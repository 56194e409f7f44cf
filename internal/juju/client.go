// Package juju wraps the juju CLI for deploy and upgrade operations,
// and the hook tools available to a charm inside a hook context.
package juju

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmsmith/charmsmith/internal/log"
	"github.com/charmsmith/charmsmith/internal/runner"
)

// ErrJujuNotFound is returned when the juju binary cannot be located.
var ErrJujuNotFound = errors.New("juju binary not found")

// ErrDeployFailed is returned when juju deploy exits non-zero.
var ErrDeployFailed = errors.New("juju deploy failed")

// ErrUpgradeFailed is returned when juju upgrade-charm exits non-zero.
var ErrUpgradeFailed = errors.New("juju upgrade-charm failed")

// Client drives the juju CLI. No retries: a failed deploy or upgrade
// surfaces immediately with the tool's own output.
type Client struct {
	run      runner.Runner
	jujuPath string
	model    string
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithJujuPath sets an explicit path to the juju binary, skipping the
// PATH lookup.
func WithJujuPath(path string) Option {
	return func(c *Client) {
		c.jujuPath = path
	}
}

// WithRunner substitutes the process runner. Used by tests.
func WithRunner(r runner.Runner) Option {
	return func(c *Client) {
		c.run = r
	}
}

// WithModel targets a specific juju model instead of the current one.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// New creates a juju client, resolving the binary up front unless an
// explicit path was given.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		run:    runner.New(),
		logger: log.Component("juju"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.jujuPath == "" {
		path, err := runner.Find("juju", "")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJujuNotFound, err)
		}
		c.jujuPath = path
	}

	return c, nil
}

// DeployParams carries everything juju deploy needs for a local charm.
type DeployParams struct {
	// CharmDir is the built charm's output directory.
	CharmDir string

	// Name is the application name.
	Name string

	// Placement is the machine placement directive (--to).
	Placement string

	// ConfigFile is the application config file (--config).
	ConfigFile string
}

// Deploy deploys a locally built charm with a fixed placement and an
// application config file.
func (c *Client) Deploy(ctx context.Context, p DeployParams) error {
	argv := []string{c.jujuPath, "deploy"}
	if c.model != "" {
		argv = append(argv, "-m", c.model)
	}
	argv = append(argv, p.CharmDir, p.Name, "--to", p.Placement, "--config", p.ConfigFile)

	c.logger.Info("deploying charm", "name", p.Name, "to", p.Placement)
	c.logger.Debug("invoking juju", "argv", argv)

	if err := c.run.Run(ctx, "", argv...); err != nil {
		return fmt.Errorf("%w: %w", ErrDeployFailed, err)
	}
	return nil
}

// UpgradeCharm upgrades a deployed application in place from the built
// charm directory.
func (c *Client) UpgradeCharm(ctx context.Context, name, charmDir string) error {
	argv := []string{c.jujuPath, "upgrade-charm"}
	if c.model != "" {
		argv = append(argv, "-m", c.model)
	}
	argv = append(argv, name, "--path", charmDir)

	c.logger.Info("upgrading charm", "name", name, "path", charmDir)
	c.logger.Debug("invoking juju", "argv", argv)

	if err := c.run.Run(ctx, "", argv...); err != nil {
		return fmt.Errorf("%w: %w", ErrUpgradeFailed, err)
	}
	return nil
}
