// Package config provides configuration management for charmsmith.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/charmsmith/config.toml)
//  3. Project config (.charmsmith/config.toml or charmsmith.toml)
//  4. Environment variables (CHARMSMITH_*)
//  5. CLI flags (highest priority)
package config

import "path/filepath"

// Default target identity, used when neither config, environment, nor
// charm metadata provides one.
const (
	DefaultName   = "inventory"
	DefaultSeries = "focal"
)

// Config is the main configuration struct for charmsmith.
type Config struct {
	// Charm identifies the build target and its declared sources.
	Charm CharmConfig `toml:"charm"`

	// Deploy configures how the built charm is handed to juju.
	Deploy DeployConfig `toml:"deploy"`

	// Agent configures the machine-inventory agent.
	Agent AgentConfig `toml:"agent"`

	// Path is the project config file this configuration was loaded
	// from, empty when no project config exists. It participates in
	// staleness checks as an implicit build input.
	Path string `toml:"-"`
}

// CharmConfig identifies the charm being built.
type CharmConfig struct {
	// Name is the charm name. Left empty here, it is resolved from
	// charm metadata and finally DefaultName (see charm.ResolveIdentity).
	Name string `toml:"name"`

	// Series is the target series identifier.
	Series string `toml:"series"`

	// BuildRoot is the directory under which build output is placed.
	// The output directory is <BuildRoot>/<Series>/<Name>.
	BuildRoot string `toml:"build_root"`

	// Sources are the declared build inputs, as paths or glob patterns
	// relative to the project root. Order is preserved.
	Sources []string `toml:"sources"`
}

// DeployConfig holds the juju deployment parameters.
type DeployConfig struct {
	// Placement is the machine placement directive passed to
	// `juju deploy --to`.
	Placement string `toml:"placement"`

	// ConfigFile is the application config file passed to
	// `juju deploy --config`. Empty means "<name>.yaml".
	ConfigFile string `toml:"config_file"`

	// Model is an optional juju model name; empty uses the current model.
	Model string `toml:"model"`
}

// AgentConfig holds the inventory agent parameters.
type AgentConfig struct {
	// DataDir is where the agent keeps the collected datafile, run
	// metadata, and its state database.
	DataDir string `toml:"data_dir"`

	// SubmitURL is the endpoint inventory bundles are POSTed to.
	// Empty means the agent is unconfigured and will not submit.
	SubmitURL string `toml:"submit_url"`

	// StateDB overrides the state database path. Empty means
	// "<DataDir>/state.db".
	StateDB string `toml:"state_db"`

	// SubmitTimeoutSeconds bounds the total time spent retrying one
	// submission, backoff included.
	SubmitTimeoutSeconds int `toml:"submit_timeout_seconds"`
}

// NewConfig creates a new Config with built-in defaults. Name and
// series stay empty so later layers (charm metadata, environment,
// flags) can be told apart from the hardcoded fallbacks.
func NewConfig() *Config {
	return &Config{
		Charm: CharmConfig{
			BuildRoot: ".",
			Sources:   []string{"layer.yaml", "metadata.yaml", "reactive/*.py"},
		},
		Deploy: DeployConfig{
			Placement: "0",
		},
		Agent: AgentConfig{
			DataDir:              "/var/lib/inventory-agent",
			SubmitTimeoutSeconds: 30,
		},
	}
}

// DeployConfigFile returns the application config file for deployment,
// deriving "<name>.yaml" when none is configured.
func (c *Config) DeployConfigFile() string {
	if c.Deploy.ConfigFile != "" {
		return c.Deploy.ConfigFile
	}
	name := c.Charm.Name
	if name == "" {
		name = DefaultName
	}
	return name + ".yaml"
}

// StateDBPath returns the agent state database path.
func (c *Config) StateDBPath() string {
	if c.Agent.StateDB != "" {
		return c.Agent.StateDB
	}
	return filepath.Join(c.Agent.DataDir, "state.db")
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Charm.Name != "" {
		c.Charm.Name = other.Charm.Name
	}
	if other.Charm.Series != "" {
		c.Charm.Series = other.Charm.Series
	}
	if other.Charm.BuildRoot != "" {
		c.Charm.BuildRoot = other.Charm.BuildRoot
	}
	if len(other.Charm.Sources) > 0 {
		c.Charm.Sources = other.Charm.Sources
	}

	if other.Deploy.Placement != "" {
		c.Deploy.Placement = other.Deploy.Placement
	}
	if other.Deploy.ConfigFile != "" {
		c.Deploy.ConfigFile = other.Deploy.ConfigFile
	}
	if other.Deploy.Model != "" {
		c.Deploy.Model = other.Deploy.Model
	}

	if other.Agent.DataDir != "" {
		c.Agent.DataDir = other.Agent.DataDir
	}
	if other.Agent.SubmitURL != "" {
		c.Agent.SubmitURL = other.Agent.SubmitURL
	}
	if other.Agent.StateDB != "" {
		c.Agent.StateDB = other.Agent.StateDB
	}
	if other.Agent.SubmitTimeoutSeconds > 0 {
		c.Agent.SubmitTimeoutSeconds = other.Agent.SubmitTimeoutSeconds
	}

	if other.Path != "" {
		c.Path = other.Path
	}
}
