package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "charmsmith.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".charmsmith"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "charmsmith"

// Load loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/charmsmith/config.toml)
//  3. Project config (.charmsmith/config.toml or charmsmith.toml)
//  4. Environment variables (CHARMSMITH_*)
//
// CLI flags are applied separately after Load() returns.
func Load() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration with the project config search starting
// from a specific directory.
func LoadFrom(dir string) *Config {
	cfg := NewConfig()

	if globalCfg := loadGlobalConfig(); globalCfg != nil {
		cfg.Merge(globalCfg)
	}

	if projectCfg := loadProjectConfigFrom(dir); projectCfg != nil {
		cfg.Merge(projectCfg)
	}

	applyEnvironmentVariables(cfg)

	return cfg
}

// loadGlobalConfig loads the global user configuration from ~/.config/charmsmith/config.toml.
func loadGlobalConfig() *Config {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}

	configPath := filepath.Join(configDir, GlobalConfigDir, "config.toml")
	return loadConfigFile(configPath)
}

// loadProjectConfigFrom looks for project configuration starting from the
// given directory, walking up to the project root.
func loadProjectConfigFrom(dir string) *Config {
	current := dir
	for {
		// Check for .charmsmith/config.toml first
		dirConfig := filepath.Join(current, ConfigDirName, "config.toml")
		if cfg := loadConfigFile(dirConfig); cfg != nil {
			return cfg
		}

		// Check for charmsmith.toml in the project root
		rootConfig := filepath.Join(current, ConfigFileName)
		if cfg := loadConfigFile(rootConfig); cfg != nil {
			return cfg
		}

		// Stop at the filesystem root or a project root marker
		if isProjectRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil
}

// isProjectRoot checks if the directory is a project root (has .git or
// charm metadata).
func isProjectRoot(dir string) bool {
	markers := []string{".git", "metadata.yaml", "layer.yaml"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file. The returned
// config remembers the path it was read from.
func loadConfigFile(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil
	}

	cfg.Path = path
	return &cfg
}

// applyEnvironmentVariables applies CHARMSMITH_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) {
	if v := os.Getenv("CHARMSMITH_NAME"); v != "" {
		cfg.Charm.Name = v
	}
	if v := os.Getenv("CHARMSMITH_SERIES"); v != "" {
		cfg.Charm.Series = v
	}
	if v := os.Getenv("CHARMSMITH_BUILD_ROOT"); v != "" {
		cfg.Charm.BuildRoot = v
	}
	if v := os.Getenv("CHARMSMITH_SOURCES"); v != "" {
		cfg.Charm.Sources = splitAndTrim(v)
	}

	if v := os.Getenv("CHARMSMITH_PLACEMENT"); v != "" {
		cfg.Deploy.Placement = v
	}
	if v := os.Getenv("CHARMSMITH_DEPLOY_CONFIG"); v != "" {
		cfg.Deploy.ConfigFile = v
	}
	if v := os.Getenv("CHARMSMITH_MODEL"); v != "" {
		cfg.Deploy.Model = v
	}

	if v := os.Getenv("CHARMSMITH_DATA_DIR"); v != "" {
		cfg.Agent.DataDir = v
	}
	if v := os.Getenv("CHARMSMITH_SUBMIT_URL"); v != "" {
		cfg.Agent.SubmitURL = v
	}
	if v := os.Getenv("CHARMSMITH_STATE_DB"); v != "" {
		cfg.Agent.StateDB = v
	}
	if v := os.Getenv("CHARMSMITH_SUBMIT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.SubmitTimeoutSeconds = n
		}
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
