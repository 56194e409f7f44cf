package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmsmith/charmsmith/internal/build"
	"github.com/charmsmith/charmsmith/internal/juju"
	"github.com/charmsmith/charmsmith/pkg/charm"
	"github.com/charmsmith/charmsmith/pkg/config"
)

// project is the resolved working context every command operates on:
// configuration layers folded, charm identity fixed, target derived.
// Resolution happens exactly once per command run.
type project struct {
	root   string
	cfg    *config.Config
	target build.Target
}

// resolveProject folds defaults, config files, environment, charm
// metadata, and flags into one project context. Flags win.
func resolveProject() (*project, error) {
	return resolveProjectAt(globalFlags.project)
}

// resolveProjectAt resolves the project context rooted at dir, or the
// working directory when dir is empty.
func resolveProjectAt(dir string) (*project, error) {
	root := dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	cfg := config.LoadFrom(root)
	if globalFlags.name != "" {
		cfg.Charm.Name = globalFlags.name
	}
	if globalFlags.series != "" {
		cfg.Charm.Series = globalFlags.series
	}

	id := charm.ResolveIdentity(cfg, root)
	cfg.Charm.Name = id.Name
	cfg.Charm.Series = id.Series

	buildRoot := cfg.Charm.BuildRoot
	if !filepath.IsAbs(buildRoot) {
		buildRoot = filepath.Join(root, buildRoot)
	}

	return &project{
		root: root,
		cfg:  cfg,
		target: build.Target{
			Name:      id.Name,
			Series:    id.Series,
			BuildRoot: buildRoot,
		},
	}, nil
}

// resolveSources expands the declared source set, with the loaded
// project config file appended as an implicit input.
func (p *project) resolveSources() ([]string, error) {
	return build.ResolveSources(p.root, p.cfg.Charm.Sources, p.cfg.Path)
}

// deployParams assembles the juju deploy invocation for this target.
func (p *project) deployParams() juju.DeployParams {
	configFile := p.cfg.DeployConfigFile()
	if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(p.root, configFile)
	}
	return juju.DeployParams{
		CharmDir:   p.target.OutputDir(),
		Name:       p.target.Name,
		Placement:  p.cfg.Deploy.Placement,
		ConfigFile: configFile,
	}
}

// newJujuClient creates the juju client for this project, targeting the
// configured model when one is set.
func (p *project) newJujuClient() (*juju.Client, error) {
	var opts []juju.Option
	if p.cfg.Deploy.Model != "" {
		opts = append(opts, juju.WithModel(p.cfg.Deploy.Model))
	}
	return juju.New(opts...)
}

// buildTarget resolves the source set and runs the staleness-gated
// build. It reports whether a build actually ran.
func buildTarget(ctx context.Context, b *build.Builder, p *project) (bool, error) {
	sources, err := p.resolveSources()
	if err != nil {
		return false, err
	}
	return b.EnsureBuilt(ctx, p.target, sources)
}

// deployTarget builds first, then deploys. A failed build stops the
// run before juju is ever invoked.
func deployTarget(ctx context.Context, b *build.Builder, c *juju.Client, p *project) error {
	if _, err := buildTarget(ctx, b, p); err != nil {
		return err
	}
	return c.Deploy(ctx, p.deployParams())
}

// upgradeTarget builds first, then upgrades the deployed application
// in place. A failed build stops the run before juju is ever invoked.
func upgradeTarget(ctx context.Context, b *build.Builder, c *juju.Client, p *project) error {
	if _, err := buildTarget(ctx, b, p); err != nil {
		return err
	}
	return c.UpgradeCharm(ctx, p.target.Name, p.target.OutputDir())
}
