package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/build"
	"github.com/charmsmith/charmsmith/internal/juju"
	"github.com/charmsmith/charmsmith/internal/watch"
)

var watchFlags struct {
	debounce int
	upgrade  bool
	verbose  bool
	json     bool
	noColor  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch charm sources and rebuild on changes",
	Long: `Watches the declared charm sources and rebuilds whenever one changes.

With --upgrade, every successful rebuild is followed by a
'juju upgrade-charm' so the deployed application tracks your edits.

Example output:

  $ charmsmith watch

  charmsmith: watching 5 source files in /home/dev/inventory-charm
  charmsmith: charm: inventory (focal)
  charmsmith: ready

  [14:32:15] ~ reactive/inventory.py
  [14:32:16] rebuilding after change to reactive/inventory.py...
  [14:32:19] ✓ /home/dev/inventory-charm/focal/inventory built

Press Ctrl+C to stop watching.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 500,
		"Debounce window in milliseconds")
	watchCmd.Flags().BoolVar(&watchFlags.upgrade, "upgrade", false,
		"Run 'juju upgrade-charm' after each successful rebuild")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show file-level changes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := globalFlags.project
	if len(args) > 0 {
		dir = args[0]
	}

	p, err := resolveProjectAt(dir)
	if err != nil {
		return err
	}

	sources, err := p.resolveSources()
	if err != nil {
		return err
	}

	b, err := build.New(p.root)
	if err != nil {
		return err
	}

	var c *juju.Client
	if watchFlags.upgrade {
		if c, err = p.newJujuClient(); err != nil {
			return err
		}
	}

	// Setup signal handling for graceful shutdown
	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	w, err := watch.New(watch.Config{
		Root:        p.root,
		Charm:       fmt.Sprintf("%s (%s)", p.target.Name, p.target.Series),
		Sources:     sources,
		IgnorePaths: []string{p.target.OutputDir()},
		Debounce:    watchFlags.debounce,
		Verbose:     watchFlags.verbose,
		NoColor:     watchFlags.noColor,
		JSON:        watchFlags.json,
		Output:      p.target.OutputDir(),
		Build: func(ctx context.Context, changed []string) error {
			if _, err := buildTarget(ctx, b, p); err != nil {
				return err
			}
			if c != nil {
				return c.UpgradeCharm(ctx, p.target.Name, p.target.OutputDir())
			}
			return nil
		},
		Resolve: p.resolveSources,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	// Run watch loop
	return w.Run(ctx)
}
