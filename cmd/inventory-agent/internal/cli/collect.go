package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/inventory"
	"github.com/charmsmith/charmsmith/internal/runner"
)

var collectFlags struct {
	showDiff bool
	install  bool
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect a machine inventory now",
	Long: `Runs every inventory command and rewrites the datafile, outside any
hook. Commands whose tool is missing record an error entry instead of
failing the run.

The --show-diff flag prints a unified diff of the entries that changed
since the previous run.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().BoolVar(&collectFlags.showDiff, "show-diff", false,
		"Print a unified diff against the previous datafile")
	collectCmd.Flags().BoolVar(&collectFlags.install, "install", false,
		"Install missing collection packages before collecting")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()
	collector := inventory.NewCollector(cfg.Agent.DataDir)

	var previous inventory.Bundle
	if collectFlags.showDiff {
		// A missing previous datafile diffs against nothing.
		previous, _ = inventory.ReadBundle(collector.DataFile())
	}

	if collectFlags.install {
		installed, err := inventory.EnsurePackages(ctx, runner.New(), os.Geteuid() != 0)
		if err != nil {
			return err
		}
		for _, pkg := range installed {
			fmt.Printf("installed %s\n", pkg)
		}
	}

	meta, err := collector.Collect(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d entries, %d bytes -> %s\n",
		meta.ID, len(meta.Digests), meta.BundleSize, collector.DataFile())
	if len(meta.Changed) > 0 {
		fmt.Printf("changed since last run (%d):\n", len(meta.Changed))
		for _, name := range meta.Changed {
			fmt.Printf("  ~ %s\n", name)
		}
	}

	if collectFlags.showDiff {
		current, err := inventory.ReadBundle(collector.DataFile())
		if err != nil {
			return err
		}
		diff, err := inventory.DiffBundles(previous, current)
		if err != nil {
			return err
		}
		if diff != "" {
			fmt.Print(diff)
		}
	}
	return nil
}
