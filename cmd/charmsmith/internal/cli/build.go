package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/build"
)

var buildFlags struct {
	check bool
}

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"charm", "all"},
	Short:   "Build the charm when any declared source changed",
	Long: `Builds the charm when the build manifest is missing or older than any
declared source file. A manifest newer than every source makes this a
no-op.

The --check flag reports whether a rebuild is needed without running
the build tool, for use in CI.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildFlags.check, "check", false,
		"Check whether a rebuild is needed without building (exit 1 if stale)")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := resolveProject()
	if err != nil {
		return err
	}

	if buildFlags.check {
		return runBuildCheck(p)
	}

	b, err := build.New(p.root)
	if err != nil {
		return err
	}

	built, err := buildTarget(cmd.Context(), b, p)
	if err != nil {
		return err
	}

	if built {
		fmt.Printf("built %s\n", p.target.OutputDir())
	} else {
		fmt.Printf("%s is up to date\n", p.target.Name)
	}
	return nil
}

func runBuildCheck(p *project) error {
	sources, err := p.resolveSources()
	if err != nil {
		return err
	}

	stale, err := build.IsStale(p.target.ManifestPath(), sources)
	if err != nil {
		return err
	}
	if stale {
		fmt.Printf("%s needs a rebuild; run 'charmsmith build'\n", p.target.Name)
		return &ExitError{Code: 1}
	}

	fmt.Printf("%s is up to date\n", p.target.Name)
	return nil
}
