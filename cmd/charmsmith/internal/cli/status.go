package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/build"
	"github.com/charmsmith/charmsmith/pkg/charm"
)

var statusFlags struct {
	verbose bool
	json    bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the charm build is up to date",
	Long: `Shows the build state of the charm against its declared sources.

Compares the build manifest timestamp with every declared source to
report which files would trigger a rebuild.

The --verbose flag lists every declared source.
The --json flag outputs the result as JSON for scripting.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.verbose, "verbose", false,
		"List every declared source, not just the stale ones")
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// StatusOutput is the JSON output format for charmsmith status.
type StatusOutput struct {
	Name         string   `json:"name"`
	Series       string   `json:"series"`
	Framework    string   `json:"framework"`
	OutputDir    string   `json:"output_dir"`
	Built        bool     `json:"built"`
	Stale        bool     `json:"stale"`
	Sources      int      `json:"sources"`
	StaleSources []string `json:"stale_sources,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := resolveProject()
	if err != nil {
		return err
	}

	out := StatusOutput{
		Name:      p.target.Name,
		Series:    p.target.Series,
		Framework: string(charm.DetectFramework(p.root)),
		OutputDir: p.target.OutputDir(),
	}

	sources, err := p.resolveSources()
	if err != nil {
		if statusFlags.json {
			out.Stale = true
			out.Error = err.Error()
			return outputJSON(out)
		}
		return err
	}
	out.Sources = len(sources)

	manifest := p.target.ManifestPath()
	if _, err := os.Stat(manifest); err == nil {
		out.Built = true
	}

	stale, err := build.StaleSources(manifest, sources)
	if err != nil {
		if statusFlags.json {
			out.Error = err.Error()
			return outputJSON(out)
		}
		return err
	}
	out.Stale = len(stale) > 0
	for _, s := range stale {
		out.StaleSources = append(out.StaleSources, relPath(p.root, s))
	}

	if statusFlags.json {
		return outputJSON(out)
	}

	// Text output
	if statusFlags.verbose {
		fmt.Printf("%s charm, declared sources (%d):\n", out.Framework, out.Sources)
		for _, s := range sources {
			fmt.Printf("  %s\n", relPath(p.root, s))
		}
		fmt.Println()
	}

	if !out.Built {
		fmt.Printf("%s has never been built. Run 'charmsmith build'.\n", out.Name)
		return nil
	}

	if !out.Stale {
		fmt.Printf("%s is up to date (%d sources)\n", out.Name, out.Sources)
		return nil
	}

	fmt.Printf("%s is stale (%d of %d sources changed):\n", out.Name, len(out.StaleSources), out.Sources)
	for _, s := range out.StaleSources {
		fmt.Printf("  ~ %s\n", s)
	}
	fmt.Println("\nRun 'charmsmith build' to rebuild")
	return nil
}

// relPath shortens a source path for display, falling back to the
// absolute path when it does not sit under the project root.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || filepath.IsAbs(rel) {
		return path
	}
	return rel
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
