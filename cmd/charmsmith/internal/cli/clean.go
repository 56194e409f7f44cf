package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/build"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the charm build output",
	Long: `Removes the target's entire output directory, forcing the next build
to run from scratch. An output directory that never existed is not an
error.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	p, err := resolveProject()
	if err != nil {
		return err
	}

	if err := build.Clean(p.target); err != nil {
		return err
	}

	fmt.Printf("removed %s\n", p.target.OutputDir())
	return nil
}
