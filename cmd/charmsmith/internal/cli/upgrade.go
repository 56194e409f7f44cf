package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/build"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Build the charm and upgrade the deployed application",
	Long: `Builds the charm if needed, then upgrades the already-deployed
application in place from the output directory.

The upgrade step never runs when the build step fails.`,
	RunE: runUpgrade,
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	p, err := resolveProject()
	if err != nil {
		return err
	}

	b, err := build.New(p.root)
	if err != nil {
		return err
	}
	c, err := p.newJujuClient()
	if err != nil {
		return err
	}

	if err := upgradeTarget(cmd.Context(), b, c, p); err != nil {
		return err
	}

	fmt.Printf("upgraded %s from %s\n", p.target.Name, p.target.OutputDir())
	return nil
}
