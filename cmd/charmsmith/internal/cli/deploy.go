package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/build"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build the charm and deploy it with juju",
	Long: `Builds the charm if needed, then deploys the output directory as a new
application with the configured placement and application config file.

The deploy step never runs when the build step fails.`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
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

	if err := deployTarget(cmd.Context(), b, c, p); err != nil {
		return err
	}

	fmt.Printf("deployed %s from %s\n", p.target.Name, p.target.OutputDir())
	return nil
}
