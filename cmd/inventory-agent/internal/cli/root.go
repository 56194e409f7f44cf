// Package cli implements the inventory-agent command-line interface.
//
// The same binary doubles as the charm's hook implementation: invoked
// through a hooks/<name> symlink it dispatches that hook, invoked by
// name it exposes the operator subcommands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/hook"
	"github.com/charmsmith/charmsmith/internal/log"
	"github.com/charmsmith/charmsmith/pkg/config"
)

// Version and GitCommit are set at build time via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var globalFlags struct {
	verbosity int
	logFormat string
	dataDir   string
}

var rootCmd = &cobra.Command{
	Use:   "inventory-agent",
	Short: "Machine inventory collection agent",
	Long: `Inventory-agent runs the charm's collect-and-submit cycle: it gathers
hardware and system information from the machine it runs on, writes it
to a single datafile, and posts that file to the configured endpoint.

Installed into a unit it is normally invoked through hooks/<name>
symlinks; the hook subcommand runs the same dispatch by hand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("inventory-agent %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.dataDir, "data-dir", "",
		"Agent data directory (overrides config and environment)")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	log.SetVerbosity(globalFlags.verbosity)
	if globalFlags.logFormat != "" {
		log.Init(globalFlags.verbosity, globalFlags.logFormat)
	}
}

// loadConfig resolves the agent configuration once, folding the
// data-dir flag over the file and environment layers.
func loadConfig() *config.Config {
	cfg := config.Load()
	if globalFlags.dataDir != "" {
		cfg.Agent.DataDir = globalFlags.dataDir
	}
	return cfg
}

// hookInvocation reports the hook to dispatch when the binary was
// started through a hooks/<name> symlink.
func hookInvocation(argv0 string) (string, bool) {
	name := filepath.Base(argv0)
	if slices.Contains(hook.Hooks(), name) {
		return name, true
	}
	return "", false
}

// Execute runs the root command and exits the process. Hook symlink
// invocations are rewritten to the hook subcommand before dispatch.
func Execute() {
	if name, ok := hookInvocation(os.Args[0]); ok {
		rootCmd.SetArgs(append([]string{"hook", name}, os.Args[1:]...))
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root command for documentation generation.
func RootCmd() *cobra.Command {
	return rootCmd
}
