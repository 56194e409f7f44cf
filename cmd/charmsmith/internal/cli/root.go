// Package cli implements the charmsmith command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/log"
	"github.com/charmsmith/charmsmith/internal/runner"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	name      string
	series    string
	project   string
}

// ExitError carries a specific process exit code out of a command. An
// empty Message means the command already said what it had to say.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "charmsmith",
	Short: "Charm build and deployment orchestrator",
	Long: `Charmsmith rebuilds a reactive charm when its declared sources change,
and hands the build output to juju for deployment and upgrades.

Staleness is decided from file timestamps against the build manifest;
a fresh manifest makes every build-requesting command a no-op.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Default behavior: show help
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("charmsmith %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.name, "name", "",
		"Charm name (overrides config, environment, and metadata)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.series, "series", "",
		"Target series (overrides config, environment, and metadata)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.project, "project", "",
		"Charm project root (default: current directory)")

	// Hook to apply flags before command runs
	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger.
// This runs after flags are parsed but before command execution.
func initLogging() {
	log.SetVerbosity(globalFlags.verbosity)
	if globalFlags.logFormat != "" {
		log.Init(globalFlags.verbosity, globalFlags.logFormat)
	}
}

// Execute runs the root command. A failing external tool's own exit
// code becomes the process exit code; everything else exits 1.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(os.Stderr, exitErr.Message)
		}
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit code: an explicit
// ExitError wins, then the failed child process's own exit status,
// then 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if code := runner.ExitCode(err); code > 0 {
		return code
	}
	return 1
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
