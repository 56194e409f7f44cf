package cli

import (
	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/hook"
	"github.com/charmsmith/charmsmith/internal/state"
)

var hookCmd = &cobra.Command{
	Use:   "hook <name>",
	Short: "Run one charm hook",
	Long: `Runs a single charm hook against the persistent unit state, exactly as
the hooks/<name> symlinks do.

Collection and submission failures are reported through unit status and
retried by a later update-status hook, so transient machine problems
never leave the unit in a hook-error state.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: hook.Hooks(),
	RunE:      runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	st, err := state.Open(cfg.StateDBPath())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	m := hook.New(st, cfg)
	return m.Dispatch(cmd.Context(), args[0])
}
