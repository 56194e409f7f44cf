package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/inventory"
	"github.com/charmsmith/charmsmith/internal/state"
)

var statusFlags struct {
	json bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent's unit state",
	Long: `Shows the reactive flags, the recorded packages, the last collection
run, and whether a datafile is present.

The --json flag outputs the result as JSON for scripting.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false, "Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// StatusOutput is the JSON output format for inventory-agent status.
type StatusOutput struct {
	Flags     []string           `json:"flags"`
	DataFile  string             `json:"data_file"`
	Collected bool               `json:"collected"`
	SubmitURL string             `json:"submit_url,omitempty"`
	Packages  []string           `json:"packages,omitempty"`
	LastRun   *inventory.RunMeta `json:"last_run,omitempty"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	st, err := state.Open(cfg.StateDBPath())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	flags, err := st.Flags()
	if err != nil {
		return err
	}
	packages, err := st.RecordedPackages()
	if err != nil {
		return err
	}

	meta, err := inventory.NewMetaStore(cfg.Agent.DataDir).Load()
	if err != nil {
		return err
	}

	datafile := inventory.DataFilePath(cfg.Agent.DataDir)
	_, statErr := os.Stat(datafile)

	out := StatusOutput{
		Flags:     flags,
		DataFile:  datafile,
		Collected: statErr == nil,
		SubmitURL: cfg.Agent.SubmitURL,
		Packages:  packages,
		LastRun:   meta,
	}

	if statusFlags.json {
		return outputJSON(out)
	}

	if len(out.Flags) == 0 {
		fmt.Println("flags: (none)")
	} else {
		fmt.Printf("flags: %s\n", strings.Join(out.Flags, ", "))
	}
	if out.Collected {
		fmt.Printf("datafile: %s\n", out.DataFile)
	} else {
		fmt.Printf("datafile: %s (not collected yet)\n", out.DataFile)
	}
	if out.SubmitURL != "" {
		fmt.Printf("submit endpoint: %s\n", out.SubmitURL)
	} else {
		fmt.Println("submit endpoint: (unconfigured)")
	}
	if len(out.Packages) > 0 {
		fmt.Printf("recorded packages: %s\n", strings.Join(out.Packages, ", "))
	}
	if out.LastRun != nil {
		fmt.Printf("last run: %s at %s (%d entries, %d changed)\n",
			out.LastRun.ID,
			out.LastRun.FinishedAt.Format(time.RFC3339),
			len(out.LastRun.Digests),
			len(out.LastRun.Changed))
	}
	return nil
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
