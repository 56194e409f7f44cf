package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/charmsmith/charmsmith/internal/inventory"
	"github.com/charmsmith/charmsmith/internal/submit"
)

var submitFlags struct {
	url string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the collected datafile now",
	Long: `POSTs the datafile to the submit endpoint with the same retry policy
the hooks use. Fails when no datafile has been collected yet.`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitFlags.url, "url", "",
		"Submit endpoint (overrides config and environment)")

	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()

	url := cfg.Agent.SubmitURL
	if submitFlags.url != "" {
		url = submitFlags.url
	}
	if url == "" {
		return errors.New("no submit endpoint configured (set agent.submit_url, CHARMSMITH_SUBMIT_URL, or --url)")
	}

	s := submit.New(url,
		submit.WithTimeout(time.Duration(cfg.Agent.SubmitTimeoutSeconds)*time.Second))

	datafile := inventory.DataFilePath(cfg.Agent.DataDir)
	if err := s.SubmitFile(cmd.Context(), datafile); err != nil {
		return err
	}

	fmt.Printf("submitted %s to %s\n", datafile, url)
	return nil
}
