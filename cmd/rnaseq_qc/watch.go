package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/rnaseq-qc/internal/client"
	"github.com/jonathan/rnaseq-qc/internal/observability"
	"github.com/jonathan/rnaseq-qc/internal/types"
)

var watchServer string

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Poll a run and render its status until it finishes",
	Long:  `Poll the status endpoint every 2 seconds and rewrite the full status view on each snapshot, stopping when the run reaches a terminal state.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchCmd,
}

func init() {
	watchCmd.Flags().StringVar(&watchServer, "server", defaultServerURL(), "Base URL of the QC API")
	rootCmd.AddCommand(watchCmd)
}

func runWatchCmd(_ *cobra.Command, args []string) error {
	return watchJob(client.New(watchServer), args[0])
}

// watchJob is the polling session shared by `watch` and `run --watch`.
// The poller owns the job target and snapshot; each accepted snapshot
// rewrites the whole status view.
func watchJob(c *client.Client, jobID string) error {
	printer := observability.NewPrinter(os.Stdout)

	poller := client.NewPoller(c, 0, func(job *types.Job) {
		fmt.Println()
		printer.PrintJob(job, c.ArtifactURL)
	})

	final, err := poller.WatchSync(context.Background(), jobID)
	if err != nil {
		// Polling stops on failure; the last rendered snapshot stands.
		return fmt.Errorf("polling stopped: %w", err)
	}

	if final != nil && final.Status.Normalize() == types.StatusFailed {
		return fmt.Errorf("job %s failed", jobID)
	}
	fmt.Printf("Job %s finished\n", jobID)
	return nil
}
