package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/rnaseq-qc/internal/client"
	"github.com/jonathan/rnaseq-qc/internal/observability"
)

var runsServer string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List all pipeline runs",
	RunE:  runListRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsServer, "server", defaultServerURL(), "Base URL of the QC API")
	rootCmd.AddCommand(runsCmd)
}

func runListRuns(_ *cobra.Command, _ []string) error {
	c := client.New(runsServer)

	runs, err := c.ListRuns(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	observability.NewPrinter(os.Stdout).PrintRunList(runs)
	return nil
}
