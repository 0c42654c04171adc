package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/rnaseq-qc/internal/client"
	"github.com/jonathan/rnaseq-qc/internal/render"
)

var (
	reportServer string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report <job-id>",
	Short: "Write an HTML report for a finished run",
	Long:  `Fetch the full run record and write a self-contained HTML report with stage metrics, QC plot galleries, and artifact download links.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportServer, "server", defaultServerURL(), "Base URL of the QC API")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "report.html", "Output file")
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, args []string) error {
	c := client.New(reportServer)

	job, err := c.Run(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch run: %w", err)
	}

	f, err := os.Create(reportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", reportOut, err)
	}
	defer f.Close()

	if err := render.JobReport(f, job, c.ArtifactURL); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", reportOut)
	return nil
}
