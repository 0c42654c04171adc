package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/rnaseq-qc/internal/client"
	"github.com/jonathan/rnaseq-qc/internal/types"
)

var (
	runServer  string
	runSample  string
	runFiles   []string
	runThreads int
	runMinLen  int
	runAdapter string
	runWatch   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a pipeline run for an uploaded sample",
	Long:  `Start the QC pipeline for a previously uploaded sample. Pass --watch to poll the run until it finishes.`,
	RunE:  runStart,
}

func init() {
	runCmd.Flags().StringVar(&runServer, "server", defaultServerURL(), "Base URL of the QC API")
	runCmd.Flags().StringVarP(&runSample, "sample", "s", "", "Sample name (required)")
	runCmd.Flags().StringSliceVar(&runFiles, "file", nil, "Stored file paths returned by upload (required)")
	runCmd.Flags().IntVar(&runThreads, "threads", 0, "Worker threads for fastp/STAR/featureCounts")
	runCmd.Flags().IntVar(&runMinLen, "min-read-length", 0, "Minimum read length kept by fastp")
	runCmd.Flags().StringVar(&runAdapter, "adapter", "", "Adapter sequence passed to fastp")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "Poll the run until it finishes")
	_ = runCmd.MarkFlagRequired("sample")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}

func runStart(_ *cobra.Command, _ []string) error {
	c := client.New(runServer)

	jobID, err := c.StartRun(context.Background(), types.Sample{
		Name:  runSample,
		Files: runFiles,
	}, types.RunParams{
		Threads:       runThreads,
		MinReadLength: runMinLen,
		Adapter:       runAdapter,
	})
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	fmt.Printf("Started job %s\n", jobID)
	if !runWatch {
		fmt.Printf("Follow it with: rnaseq_qc watch %s\n", jobID)
		return nil
	}
	return watchJob(c, jobID)
}
