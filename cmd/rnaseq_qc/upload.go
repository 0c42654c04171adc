package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/rnaseq-qc/internal/client"
)

var (
	uploadServer string
	uploadSample string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <fastq> [fastq...]",
	Short: "Upload FASTQ files as a sample",
	Long:  `Upload one or more FASTQ files to the server as a named sample. Paired-end data is two files (R1, R2).`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadServer, "server", defaultServerURL(), "Base URL of the QC API")
	uploadCmd.Flags().StringVarP(&uploadSample, "sample", "s", "", "Sample name (server generates one if empty)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(_ *cobra.Command, args []string) error {
	for _, path := range args {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
	}

	c := client.New(uploadServer)
	sample, err := c.Upload(context.Background(), uploadSample, args)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Uploaded sample %q (%d files)\n", sample.Name, len(sample.Files))
	for _, f := range sample.Files {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

// defaultServerURL is the API base used when --server is not given.
func defaultServerURL() string {
	if v := os.Getenv("QC_SERVER_URL"); v != "" {
		return v
	}
	return "http://localhost:5050"
}
