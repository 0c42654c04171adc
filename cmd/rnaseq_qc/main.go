// Package main provides the entry point for the RNA-seq QC service CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rnaseq_qc",
	Short: "RNA-seq QC pipeline service",
	Long:  "rnaseq_qc runs an RNA-seq quality-control pipeline (FastQC, fastp, STAR, featureCounts) behind a REST API, and drives it from the command line: upload samples, start runs, watch progress, and build reports.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
