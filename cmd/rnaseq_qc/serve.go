package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/rnaseq-qc/internal/config"
	"github.com/jonathan/rnaseq-qc/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QC API server",
	Long:  `Start the HTTP server that accepts sample uploads, runs the QC pipeline, and serves job status and artifacts.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default API_PORT or 5050)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if servePort != 0 {
		cfg.APIPort = servePort
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
