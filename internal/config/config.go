// Package config provides configuration loading and validation for the
// server and pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the runtime configuration for the QC service. Values are
// read from the environment (a .env file is loaded by the CLI entry point)
// and fall back to the documented defaults.
type Config struct {
	// APIPort is the port the HTTP API listens on.
	APIPort int

	// QCRoot is the working directory for per-job pipeline output.
	QCRoot string

	// StorageRoot holds uploaded FASTQ files and long-lived artifacts.
	StorageRoot string

	// STARGenomeDir is the prebuilt STAR genome index directory.
	STARGenomeDir string

	// GTFPath is the annotation file passed to featureCounts.
	GTFPath string

	// DBPath is the sqlite database file.
	DBPath string

	// Threads is the worker count passed to fastp, STAR, and featureCounts.
	Threads int
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		APIPort:       5050,
		QCRoot:        "/data/qc",
		StorageRoot:   "/data/storage",
		STARGenomeDir: "/refs/star_index",
		GTFPath:       "/refs/genomic.gtf",
		DBPath:        filepath.Join("db", "rnaseq.sqlite"),
		Threads:       4,
	}

	if v := os.Getenv("API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid API_PORT %q: %w", v, err)
		}
		cfg.APIPort = port
	}
	if v := os.Getenv("QC_ROOT"); v != "" {
		cfg.QCRoot = v
	}
	if v := os.Getenv("STORAGE_ROOT"); v != "" {
		cfg.StorageRoot = v
	}
	if v := os.Getenv("STAR_GENOME_DIR"); v != "" {
		cfg.STARGenomeDir = v
	}
	if v := os.Getenv("GTF_PATH"); v != "" {
		cfg.GTFPath = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PIPELINE_THREADS"); v != "" {
		threads, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PIPELINE_THREADS %q: %w", v, err)
		}
		cfg.Threads = threads
	}

	return cfg, nil
}

// UploadDir returns the directory uploaded sample files are stored under.
func (c *Config) UploadDir() string {
	return filepath.Join(c.StorageRoot, "uploads")
}

// ArtifactsDir returns the directory for long-lived artifacts.
func (c *Config) ArtifactsDir() string {
	return filepath.Join(c.StorageRoot, "artifacts")
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("config error: API_PORT must be between 1 and 65535, got %d", c.APIPort)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("config error: PIPELINE_THREADS must be positive, got %d", c.Threads)
	}
	if c.QCRoot == "" || c.StorageRoot == "" {
		return fmt.Errorf("config error: QC_ROOT and STORAGE_ROOT must not be empty")
	}
	return nil
}

// EnsureDirs creates the working directories the service writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.UploadDir(), c.ArtifactsDir(), c.QCRoot, filepath.Dir(c.DBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
