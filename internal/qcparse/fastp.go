package qcparse

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed fastp_report.schema.json
var fastpReportSchema string

// fastpParseNote is the placeholder metric recorded when the fastp report
// is missing or malformed; the trimming stage still completes.
var fastpParseNote = map[string]any{"note": "could not parse fastp json"}

// FastpSummary reads a fastp JSON report, validates it against the bundled
// schema, and returns its "summary" section. Any failure degrades to a
// note metric rather than an error: the report is informational and must
// never fail the trimming stage.
func FastpSummary(path string) map[string]any {
	data, err := os.ReadFile(path)
	if err != nil {
		return fastpParseNote
	}

	if err := validateFastpReport(data); err != nil {
		return fastpParseNote
	}

	var report struct {
		Summary map[string]any `json:"summary"`
	}
	if err := json.Unmarshal(data, &report); err != nil || report.Summary == nil {
		return fastpParseNote
	}
	return report.Summary
}

// validateFastpReport checks the raw report against the fastp schema.
func validateFastpReport(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(fastpReportSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("failed to validate fastp report: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("fastp report does not match schema: %v", result.Errors())
	}
	return nil
}
