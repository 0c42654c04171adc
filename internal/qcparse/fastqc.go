// Package qcparse extracts metrics from the text and JSON reports written
// by the external QC tools (FastQC, fastp, STAR).
package qcparse

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseFastQCSummary parses a FastQC summary.txt into a module -> status
// map (PASS/WARN/FAIL). A missing file yields an empty map, not an error:
// FastQC output is best-effort data for the status view.
func ParseFastQCSummary(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open fastqc summary: %w", err)
	}
	defer f.Close()

	out := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if len(parts) >= 3 {
			out[parts[1]] = parts[0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fastqc summary: %w", err)
	}
	return out, nil
}

// ParseFastQCReportHTML extracts the module statuses from a FastQC HTML
// report. Used as a fallback when FastQC ran without --extract and no
// summary.txt exists. The report's summary sidebar lists one entry per
// module with the status encoded in the icon's alt text ("[PASS]" etc).
func ParseFastQCReportHTML(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open fastqc report: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fastqc report: %w", err)
	}

	out := map[string]string{}
	doc.Find("div.summary li").Each(func(_ int, sel *goquery.Selection) {
		module := strings.TrimSpace(sel.Find("a").Text())
		alt, _ := sel.Find("img").Attr("alt")
		status := strings.Trim(strings.TrimSpace(alt), "[]")
		if module != "" && status != "" {
			out[module] = status
		}
	})
	return out, nil
}

// FastQCMetrics reads the module statuses for one FastQC invocation,
// preferring the extracted summary.txt and falling back to the HTML report.
func FastQCMetrics(summaryPath, htmlPath string) (map[string]string, error) {
	metrics, err := ParseFastQCSummary(summaryPath)
	if err != nil {
		return nil, err
	}
	if len(metrics) > 0 {
		return metrics, nil
	}
	return ParseFastQCReportHTML(htmlPath)
}
