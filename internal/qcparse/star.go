package qcparse

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParseSTARLog parses a STAR Log.final.out file into a key -> value map.
// Lines look like "Uniquely mapped reads % | 87.33%". Lines without the
// pipe separator (section headers) are skipped. A missing file yields an
// empty map.
func ParseSTARLog(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open STAR log: %w", err)
	}
	defer f.Close()

	out := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "|")
		if !found {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read STAR log: %w", err)
	}
	return out, nil
}
