package reporter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ResultsDir is where reports go when no output path is given.
const ResultsDir = "results"

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// WriteJSONReport serializes the report as indented JSON and writes it to outputPath,
// creating the parent directory when needed.
func WriteJSONReport(reportData *Report, outputPath string) error {
	jsonData, err := json.MarshalIndent(reportData, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(outputPath, jsonData, 0644)
}

// DefaultOutputPath returns results/<host-path>-<timestamp>.json for target.
func DefaultOutputPath(target string, t time.Time) string {
	name := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		name = u.Host + u.Path
	}
	name = strings.Trim(unsafePathChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "target"
	}
	return filepath.Join(ResultsDir, fmt.Sprintf("%s-%s.json", name, t.Format("20060102-150405")))
}
