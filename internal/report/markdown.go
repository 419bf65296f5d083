package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkdownReporter implements the Reporter interface by saving summaries
// as markdown files.
type MarkdownReporter struct {
	outputDir string
}

// NewMarkdownReporter creates a new MarkdownReporter.
func NewMarkdownReporter(outputDir string) *MarkdownReporter {
	return &MarkdownReporter{
		outputDir: outputDir,
	}
}

// Save writes one pass summary to a markdown file.
func (r *MarkdownReporter) Save(s *Summary) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	reportName := fmt.Sprintf("coverage_%s_%d.md", s.Project, time.Now().UnixNano())
	reportPath := filepath.Join(r.outputDir, reportName)

	var content string
	content += fmt.Sprintf("# Coverage Report: %s\n\n", s.Project)
	content += fmt.Sprintf("**Mode:** %s\n\n", s.Mode)
	content += fmt.Sprintf("**Elapsed:** %s\n\n", s.Elapsed)
	content += "## Regions\n\n"
	content += fmt.Sprintf("- Covered: %d\n", s.Metrics.CoveredRegions)
	content += fmt.Sprintf("- Total: %d\n", s.Metrics.TotalRegions)
	content += fmt.Sprintf("- Percentage: %.1f%%\n\n", s.RegionPercent())
	content += "## Lines\n\n"
	content += fmt.Sprintf("- Covered: %d\n", s.Metrics.CoveredLines)
	content += fmt.Sprintf("- Total: %d\n\n", s.Metrics.TotalLines)
	content += "## Executions\n\n"
	content += fmt.Sprintf("- Exports merged: %d\n", s.Merged)
	content += fmt.Sprintf("- Skipped runs: %d\n", s.Skipped)

	return os.WriteFile(reportPath, []byte(content), 0644)
}
