// Package report renders aggregation pass summaries.
package report

import (
	"fmt"
	"time"

	"github.com/zjy-dev/covmerge/internal/store"
)

// Summary describes the outcome of one project's aggregation pass.
type Summary struct {
	Project string
	Mode    store.Mode
	Metrics store.Metrics
	Merged  int
	Skipped int
	Elapsed time.Duration
}

// Reporter defines the interface for saving pass summaries.
type Reporter interface {
	// Save persists one pass summary.
	Save(s *Summary) error
}

// RegionPercent is the covered/total region percentage, 0 when empty.
func (s *Summary) RegionPercent() float64 {
	if s.Metrics.TotalRegions == 0 {
		return 0
	}
	return float64(s.Metrics.CoveredRegions) / float64(s.Metrics.TotalRegions) * 100
}

// Line renders the one-line text form printed after every pass.
func (s *Summary) Line() string {
	return fmt.Sprintf("%s: %d/%d regions (%.1f%%), %d/%d lines, %d exports merged, %d skipped",
		s.Project,
		s.Metrics.CoveredRegions, s.Metrics.TotalRegions, s.RegionPercent(),
		s.Metrics.CoveredLines, s.Metrics.TotalLines,
		s.Merged, s.Skipped)
}
