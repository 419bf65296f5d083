// Package runner executes instrumented test binaries under the profiler
// and feeds their raw coverage exports through normalization into the
// aggregate store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjy-dev/covmerge/internal/export"
	"github.com/zjy-dev/covmerge/internal/logger"
	"github.com/zjy-dev/covmerge/internal/region"
	"github.com/zjy-dev/covmerge/internal/store"
)

// ErrExportUnavailable reports that a raw coverage export could not be
// produced for one execution (tool failure, timeout). The execution
// contributes zero regions; the aggregation pass continues and records it
// as skipped.
var ErrExportUnavailable = errors.New("coverage export unavailable")

// Producer is the narrow collaborator that turns one test target into a
// raw coverage export. Implementations own process invocation; the
// aggregation engine stays independently testable with synthetic exports.
type Producer interface {
	Produce(ctx context.Context, target string) (*export.Export, error)
}

// Result summarizes one project's aggregation pass.
type Result struct {
	Project string
	Metrics store.Metrics
	Merged  int // exports merged into the store
	Skipped int // executions that produced no export
	Elapsed time.Duration
	Err     error // non-nil when the pass failed; store left unpersisted
}

// Pass aggregates the exports of one project sequentially: produce, then
// normalize, then merge, one target at a time. The store's per-pass
// contribution guard depends on this strict ordering, so a pass is never
// parallelized internally.
type Pass struct {
	Project    string
	Producer   Producer
	Normalizer *region.Normalizer
	Store      *store.Store
}

// Run executes every target and merges the surviving regions. Producer
// failures skip the target; normalization failures (unreadable source
// files) abort the pass.
func (p *Pass) Run(ctx context.Context, targets []string) (merged, skipped int, err error) {
	for _, target := range targets {
		exp, err := p.Producer.Produce(ctx, target)
		if err != nil {
			if errors.Is(err, ErrExportUnavailable) {
				logger.Warn("[%s] skipping %s: %v", p.Project, filepath.Base(target), err)
				skipped++
				continue
			}
			return merged, skipped, err
		}

		hits, err := p.Normalizer.Normalize(exp)
		if err != nil {
			return merged, skipped, fmt.Errorf("failed to normalize export for %s: %w", target, err)
		}

		p.Store.MergeExport(exp.Digest, hits)
		merged++
		logger.Debug("[%s] merged %s: %d regions", p.Project, filepath.Base(target), len(hits))
	}
	return merged, skipped, nil
}

// DiscoverTargets lists the executable regular files in dir, the layout
// cargo leaves instrumented test binaries in (target/debug/deps).
func DiscoverTargets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary directory %s: %w", dir, err)
	}

	var targets []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode()&0111 == 0 {
			continue
		}
		targets = append(targets, filepath.Join(dir, entry.Name()))
	}
	return targets, nil
}
