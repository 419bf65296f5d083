package runner

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zjy-dev/covmerge/internal/boundary"
	"github.com/zjy-dev/covmerge/internal/logger"
	"github.com/zjy-dev/covmerge/internal/region"
	"github.com/zjy-dev/covmerge/internal/store"
)

// ProjectRun binds everything one project's aggregation pass needs. Each
// run owns its own resolver, store, and snapshot path; nothing is shared
// between projects, so passes can run side by side.
type ProjectRun struct {
	Name     string
	Root     string
	Snapshot string
	Mode     store.Mode
	Markers  []string
	Targets  []string
	Producer Producer
}

// run executes one full pass: rehydrate the snapshot, aggregate every
// target sequentially, persist once at the end. The snapshot is only
// rewritten when the pass succeeds, so a failed pass leaves prior
// persisted state intact.
func (pr *ProjectRun) run(ctx context.Context) *Result {
	start := time.Now()
	res := &Result{Project: pr.Name}

	st, err := store.Load(pr.Snapshot, pr.Mode)
	if err != nil {
		res.Err = err
		return res
	}

	pass := &Pass{
		Project:    pr.Name,
		Producer:   pr.Producer,
		Normalizer: region.NewNormalizer(pr.Root, boundary.NewResolver(pr.Markers)),
		Store:      st,
	}

	res.Merged, res.Skipped, res.Err = pass.Run(ctx, pr.Targets)
	if res.Err != nil {
		return res
	}

	if err := st.Persist(pr.Snapshot); err != nil {
		res.Err = err
		return res
	}

	res.Metrics = st.Metrics()
	res.Elapsed = time.Since(start)
	return res
}

// RunAll executes the passes of independent projects under a bounded
// worker pool. A failing project's pass never affects the others; its
// failure is carried in its Result.
func RunAll(ctx context.Context, runs []*ProjectRun, workers int) []*Result {
	if workers <= 0 {
		workers = 1
	}

	results := make([]*Result, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pr := range runs {
		i, pr := i, pr
		g.Go(func() error {
			logger.Info("[%s] starting aggregation pass (%d targets)", pr.Name, len(pr.Targets))
			results[i] = pr.run(gctx)
			if results[i].Err != nil {
				logger.Error("[%s] pass failed: %v", pr.Name, results[i].Err)
			}
			return nil
		})
	}
	g.Wait()

	return results
}
