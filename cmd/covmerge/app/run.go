package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covmerge/internal/config"
	"github.com/zjy-dev/covmerge/internal/exec"
	"github.com/zjy-dev/covmerge/internal/logger"
	"github.com/zjy-dev/covmerge/internal/report"
	"github.com/zjy-dev/covmerge/internal/runner"
	"github.com/zjy-dev/covmerge/internal/store"
)

// NewRunCommand creates the "run" subcommand.
func NewRunCommand() *cobra.Command {
	var (
		workers int
		timeout int
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute instrumented test binaries and aggregate their coverage.",
		Long: `Execute every configured project's instrumented test binaries under the
profiler and merge the resulting coverage into each project's snapshot.

This command:
  1. Discovers test binaries per project (explicit targets or binary_dir)
  2. Runs each binary with an isolated profile artifact and a hard timeout
  3. Exports the raw coverage via llvm-profdata / llvm-cov
  4. Normalizes, filters, and merges regions into the project snapshot
  5. Prints one metrics line per project

Independent projects aggregate in parallel under a bounded worker pool;
one project's failure never aborts the others.

Configuration:
  Projects, toolchain paths and defaults come from configs/covmerge.yaml.
  Command line flags override the config file values.

Examples:
  # Aggregate all configured projects
  covmerge run

  # Raise parallelism and lower the per-run timeout
  covmerge run --workers 16 --timeout 60`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Init(cfg.LogLevel)

			if !cmd.Flags().Changed("workers") {
				workers = cfg.Workers
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = cfg.Timeout
			}
			if !cmd.Flags().Changed("mode") {
				mode = cfg.Mode
			}

			storeMode, err := store.ParseMode(mode)
			if err != nil {
				return err
			}
			if len(cfg.Projects) == 0 {
				return fmt.Errorf("no projects configured")
			}

			return runProjects(cfg, storeMode, workers, time.Duration(timeout)*time.Second)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 8, "Parallel project passes")
	cmd.Flags().IntVar(&timeout, "timeout", 120, "Per-execution timeout in seconds")
	cmd.Flags().StringVar(&mode, "mode", "bool", "Accumulation mode: bool or count")

	return cmd
}

func runProjects(cfg *config.Config, mode store.Mode, workers int, timeout time.Duration) error {
	executor := exec.NewCommandExecutor()

	runs := make([]*runner.ProjectRun, 0, len(cfg.Projects))
	reportDirs := make([]string, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		targets := p.Targets
		if len(targets) == 0 && p.BinaryDir != "" {
			discovered, err := runner.DiscoverTargets(p.BinaryDir)
			if err != nil {
				return fmt.Errorf("failed to discover targets for %s: %w", p.Name, err)
			}
			targets = discovered
		}
		if len(targets) == 0 {
			logger.Warn("[%s] no test binaries found, skipping project", p.Name)
			continue
		}

		workDir := p.BinaryDir
		if workDir == "" {
			workDir = p.Root
		}

		runs = append(runs, &runner.ProjectRun{
			Name:     p.Name,
			Root:     p.Root,
			Snapshot: p.Snapshot,
			Mode:     mode,
			Markers:  cfg.Markers,
			Targets:  targets,
			Producer: runner.NewLLVMProducer(executor, cfg.Tools.Profdata, cfg.Tools.Cov, workDir, timeout),
		})
		reportDirs = append(reportDirs, p.ReportDir)
	}

	results := runner.RunAll(context.Background(), runs, workers)

	failed := 0
	for i, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		summary := &report.Summary{
			Project: res.Project,
			Mode:    mode,
			Metrics: res.Metrics,
			Merged:  res.Merged,
			Skipped: res.Skipped,
			Elapsed: res.Elapsed,
		}
		fmt.Println(summary.Line())

		if dir := reportDirs[i]; dir != "" {
			if err := report.NewMarkdownReporter(dir).Save(summary); err != nil {
				logger.Warn("[%s] failed to save report: %v", res.Project, err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d project passes failed", failed, len(results))
	}
	return nil
}
