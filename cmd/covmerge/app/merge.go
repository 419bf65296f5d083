package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covmerge/internal/boundary"
	"github.com/zjy-dev/covmerge/internal/config"
	"github.com/zjy-dev/covmerge/internal/export"
	"github.com/zjy-dev/covmerge/internal/logger"
	"github.com/zjy-dev/covmerge/internal/region"
	"github.com/zjy-dev/covmerge/internal/report"
	"github.com/zjy-dev/covmerge/internal/store"
)

// NewMergeCommand creates the "merge" subcommand.
func NewMergeCommand() *cobra.Command {
	var (
		root      string
		snapshot  string
		mode      string
		markers   []string
		reportDir string
		project   string
	)

	cmd := &cobra.Command{
		Use:   "merge <export.json>...",
		Short: "Merge raw coverage export files into a snapshot.",
		Long: `Merge one or more raw llvm-cov JSON export files into the persisted
aggregate snapshot, then print the resulting metrics.

Each export file holds the coverage of one test binary execution. Regions
belonging to files outside the project root, and functions whose regions
reach past a file's test-section marker, are excluded before merging.

Configuration:
  Defaults are loaded from configs/covmerge.yaml when present.
  Command line flags override the config file values.

Examples:
  # Merge two runs into the project snapshot (boolean coverage)
  covmerge merge --root /work/crate --snapshot state/total.json run1.json run2.json

  # Accumulate raw hit counts instead
  covmerge merge --root /work/crate --snapshot state/total.json --mode count run1.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadOrDefaultConfig()
			logger.Init(cfg.LogLevel)

			if !cmd.Flags().Changed("mode") {
				mode = cfg.Mode
			}
			if !cmd.Flags().Changed("markers") {
				markers = cfg.Markers
			}
			if root == "" {
				return fmt.Errorf("project root is required (--root)")
			}
			if snapshot == "" {
				return fmt.Errorf("snapshot path is required (--snapshot)")
			}

			storeMode, err := store.ParseMode(mode)
			if err != nil {
				return err
			}

			summary, err := mergeFiles(project, root, snapshot, storeMode, markers, args)
			if err != nil {
				return err
			}

			fmt.Println(summary.Line())
			if reportDir != "" {
				if err := report.NewMarkdownReporter(reportDir).Save(summary); err != nil {
					return fmt.Errorf("failed to save report: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Project root; coverage outside it is excluded")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Persisted aggregate snapshot path")
	cmd.Flags().StringVar(&mode, "mode", "bool", "Accumulation mode: bool or count")
	cmd.Flags().StringSliceVar(&markers, "markers", nil, "Test-section marker substrings")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory for markdown summaries (optional)")
	cmd.Flags().StringVar(&project, "project", "project", "Project name used in reports")

	return cmd
}

// mergeFiles runs one aggregation pass over already-produced export files.
func mergeFiles(project, root, snapshot string, mode store.Mode, markers, files []string) (*report.Summary, error) {
	st, err := store.Load(snapshot, mode)
	if err != nil {
		return nil, err
	}

	normalizer := region.NewNormalizer(root, boundary.NewResolver(markers))

	merged, skipped := 0, 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Warn("skipping %s: %v", file, err)
			skipped++
			continue
		}
		exp, err := export.Parse(data)
		if err != nil {
			logger.Warn("skipping %s: %v", file, err)
			skipped++
			continue
		}

		hits, err := normalizer.Normalize(exp)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s: %w", file, err)
		}
		st.MergeExport(exp.Digest, hits)
		merged++
	}

	if err := st.Persist(snapshot); err != nil {
		return nil, err
	}

	return &report.Summary{
		Project: project,
		Mode:    mode,
		Metrics: st.Metrics(),
		Merged:  merged,
		Skipped: skipped,
	}, nil
}

// loadOrDefaultConfig loads the main config, falling back to defaults when
// no config file is present so flag-only invocations keep working.
func loadOrDefaultConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}
	return cfg
}
