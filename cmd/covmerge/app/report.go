package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covmerge/internal/report"
	"github.com/zjy-dev/covmerge/internal/store"
)

// NewReportCommand creates the "report" subcommand.
func NewReportCommand() *cobra.Command {
	var (
		snapshot  string
		mode      string
		project   string
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print metrics from an existing snapshot.",
		Long: `Load a persisted aggregate snapshot and print its coverage metrics
without merging anything.

Examples:
  covmerge report --snapshot state/total.json
  covmerge report --snapshot state/total.json --report-dir reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if snapshot == "" {
				return fmt.Errorf("snapshot path is required (--snapshot)")
			}

			storeMode, err := store.ParseMode(mode)
			if err != nil {
				return err
			}

			st, err := store.Load(snapshot, storeMode)
			if err != nil {
				return err
			}

			summary := &report.Summary{
				Project: project,
				Mode:    storeMode,
				Metrics: st.Metrics(),
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

	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Persisted aggregate snapshot path")
	cmd.Flags().StringVar(&mode, "mode", "bool", "Accumulation mode: bool or count")
	cmd.Flags().StringVar(&project, "project", "project", "Project name used in reports")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory for markdown summaries (optional)")

	return cmd
}
