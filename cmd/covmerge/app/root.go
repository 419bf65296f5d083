package app

import (
	"github.com/spf13/cobra"
)

// NewCovmergeCommand creates the root command for the covmerge tool.
func NewCovmergeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covmerge",
		Short: "Aggregate per-run coverage exports into persistent metrics.",
		Long: `Covmerge turns raw llvm-cov region exports from independent test runs
into a stable, incrementally mergeable coverage measurement, excluding
generated test code from the count.`,
	}

	cmd.AddCommand(NewMergeCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewReportCommand())

	return cmd
}
