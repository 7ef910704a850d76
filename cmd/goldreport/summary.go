package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/networkteam/goldsuite/report"
)

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "summary [run-id]",
		Short: "Show the summary of a run (default: the latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := opts.store()

			var (
				summary report.RunSummary
				err     error
			)
			if len(args) == 1 {
				summary, err = store.ReadRunSummary(args[0])
			} else {
				summary, err = store.LatestRunSummary()
			}
			if errors.Is(err, report.ErrNoRuns) {
				return fmt.Errorf("%w in %s", err, store.Root())
			}
			if err != nil {
				return err
			}

			r := opts.renderer(cmd)
			if jsonOutput {
				return r.JSON(summary)
			}
			return r.Summary(summary)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the summary as JSON")

	return cmd
}
