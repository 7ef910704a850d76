package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/networkteam/goldsuite/report"
)

func newRunsCommand(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := readRunSummaries(opts.store())
			if err != nil {
				return err
			}
			r := opts.renderer(cmd)
			if jsonOutput {
				return r.JSON(summaries)
			}
			return r.Runs(summaries)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the summaries as JSON")

	return cmd
}

// readRunSummaries loads all run summaries concurrently, keeping the order of ListRuns.
func readRunSummaries(store *report.Store) ([]report.RunSummary, error) {
	ids, err := store.ListRuns()
	if err != nil {
		return nil, err
	}

	summaries := make([]report.RunSummary, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			summary, err := store.ReadRunSummary(id)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
