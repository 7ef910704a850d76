package main

import (
	"github.com/spf13/cobra"

	"github.com/networkteam/goldsuite/report"
)

func newFlakyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flaky",
		Short: "List tests that both passed and failed in the global history log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := opts.store().ReadHistoryLog()
			if err != nil {
				return err
			}
			return opts.renderer(cmd).Flaky(report.Analyze(records))
		},
	}
}
