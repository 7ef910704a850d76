package main

import (
	"github.com/spf13/cobra"

	"github.com/networkteam/goldsuite/internal/index"
	"github.com/networkteam/goldsuite/report"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var (
		dbPath     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history <node-id>",
		Short: "Show all recorded executions of one test",
		Long: `Show all recorded executions of one test. Records are read from the
per-test history file, or from the index database when --db is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID := args[0]

			var (
				records []report.TestExecutionRecord
				err     error
			)
			if dbPath != "" {
				var idx *index.Index
				idx, err = index.Open(cmd.Context(), dbPath, opts.logger)
				if err != nil {
					return err
				}
				defer idx.Close()
				records, err = idx.History(cmd.Context(), nodeID)
			} else {
				records, err = opts.store().ReadTestHistory(nodeID)
			}
			if err != nil {
				return err
			}

			r := opts.renderer(cmd)
			if jsonOutput {
				if records == nil {
					records = []report.TestExecutionRecord{}
				}
				return r.JSON(records)
			}
			return r.History(nodeID, records)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "read from this index database instead of the reports directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the records as JSON")

	return cmd
}
