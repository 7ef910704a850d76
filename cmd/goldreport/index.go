package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/networkteam/goldsuite/internal/index"
)

const defaultIndexDB = "history.db"

func newIndexCommand(opts *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Add the global history log to a SQLite index",
		Long: `Add all records of the global history log to a SQLite database. Records
already in the database are kept, so the command can run after every suite run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := index.Open(cmd.Context(), dbPath, opts.logger)
			if err != nil {
				return err
			}
			defer idx.Close()

			added, err := idx.IngestStore(cmd.Context(), opts.store())
			if err != nil {
				return err
			}
			totals, err := idx.OutcomeCounts(cmd.Context(), "")
			if err != nil {
				return err
			}

			opts.logger.Info("Indexed history", slog.String("db", dbPath), slog.Int("added", added))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %d records, %d indexed (%d passed, %d failed, %d skipped)\n",
				added, totals.Total, totals.Passed, totals.Failed, totals.Skipped)
			return err
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultIndexDB, "index database path")

	return cmd
}

func newSlowestCommand(opts *rootOptions) *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "slowest",
		Short: "List the tests with the highest average duration from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := index.Open(cmd.Context(), dbPath, opts.logger)
			if err != nil {
				return err
			}
			defer idx.Close()

			durations, err := idx.SlowestTests(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return opts.renderer(cmd).JSON(durations)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultIndexDB, "index database path")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of tests")

	return cmd
}
