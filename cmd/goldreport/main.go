// Command goldreport inspects the reports written by the acceptance suite.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/networkteam/goldsuite/config"
	"github.com/networkteam/goldsuite/internal/logging"
	"github.com/networkteam/goldsuite/internal/render"
	"github.com/networkteam/goldsuite/report"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ReportsDir string
	EnvFile    string
	LogLevel   string
	Color      string // "auto" | "always" | "never"

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "goldreport",
		Short: "Inspect acceptance suite reports",
		Long: `goldreport reads the run summaries and test histories written by the
acceptance suite. It lists runs, shows summaries and the history of single
tests, finds flaky tests, indexes the history into SQLite and uploads the
reports directory to S3.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if !cmd.Flags().Changed("reports-dir") {
				opts.ReportsDir = cfg.ReportsDir
			}
			if !cmd.Flags().Changed("log-level") {
				opts.LogLevel = cfg.LogLevel
			}
			switch opts.Color {
			case "auto", "always", "never":
			default:
				return fmt.Errorf("invalid color mode %q: must be one of auto, always, never", opts.Color)
			}

			logger, _, err := logging.New(logging.Options{Level: opts.LogLevel, Console: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ReportsDir, "reports-dir", config.DefaultReportsDir, "reports directory (default REPORTS_DIR)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "dotenv file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.Color, "color", "auto", "colored output (auto, always, never)")

	cmd.AddCommand(newRunsCommand(opts))
	cmd.AddCommand(newSummaryCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newFlakyCommand(opts))
	cmd.AddCommand(newIndexCommand(opts))
	cmd.AddCommand(newSlowestCommand(opts))
	cmd.AddCommand(newUploadCommand(opts))

	return cmd
}

func (o *rootOptions) store() *report.Store {
	return report.NewStore(o.ReportsDir)
}

func (o *rootOptions) renderer(cmd *cobra.Command) *render.Renderer {
	return render.New(cmd.OutOrStdout(), render.Options{Color: o.useColor(cmd)})
}

func (o *rootOptions) useColor(cmd *cobra.Command) bool {
	switch o.Color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
