// Package goldsuite runs browser tests against the gold shop and records one result
// per test in the reports directory.
//
// A test binary creates one Instance in TestMain, hands control to Instance.Main and
// wraps every browser test body with Instance.Test:
//
//	var suite *goldsuite.Instance
//
//	func TestMain(m *testing.M) {
//		suite = goldsuite.MustNew()
//		os.Exit(suite.Main(m))
//	}
//
//	func TestBuyGold(t *testing.T) {
//		suite.Test(t, func(t *goldsuite.T, page playwright.Page) {
//			...
//		})
//	}
package goldsuite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/goldsuite/collector"
	"github.com/networkteam/goldsuite/config"
	"github.com/networkteam/goldsuite/fixture"
	"github.com/networkteam/goldsuite/internal/logging"
	"github.com/networkteam/goldsuite/internal/upload"
	"github.com/networkteam/goldsuite/report"
	"github.com/networkteam/goldsuite/stamp"
)

// Exit statuses set by the harness itself. Regular runs keep the status of m.Run().
const (
	ExitInterrupted   = 2
	ExitInternalError = 3
)

// DefaultSuiteName prefixes node ids.
const DefaultSuiteName = "acceptance"

// Runner runs the tests of a test binary. *testing.M implements it.
type Runner interface {
	Run() int
}

// Uploader copies the reports directory to remote storage.
type Uploader interface {
	UploadDir(ctx context.Context, dir string) (int, error)
}

type Instance struct {
	config *config.Config
	suite  string
	logger *slog.Logger

	store      *report.Store
	run        *collector.Run
	reconciler *collector.Reconciler
	dispatcher *collector.Dispatcher
	session    *fixture.Session
	uploader   Uploader

	closers    []func() error
	finishOnce sync.Once
	summary    report.RunSummary
	progress   sync.WaitGroup
	exit       func(code int)
}

type Options struct {
	// Config holds the suite settings.
	// Default: config.Default()
	Config *config.Config
	// SuiteName is the first part of every node id.
	// Default: DefaultSuiteName
	SuiteName string
	// Logger receives harness messages.
	// Default: slog.Default()
	Logger *slog.Logger
	// Clock provides run and record timestamps.
	// Default: stamp.SystemClock
	Clock stamp.Clock

	// StartDriver, Prober and Login replace the browser collaborators of the session.
	// Default: see fixture.Options
	StartDriver func() (fixture.Driver, error)
	Prober      fixture.ProbeFunc
	Login       fixture.LoginFunc

	// Uploader receives the reports directory when the run is finished.
	// Default: nil, no upload
	Uploader Uploader
	// Listeners receive every phase report in addition to the reconciler.
	Listeners []collector.Listener
	// Exit ends the process after an interrupted run was finished.
	// Default: os.Exit
	Exit func(code int)
}

// New creates an instance from the environment and the .env file in the working
// directory. Logs go to stderr and to harness.log in the reports directory.
func New() (*Instance, error) {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level: cfg.LogLevel,
		File:  filepath.Join(cfg.ReportsDir, "harness.log"),
	})
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	var uploader Uploader
	if cfg.S3.Enabled() {
		s3Uploader, err := upload.NewS3Uploader(upload.Options{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			EndpointURL:     cfg.S3.EndpointURL,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			Logger:          logger,
		})
		if err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("setting up report upload: %w", err)
		}
		uploader = s3Uploader
	}

	i := NewWithOptions(Options{
		Config:   cfg,
		Logger:   logger,
		Uploader: uploader,
	})
	i.closers = append(i.closers, closeLog)
	return i, nil
}

// MustNew is like New but exits the process on error.
func MustNew() *Instance {
	i, err := New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "goldsuite: %v\n", err)
		os.Exit(ExitInternalError)
	}
	return i
}

// NewWithOptions creates an instance with the specified options. The run starts now.
func NewWithOptions(options Options) *Instance {
	cfg := options.Config
	if cfg == nil {
		cfg = config.Default()
	}
	suite := options.SuiteName
	if suite == "" {
		suite = DefaultSuiteName
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exit := options.Exit
	if exit == nil {
		exit = os.Exit
	}

	store := report.NewStoreWithOptions(cfg.ReportsDir, report.StoreOptions{Logger: logger})
	run := collector.NewRun(collector.RunOptions{
		Clock:  options.Clock,
		Writer: store,
	})
	reconciler := collector.NewReconciler(run, collector.ReconcilerOptions{
		Sink: store,
		Environment: func() report.Environment {
			return report.CaptureEnvironment(cfg.BaseURL, cfg.HeadlessRaw)
		},
		Clock:  options.Clock,
		Logger: logger,
	})

	dispatcher := collector.NewDispatcher()
	dispatcher.Register(reconciler)
	for _, l := range options.Listeners {
		dispatcher.Register(l)
	}

	session := fixture.NewSession(fixture.Options{
		BaseURL:     cfg.BaseURL,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Browser:     cfg.Browser,
		Headless:    cfg.Headless(),
		SlowMo:      cfg.SlowMo,
		Timeout:     cfg.Timeout,
		Prober:      options.Prober,
		Login:       options.Login,
		StartDriver: options.StartDriver,
		Logger:      logger,
	})

	i := &Instance{
		config:     cfg,
		suite:      suite,
		logger:     logger.With("run_id", run.ID()),
		store:      store,
		run:        run,
		reconciler: reconciler,
		dispatcher: dispatcher,
		session:    session,
		uploader:   options.Uploader,
		exit:       exit,
	}
	i.logProgress()

	return i
}

// Config returns the suite settings.
func (i *Instance) Config() *config.Config {
	return i.config
}

// Run returns the run that collects the records.
func (i *Instance) Run() *collector.Run {
	return i.run
}

// Store returns the report store.
func (i *Instance) Store() *report.Store {
	return i.store
}

// Session returns the browser session.
func (i *Instance) Session() *fixture.Session {
	return i.session
}

// Subscribe returns a channel that receives every record as soon as it is written.
func (i *Instance) Subscribe(ctx context.Context) <-chan report.TestExecutionRecord {
	return i.reconciler.Subscribe(ctx)
}

// NodeID returns the node id of a test.
func (i *Instance) NodeID(t testing.TB) string {
	return i.suite + "::" + t.Name()
}

// Main runs the tests and finishes the run. It returns the exit status for os.Exit.
// SIGINT and SIGTERM finish the run with ExitInterrupted and exit immediately; a panic
// outside of test bodies finishes it with ExitInternalError.
func (i *Instance) Main(m Runner) (code int) {
	ctx := context.Background()

	stopSignals := i.handleSignals(ctx)
	defer stopSignals()

	defer func() {
		if r := recover(); r != nil {
			i.logger.ErrorContext(ctx, "Internal error", "panic", r, "stack", string(debug.Stack()))
			code = ExitInternalError
		}
		i.finish(ctx, code)
	}()

	if err := i.store.Prepare(); err != nil {
		i.logger.ErrorContext(ctx, "Failed to prepare reports directory", "err", err)
	}

	if i.config.InstallBrowsers {
		if err := fixture.InstallBrowsers(i.config.Browser); err != nil {
			i.logger.ErrorContext(ctx, "Failed to install browsers", "err", err)
			return ExitInternalError
		}
	}

	i.logger.InfoContext(ctx, "Starting run",
		"base_url", i.config.BaseURL,
		"browser", i.config.Browser,
		"headless", i.config.Headless(),
	)

	return m.Run()
}

// Summary returns the summary of the finished run.
func (i *Instance) Summary() report.RunSummary {
	return i.summary
}

func (i *Instance) handleSignals(ctx context.Context) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			i.logger.WarnContext(ctx, "Interrupted, finishing run", "signal", sig.String())
			if i.finish(ctx, ExitInterrupted) {
				i.exit(ExitInterrupted)
			}
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// finish finalizes pending tests, writes the run summary, uploads the reports and
// releases the browser. Only the first call has an effect and returns true; later
// calls wait for it to complete.
func (i *Instance) finish(ctx context.Context, exitStatus int) (finished bool) {
	i.finishOnce.Do(func() {
		finished = true

		if flushed := i.reconciler.Flush(ctx); len(flushed) > 0 {
			i.logger.WarnContext(ctx, "Recorded unfinished tests", "count", len(flushed))
		}

		summary, err := i.run.Finish(exitStatus)
		if err != nil {
			i.logger.ErrorContext(ctx, "Failed to write run summary", "err", err)
		}
		i.summary = summary

		if err := i.session.Close(); err != nil {
			i.logger.WarnContext(ctx, "Failed to close browser session", "err", err)
		}

		i.reconciler.Close()
		i.progress.Wait()

		i.logger.InfoContext(ctx, "Run finished",
			"exitstatus", exitStatus,
			"total", summary.Totals.Total,
			"passed", summary.Totals.Passed,
			"failed", summary.Totals.Failed,
			"skipped", summary.Totals.Skipped,
			"summary", i.store.RunSummaryPath(summary.RunID),
		)

		if i.uploader != nil {
			if _, err := i.uploader.UploadDir(ctx, i.store.Root()); err != nil {
				i.logger.ErrorContext(ctx, "Failed to upload reports", "err", err)
			}
		}

		for _, closeFn := range i.closers {
			_ = closeFn()
		}
	})
	return finished
}

func (i *Instance) logProgress() {
	records := i.reconciler.Subscribe(context.Background())
	i.progress.Add(1)
	go func() {
		defer i.progress.Done()
		for rec := range records {
			attrs := []any{
				"node_id", rec.NodeID,
				"outcome", rec.Outcome,
				"duration", time.Duration(rec.DurationSeconds * float64(time.Second)).Round(time.Millisecond),
			}
			if rec.Outcome == report.OutcomeFailed {
				i.logger.Warn("Test finished", attrs...)
				continue
			}
			i.logger.Info("Test finished", attrs...)
		}
	}()
}

// Test runs body with an authenticated page as a suite test. It reports the setup,
// call and teardown phases, so exactly one record is written for t.
//
// An unreachable base URL or missing credentials skip the test. Any other setup error
// fails it before body runs. Resources are released in reverse order after body
// returns, fails or panics.
func (i *Instance) Test(t *testing.T, body func(t *T, page playwright.Page)) {
	t.Helper()

	nodeID := i.NodeID(t)
	scope := fixture.NewScope()
	defer i.teardown(t, nodeID, scope)

	page, err := i.setup(t.Context(), nodeID, scope)
	if skipErr, ok := fixture.AsSkip(err); ok {
		t.Skip(skipErr.Reason)
	}
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	console := fixture.WatchConsole(page, fixture.DefaultConsoleCapacity)
	i.call(t, nodeID, page, console, body)
}

// setup acquires the authenticated page and reports the setup phase. A panic while
// acquiring it is reported as a failed setup.
func (i *Instance) setup(ctx context.Context, nodeID string, scope *fixture.Scope) (page playwright.Page, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}

		rep := collector.PhaseReport{
			NodeID:   nodeID,
			Phase:    collector.PhaseSetup,
			Outcome:  report.OutcomePassed,
			Duration: time.Since(start),
		}
		skipErr, skipped := fixture.AsSkip(err)
		switch {
		case skipped:
			rep.Outcome = report.OutcomeSkipped
			rep.Failure = skipErr.Reason
		case err != nil:
			rep.Outcome = report.OutcomeFailed
			rep.Failure = err
		}
		i.dispatcher.Dispatch(ctx, rep)
	}()

	return i.session.AuthenticatedPage(ctx, scope)
}

func (i *Instance) call(t *testing.T, nodeID string, page playwright.Page, console *fixture.ConsoleLog, body func(t *T, page playwright.Page)) {
	wt := newT(t)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			wt.Errorf("panic: %v\n%s", r, debug.Stack())
		}

		rep := collector.PhaseReport{
			NodeID:   nodeID,
			Phase:    collector.PhaseCall,
			Outcome:  report.OutcomePassed,
			Duration: time.Since(start),
		}
		switch {
		case t.Failed():
			rep.Outcome = report.OutcomeFailed
			rep.Failure = wt.failure()
			if lines := console.Lines(); len(lines) > 0 {
				i.logger.Warn("Browser console of failed test",
					slog.String("node_id", nodeID),
					slog.Any("console", lines),
					slog.Int("dropped", console.Dropped()),
				)
			}
		case t.Skipped():
			rep.Outcome = report.OutcomeSkipped
		}
		i.dispatcher.Dispatch(context.Background(), rep)
	}()

	body(wt, page)
}

func (i *Instance) teardown(t *testing.T, nodeID string, scope *fixture.Scope) {
	start := time.Now()
	err := scope.Release()

	rep := collector.PhaseReport{
		NodeID:   nodeID,
		Phase:    collector.PhaseTeardown,
		Outcome:  report.OutcomePassed,
		Duration: time.Since(start),
	}
	if err != nil {
		rep.Outcome = report.OutcomeFailed
		rep.Failure = err
		t.Errorf("teardown: %v", err)
	}
	i.dispatcher.Dispatch(context.Background(), rep)
}
