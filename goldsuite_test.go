package goldsuite_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/goldsuite"
	"github.com/networkteam/goldsuite/collector"
	"github.com/networkteam/goldsuite/config"
	"github.com/networkteam/goldsuite/internal/fakebrowser"
	"github.com/networkteam/goldsuite/internal/logging"
	"github.com/networkteam/goldsuite/report"
)

type fakeUploader struct {
	mu   sync.Mutex
	dirs []string
}

func (u *fakeUploader) UploadDir(_ context.Context, dir string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dirs = append(u.dirs, dir)
	return 0, nil
}

type runnerFunc func() int

func (f runnerFunc) Run() int { return f() }

type phaseLog struct {
	mu      sync.Mutex
	reports []collector.PhaseReport
}

func (l *phaseLog) PhaseCompleted(_ context.Context, rep collector.PhaseReport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports = append(l.reports, rep)
}

func (l *phaseLog) phases() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var phases []string
	for _, r := range l.reports {
		phases = append(phases, string(r.Phase)+":"+string(r.Outcome))
	}
	return phases
}

type testSuite struct {
	*goldsuite.Instance
	driver   *fakebrowser.Driver
	uploader *fakeUploader
	phases   *phaseLog
}

func newTestSuite(t *testing.T, reachable bool, mutate func(*config.Config), configure ...func(*goldsuite.Options)) *testSuite {
	t.Helper()

	cfg := config.Default()
	cfg.ReportsDir = t.TempDir()
	cfg.BaseURL = "http://shop.test:3000"
	cfg.Username = "alice"
	cfg.Password = "s3cret"
	if mutate != nil {
		mutate(cfg)
	}

	driver := fakebrowser.New()
	uploader := &fakeUploader{}
	phases := &phaseLog{}

	options := goldsuite.Options{
		Config: cfg,
		Logger: logging.Discard(),
		Prober: func(context.Context, string) bool { return reachable },
		Login: func(playwright.Page, string, string) error {
			return nil
		},
		StartDriver: driver.Start,
		Uploader:    uploader,
		Listeners:   []collector.Listener{phases},
	}
	for _, fn := range configure {
		fn(&options)
	}
	inst := goldsuite.NewWithOptions(options)

	return &testSuite{Instance: inst, driver: driver, uploader: uploader, phases: phases}
}

// runIsolated runs fn as a separate top-level test, so its failure does not fail the
// calling test. It reports whether fn passed.
func runIsolated(name string, fn func(t *testing.T)) bool {
	return testing.RunTests(func(_, _ string) (bool, error) { return true, nil },
		[]testing.InternalTest{{Name: name, F: fn}})
}

func onlyRecord(t *testing.T, s *testSuite) report.TestExecutionRecord {
	t.Helper()
	records := s.Run().Records()
	require.Len(t, records, 1)
	return records[0]
}

func interrupt() error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	return p.Signal(os.Interrupt)
}

func TestInstance_PassingTest(t *testing.T) {
	s := newTestSuite(t, true, nil)

	var gotPage playwright.Page
	ok := t.Run("by amount", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			gotPage = page
			assert.NotNil(t, page)
			page.(*fakebrowser.Page).EmitConsole("log", "dashboard ready")
		})
	})
	require.True(t, ok)
	require.NotNil(t, gotPage)

	records := s.Run().Records()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "acceptance::TestInstance_PassingTest/by_amount", rec.NodeID)
	assert.Equal(t, report.OutcomePassed, rec.Outcome)
	assert.Nil(t, rec.ErrorDetail)
	assert.Equal(t, "http://shop.test:3000", rec.Environment.BaseURL)
	assert.Equal(t, "true", rec.Environment.Headless)

	assert.Equal(t, []string{"setup:passed", "call:passed", "teardown:passed"}, s.phases.phases())

	events := s.driver.Log.Events()
	assert.Contains(t, events, "page 1 goto http://shop.test:3000")
	assert.Equal(t, []string{"page 1 close", "context close"}, events[len(events)-2:])

	history, err := s.Store().ReadTestHistory(rec.NodeID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	logged, err := s.Store().ReadHistoryLog()
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestInstance_UnreachableSkips(t *testing.T) {
	s := newTestSuite(t, false, nil)

	bodyRan := false
	t.Run("by grams", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			bodyRan = true
		})
	})

	assert.False(t, bodyRan)
	assert.Empty(t, s.driver.Log.Events(), "no browser for skipped tests")
	assert.Equal(t, []string{"setup:skipped", "teardown:passed"}, s.phases.phases())

	records := s.Run().Records()
	require.Len(t, records, 1)
	assert.Equal(t, report.OutcomeSkipped, records[0].Outcome)
	assert.Nil(t, records[0].ErrorDetail)
}

func TestInstance_MissingCredentialsSkip(t *testing.T) {
	s := newTestSuite(t, true, func(c *config.Config) {
		c.Password = ""
	})

	t.Run("insufficient funds", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			t.Error("must not run")
		})
	})

	records := s.Run().Records()
	require.Len(t, records, 1)
	assert.Equal(t, report.OutcomeSkipped, records[0].Outcome)
	assert.NotContains(t, s.driver.Log.Events(), "page 1 goto http://shop.test:3000")
}

func TestInstance_SkipInBody(t *testing.T) {
	s := newTestSuite(t, true, nil)

	t.Run("feature flag off", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			t.Skip("buy by grams disabled")
		})
	})

	assert.Equal(t, []string{"setup:passed", "call:skipped", "teardown:passed"}, s.phases.phases())
	records := s.Run().Records()
	require.Len(t, records, 1)
	assert.Equal(t, report.OutcomeSkipped, records[0].Outcome)

	events := s.driver.Log.Events()
	assert.Contains(t, events, "context close", "resources released after skip")
}

func TestInstance_OneRecordPerTest(t *testing.T) {
	s := newTestSuite(t, true, nil)

	names := []string{"amount", "grams", "insufficient"}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			s.Test(t, func(t *goldsuite.T, page playwright.Page) {})
		})
	}

	records := s.Run().Records()
	require.Len(t, records, len(names))
	for i, name := range names {
		assert.Equal(t, "acceptance::TestInstance_OneRecordPerTest/"+name, records[i].NodeID)
	}
	assert.Equal(t, 1, s.driver.Launches())
}

func TestInstance_Main(t *testing.T) {
	s := newTestSuite(t, true, nil)

	code := s.Main(runnerFunc(func() int {
		t.Run("amount", func(t *testing.T) {
			s.Test(t, func(t *goldsuite.T, page playwright.Page) {})
		})
		return 1
	}))
	assert.Equal(t, 1, code)

	summary := s.Summary()
	assert.Equal(t, 1, summary.ExitStatus)
	assert.Equal(t, report.Totals{Total: 1, Passed: 1}, summary.Totals)
	assert.True(t, s.Run().Finished())

	data, err := os.ReadFile(s.Store().RunSummaryPath(summary.RunID))
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, float64(1), written["exitstatus"])
	assert.Equal(t, summary.RunID, written["run_id"])

	assert.Equal(t, []string{s.Config().ReportsDir}, s.uploader.dirs)

	events := s.driver.Log.Events()
	assert.Equal(t, []string{"browser close", "driver stop"}, events[len(events)-2:])

	assert.DirExists(t, s.Store().TestsDir())
}

func TestInstance_MainEmptyRun(t *testing.T) {
	s := newTestSuite(t, true, nil)

	code := s.Main(runnerFunc(func() int { return 5 }))
	assert.Equal(t, 5, code)

	summary, err := s.Store().ReadRunSummary(s.Run().ID())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.ExitStatus)
	assert.Equal(t, 0, summary.Totals.Total)
	assert.Empty(t, s.driver.Log.Events(), "browser never started")
}

func TestInstance_MainRecoversPanic(t *testing.T) {
	s := newTestSuite(t, true, nil)

	code := s.Main(runnerFunc(func() int {
		panic("listener exploded")
	}))
	assert.Equal(t, goldsuite.ExitInternalError, code)

	summary, err := s.Store().LatestRunSummary()
	require.NoError(t, err)
	assert.Equal(t, goldsuite.ExitInternalError, summary.ExitStatus)
}

func TestInstance_NodeID(t *testing.T) {
	s := goldsuite.NewWithOptions(goldsuite.Options{
		SuiteName: "smoke",
		Config:    &config.Config{ReportsDir: t.TempDir()},
		Logger:    logging.Discard(),
	})
	assert.Equal(t, "smoke::TestInstance_NodeID", s.NodeID(t))
}

func TestInstance_FailingBody(t *testing.T) {
	s := newTestSuite(t, true, nil)

	passed := runIsolated("TestBuyGold_WrongBalance", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			page.(*fakebrowser.Page).EmitConsole("error", "quote request failed")
			t.Errorf("wallet balance = %s", "0.00")
			t.Error("order id", "missing")
		})
	})
	assert.False(t, passed)

	rec := onlyRecord(t, s)
	assert.Equal(t, "acceptance::TestBuyGold_WrongBalance", rec.NodeID)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "wallet balance = 0.00\norder id missing", *rec.ErrorDetail)
	assert.Equal(t, []string{"setup:passed", "call:failed", "teardown:passed"}, s.phases.phases())
	assert.Contains(t, s.driver.Log.Events(), "context close")
}

func TestInstance_FailingRequire(t *testing.T) {
	s := newTestSuite(t, true, nil)

	reached := false
	passed := runIsolated("TestBuyGold_NoOrderID", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			require.True(t, false, "order id missing")
			reached = true
		})
	})
	assert.False(t, passed)
	assert.False(t, reached)

	rec := onlyRecord(t, s)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Contains(t, *rec.ErrorDetail, "Should be true")
	assert.Contains(t, *rec.ErrorDetail, "order id missing")
}

func TestInstance_FailingWithoutMessage(t *testing.T) {
	s := newTestSuite(t, true, nil)

	runIsolated("TestBuyGold_Silent", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			t.Fail()
		})
	})

	rec := onlyRecord(t, s)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "TestBuyGold_Silent failed without an error message", *rec.ErrorDetail)
}

func TestInstance_BodyPanic(t *testing.T) {
	s := newTestSuite(t, true, nil)

	passed := runIsolated("TestBuyGold_Panics", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			panic("price element detached")
		})
	})
	assert.False(t, passed)

	rec := onlyRecord(t, s)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Contains(t, *rec.ErrorDetail, "panic: price element detached")
	assert.Equal(t, []string{"setup:passed", "call:failed", "teardown:passed"}, s.phases.phases())

	events := s.driver.Log.Events()
	assert.Equal(t, []string{"page 1 close", "context close"}, events[len(events)-2:])
}

func TestInstance_SetupError(t *testing.T) {
	s := newTestSuite(t, true, nil)
	s.driver.GotoErr = errors.New("net::ERR_CONNECTION_RESET")

	bodyRan := false
	passed := runIsolated("TestBuyGold_NavigationFails", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {
			bodyRan = true
		})
	})
	assert.False(t, passed)
	assert.False(t, bodyRan)

	rec := onlyRecord(t, s)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "navigating to http://shop.test:3000: net::ERR_CONNECTION_RESET", *rec.ErrorDetail)
	assert.Equal(t, []string{"setup:failed", "teardown:passed"}, s.phases.phases())

	events := s.driver.Log.Events()
	assert.Equal(t, []string{"page 1 close", "context close"}, events[len(events)-2:])
}

func TestInstance_TeardownError(t *testing.T) {
	s := newTestSuite(t, true, nil)
	s.driver.CloseErr = errors.New("target closed")

	passed := runIsolated("TestBuyGold_CloseFails", func(t *testing.T) {
		s.Test(t, func(t *goldsuite.T, page playwright.Page) {})
	})
	assert.False(t, passed)

	rec := onlyRecord(t, s)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Equal(t, "closing page: target closed", *rec.ErrorDetail)
	assert.Equal(t, []string{"setup:passed", "call:passed", "teardown:failed"}, s.phases.phases())
	assert.Contains(t, s.driver.Log.Events(), "context close", "later releases still run")
}

func TestInstance_SetupPanic(t *testing.T) {
	s := newTestSuite(t, true, nil, func(o *goldsuite.Options) {
		o.Login = func(playwright.Page, string, string) error {
			panic("login collaborator blew up")
		}
	})

	bodyRan := false
	code := s.Main(runnerFunc(func() int {
		if runIsolated("TestBuyGold_LoginPanics", func(t *testing.T) {
			s.Test(t, func(t *goldsuite.T, page playwright.Page) {
				bodyRan = true
			})
		}) {
			return 0
		}
		return 1
	}))
	assert.Equal(t, 1, code)
	assert.False(t, bodyRan)

	rec := onlyRecord(t, s)
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	require.NotNil(t, rec.ErrorDetail)
	assert.Contains(t, *rec.ErrorDetail, "panic: login collaborator blew up")
	assert.Equal(t, []string{"setup:failed", "teardown:passed"}, s.phases.phases())

	summary, err := s.Store().ReadRunSummary(s.Run().ID())
	require.NoError(t, err)
	assert.Equal(t, report.Totals{Total: 1, Failed: 1}, summary.Totals)

	events := s.driver.Log.Events()
	assert.Contains(t, events, "page 1 close")
	assert.Contains(t, events, "context close")
	assert.Equal(t, []string{"browser close", "driver stop"}, events[len(events)-2:])
}

func TestInstance_MainInterrupted(t *testing.T) {
	exits := make(chan int, 1)
	s := newTestSuite(t, true, nil, func(o *goldsuite.Options) {
		o.Exit = func(code int) { exits <- code }
	})

	s.Main(runnerFunc(func() int {
		t.Run("amount", func(t *testing.T) {
			s.Test(t, func(t *goldsuite.T, page playwright.Page) {})
		})
		if !assert.NoError(t, interrupt()) {
			return 0
		}
		select {
		case code := <-exits:
			assert.Equal(t, goldsuite.ExitInterrupted, code)
		case <-time.After(5 * time.Second):
			assert.Fail(t, "run was not interrupted")
		}
		return 0
	}))

	summary, err := s.Store().ReadRunSummary(s.Run().ID())
	require.NoError(t, err)
	assert.Equal(t, goldsuite.ExitInterrupted, summary.ExitStatus)
	assert.Equal(t, report.Totals{Total: 1, Passed: 1}, summary.Totals)
}

type interruptingUploader struct{}

func (interruptingUploader) UploadDir(context.Context, string) (int, error) {
	if err := interrupt(); err != nil {
		return 0, err
	}
	// Give the signal handler time to wait for the running finish.
	time.Sleep(200 * time.Millisecond)
	return 0, nil
}

func TestInstance_InterruptWhileFinishing(t *testing.T) {
	exits := make(chan int, 1)
	s := newTestSuite(t, true, nil, func(o *goldsuite.Options) {
		o.Uploader = interruptingUploader{}
		o.Exit = func(code int) { exits <- code }
	})

	code := s.Main(runnerFunc(func() int { return 1 }))
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, s.Summary().ExitStatus)

	select {
	case code := <-exits:
		t.Errorf("exited with %d after the run was finished", code)
	case <-time.After(200 * time.Millisecond):
	}
}
