// Package fixture provisions browser resources for tests: one driver and browser per
// session, a fresh context and page per test, and an authenticated page behind
// reachability and credential checks.
package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/goldsuite/pages"
	"github.com/networkteam/goldsuite/probe"
)

// ProbeFunc reports whether rawURL accepts TCP connections.
type ProbeFunc func(ctx context.Context, rawURL string) bool

// LoginFunc signs in on page, which shows the application's entry page.
type LoginFunc func(page playwright.Page, username, password string) error

// Options configures a Session.
type Options struct {
	// BaseURL is the entry URL of the application under test.
	BaseURL string
	// Username and Password are used for login. Empty values skip authenticated tests.
	Username string
	Password string

	// Browser selects the engine for StartPlaywright.
	// Default: chromium
	Browser string
	// Headless runs the browser without a window.
	Headless bool
	// SlowMo delays every browser operation.
	SlowMo time.Duration
	// Timeout is the default timeout for page operations.
	// Default: 30s
	Timeout time.Duration

	// Prober checks reachability of BaseURL.
	// Default: probe.Reachable with probe.DefaultTimeout
	Prober ProbeFunc
	// Login signs in on the entry page.
	// Default: pages.Login
	Login LoginFunc
	// StartDriver starts the browser driver on first use.
	// Default: StartPlaywright(Browser)
	StartDriver func() (Driver, error)
	// Logger receives lifecycle messages.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultTimeout is the page timeout if none is configured.
const DefaultTimeout = 30 * time.Second

// Session owns the driver and browser shared by all tests of a test binary run.
type Session struct {
	options Options
	logger  *slog.Logger

	mu        sync.Mutex
	started   bool
	driver    Driver
	browser   playwright.Browser
	launchErr error
}

// NewSession creates a session. Nothing is started until a browser is needed.
func NewSession(options Options) *Session {
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.Prober == nil {
		options.Prober = func(ctx context.Context, rawURL string) bool {
			return probe.Reachable(ctx, rawURL, probe.DefaultTimeout)
		}
	}
	if options.Login == nil {
		options.Login = pages.Login
	}
	if options.StartDriver == nil {
		browser := options.Browser
		options.StartDriver = func() (Driver, error) {
			return StartPlaywright(browser)
		}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		options: options,
		logger:  logger.With("component", "fixture"),
	}
}

// Browser returns the session browser, starting the driver and launching the browser
// on the first call. A launch failure is remembered and returned on every later call.
func (s *Session) Browser() (playwright.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return s.browser, s.launchErr
	}
	s.started = true

	driver, err := s.options.StartDriver()
	if err != nil {
		s.launchErr = fmt.Errorf("starting browser driver: %w", err)
		return nil, s.launchErr
	}
	s.driver = driver

	browser, err := driver.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.options.Headless),
		SlowMo:   playwright.Float(float64(s.options.SlowMo.Milliseconds())),
	})
	if err != nil {
		s.launchErr = fmt.Errorf("launching browser: %w", err)
		return nil, s.launchErr
	}
	s.browser = browser

	s.logger.Debug("Browser launched",
		"browser", s.options.Browser,
		"headless", s.options.Headless,
		"slow_mo", s.options.SlowMo,
	)

	return browser, nil
}

// NewContext creates an isolated browser context that is closed when scope is released.
func (s *Session) NewContext(scope *Scope) (playwright.BrowserContext, error) {
	browser, err := s.Browser()
	if err != nil {
		return nil, err
	}

	bctx, err := browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	scope.Defer("browser context", func() error {
		return bctx.Close()
	})

	return bctx, nil
}

// NewPage creates a page in a fresh context with the configured default timeout. The
// page closes before its context when scope is released.
func (s *Session) NewPage(scope *Scope) (playwright.Page, error) {
	bctx, err := s.NewContext(scope)
	if err != nil {
		return nil, err
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	scope.Defer("page", func() error {
		return page.Close()
	})
	page.SetDefaultTimeout(float64(s.options.Timeout.Milliseconds()))

	return page, nil
}

// AuthenticatedPage returns a page that navigated to the base URL and signed in.
// It returns a SkipError when the base URL is unreachable or the credentials are
// empty; no browser resources are created in that case.
func (s *Session) AuthenticatedPage(ctx context.Context, scope *Scope) (playwright.Page, error) {
	if !s.options.Prober(ctx, s.options.BaseURL) {
		return nil, Skip(UnreachableReason(s.options.BaseURL))
	}
	if s.options.Username == "" || s.options.Password == "" {
		return nil, Skip(MissingCredentialsReason)
	}

	page, err := s.NewPage(scope)
	if err != nil {
		return nil, err
	}

	if _, err := page.Goto(s.options.BaseURL); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", s.options.BaseURL, err)
	}
	if err := s.options.Login(page, s.options.Username, s.options.Password); err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", s.options.Username, err)
	}

	return page, nil
}

// Close closes the browser and stops the driver. It is safe to call Close on a
// session that never started a browser.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := NewScope()
	if s.driver != nil {
		driver := s.driver
		scope.Defer("browser driver", driver.Stop)
	}
	if s.browser != nil {
		browser := s.browser
		scope.Defer("browser", func() error {
			return browser.Close()
		})
	}
	s.driver = nil
	s.browser = nil

	return scope.Release()
}
