package fixture

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Supported browser engines.
const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

// Driver launches browsers. One driver is started per session.
type Driver interface {
	Launch(options playwright.BrowserTypeLaunchOptions) (playwright.Browser, error)
	Stop() error
}

type playwrightDriver struct {
	pw          *playwright.Playwright
	browserType playwright.BrowserType
}

// StartPlaywright starts the Playwright driver process for the given browser engine.
func StartPlaywright(browser string) (Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	var browserType playwright.BrowserType
	switch browser {
	case BrowserChromium, "":
		browserType = pw.Chromium
	case BrowserFirefox:
		browserType = pw.Firefox
	case BrowserWebKit:
		browserType = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, fmt.Errorf("unsupported browser %q", browser)
	}

	return &playwrightDriver{pw: pw, browserType: browserType}, nil
}

func (d *playwrightDriver) Launch(options playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	return d.browserType.Launch(options)
}

func (d *playwrightDriver) Stop() error {
	return d.pw.Stop()
}

// InstallBrowsers downloads the driver and the given browser engine.
func InstallBrowsers(browser string) error {
	if browser == "" {
		browser = BrowserChromium
	}
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{browser}}); err != nil {
		return fmt.Errorf("installing playwright %s: %w", browser, err)
	}
	return nil
}
