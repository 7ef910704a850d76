// Package fakebrowser provides in-memory stand-ins for the Playwright driver, browser,
// context and page. Only the methods used by the fixture chain are implemented; every
// other method panics through the embedded nil interface.
package fakebrowser

import (
	"fmt"
	"slices"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/networkteam/goldsuite/fixture"
)

// Log records lifecycle calls in order.
type Log struct {
	mu     sync.Mutex
	events []string
}

func (l *Log) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := make([]string, len(l.events))
	copy(events, l.events)
	return events
}

// Driver is a fake fixture.Driver.
type Driver struct {
	Log *Log
	// LaunchErr is returned by Launch when set.
	LaunchErr error
	// GotoErr is returned by every page's Goto when set.
	GotoErr error
	// CloseErr is returned by every page's Close when set.
	CloseErr error

	mu       sync.Mutex
	launches int
	options  []playwright.BrowserTypeLaunchOptions
	pages    int
}

var _ fixture.Driver = (*Driver)(nil)

// New creates a driver with a fresh log.
func New() *Driver {
	return &Driver{Log: &Log{}}
}

// Start returns d and can be used as fixture.Options.StartDriver.
func (d *Driver) Start() (fixture.Driver, error) {
	d.Log.add("driver start")
	return d, nil
}

// Launches returns how often Launch was called.
func (d *Driver) Launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

// LaunchOptions returns the options of every Launch call.
func (d *Driver) LaunchOptions() []playwright.BrowserTypeLaunchOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]playwright.BrowserTypeLaunchOptions(nil), d.options...)
}

func (d *Driver) Launch(options playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	d.mu.Lock()
	d.launches++
	d.options = append(d.options, options)
	d.mu.Unlock()

	d.Log.add("browser launch")
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	return &browser{driver: d}, nil
}

func (d *Driver) Stop() error {
	d.Log.add("driver stop")
	return nil
}

func (d *Driver) nextPage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages++
	return d.pages
}

type browser struct {
	playwright.Browser
	driver *Driver
}

func (b *browser) NewContext(_ ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	b.driver.Log.add("context open")
	return &browserContext{driver: b.driver}, nil
}

func (b *browser) Close(_ ...playwright.BrowserCloseOptions) error {
	b.driver.Log.add("browser close")
	return nil
}

type browserContext struct {
	playwright.BrowserContext
	driver *Driver
}

func (c *browserContext) NewPage() (playwright.Page, error) {
	n := c.driver.nextPage()
	c.driver.Log.add("page %d open", n)
	return &Page{driver: c.driver, n: n}, nil
}

func (c *browserContext) Close(_ ...playwright.BrowserContextCloseOptions) error {
	c.driver.Log.add("context close")
	return nil
}

// Page is a fake playwright.Page.
type Page struct {
	playwright.Page
	driver *Driver
	n      int

	mu          sync.Mutex
	onConsole   []func(playwright.ConsoleMessage)
	onPageError []func(error)
}

// NewPage returns a page that is not attached to a driver. Only the event methods
// may be used on it.
func NewPage() *Page {
	return &Page{}
}

func (p *Page) OnConsole(fn func(playwright.ConsoleMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConsole = append(p.onConsole, fn)
}

func (p *Page) OnPageError(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPageError = append(p.onPageError, fn)
}

// EmitConsole delivers a console message of the given type to the registered handlers.
func (p *Page) EmitConsole(typ, text string) {
	p.mu.Lock()
	handlers := slices.Clone(p.onConsole)
	p.mu.Unlock()
	for _, fn := range handlers {
		fn(consoleMessage{typ: typ, text: text})
	}
}

// EmitPageError delivers an uncaught page error to the registered handlers.
func (p *Page) EmitPageError(err error) {
	p.mu.Lock()
	handlers := slices.Clone(p.onPageError)
	p.mu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}

type consoleMessage struct {
	playwright.ConsoleMessage
	typ, text string
}

func (m consoleMessage) Type() string { return m.typ }
func (m consoleMessage) Text() string { return m.text }

func (p *Page) SetDefaultTimeout(timeout float64) {
	p.driver.Log.add("page %d timeout %.0f", p.n, timeout)
}

func (p *Page) Goto(url string, _ ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.driver.Log.add("page %d goto %s", p.n, url)
	return nil, p.driver.GotoErr
}

func (p *Page) URL() string {
	return fmt.Sprintf("fake://page/%d", p.n)
}

func (p *Page) Close(_ ...playwright.PageCloseOptions) error {
	p.driver.Log.add("page %d close", p.n)
	return p.driver.CloseErr
}
