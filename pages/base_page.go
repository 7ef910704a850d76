// Package pages contains page objects for the gold shop UI. Locators use the
// data-testid attributes of the application.
package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// BasePage holds helpers shared by all page objects.
type BasePage struct {
	Page playwright.Page
}

// NewBasePage wraps page.
func NewBasePage(page playwright.Page) BasePage {
	return BasePage{Page: page}
}

// TestID returns a locator for the element with the given data-testid.
func (p BasePage) TestID(id string) playwright.Locator {
	return p.Page.Locator(fmt.Sprintf(`[data-testid="%s"]`, id))
}

// WaitForURLContains waits until the page URL contains text.
func (p BasePage) WaitForURLContains(text string) error {
	if err := p.Page.WaitForURL("**" + text + "**"); err != nil {
		return fmt.Errorf("waiting for URL containing %q: %w", text, err)
	}
	return nil
}

func (p BasePage) waitForNetworkIdle() error {
	return p.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
}

func waitVisible(l playwright.Locator) error {
	return l.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	})
}
