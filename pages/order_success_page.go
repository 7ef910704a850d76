package pages

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// OrderSuccessPage is the receipt shown after a successful purchase.
type OrderSuccessPage struct {
	BasePage
	Title   playwright.Locator
	OrderNo playwright.Locator
}

// NewOrderSuccessPage creates the page object for page.
func NewOrderSuccessPage(page playwright.Page) *OrderSuccessPage {
	base := NewBasePage(page)
	return &OrderSuccessPage{
		BasePage: base,
		Title:    base.TestID("order-success-title"),
		OrderNo:  base.TestID("order-id"),
	}
}

// ExpectSuccess waits for the success title.
func (p *OrderSuccessPage) ExpectSuccess() error {
	if err := waitVisible(p.Title); err != nil {
		return fmt.Errorf("waiting for order success: %w", err)
	}
	return nil
}

// OrderID returns the trimmed order id.
func (p *OrderSuccessPage) OrderID() (string, error) {
	if err := waitVisible(p.OrderNo); err != nil {
		return "", fmt.Errorf("waiting for order id: %w", err)
	}
	text, err := p.OrderNo.InnerText()
	if err != nil {
		return "", fmt.Errorf("reading order id: %w", err)
	}
	return strings.TrimSpace(text), nil
}
