package pages

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// BuyGoldPage is the purchase screen. Amount and grams are alternative inputs; the
// application derives the other value from the live price.
type BuyGoldPage struct {
	BasePage
	Nav           playwright.Locator
	AmountInput   playwright.Locator
	GramsInput    playwright.Locator
	PricePerGram  playwright.Locator
	TotalPayable  playwright.Locator
	ConfirmButton playwright.Locator
	ErrorBox      playwright.Locator
}

// NewBuyGoldPage creates the page object for page.
func NewBuyGoldPage(page playwright.Page) *BuyGoldPage {
	base := NewBasePage(page)
	return &BuyGoldPage{
		BasePage:      base,
		Nav:           base.TestID("nav-buy-gold"),
		AmountInput:   base.TestID("buy-amount"),
		GramsInput:    base.TestID("buy-grams"),
		PricePerGram:  base.TestID("price-per-gram"),
		TotalPayable:  base.TestID("total-payable"),
		ConfirmButton: base.TestID("buy-confirm"),
		ErrorBox:      base.TestID("buy-error"),
	}
}

// Open navigates to the purchase screen through the navigation entry.
func (p *BuyGoldPage) Open() error {
	if err := p.Nav.Click(); err != nil {
		return fmt.Errorf("opening buy gold: %w", err)
	}
	if err := p.waitForNetworkIdle(); err != nil {
		return fmt.Errorf("waiting for buy gold page: %w", err)
	}
	return nil
}

// BuyByAmount enters a currency amount.
func (p *BuyGoldPage) BuyByAmount(amount string) error {
	if err := p.AmountInput.Fill(amount); err != nil {
		return fmt.Errorf("filling amount: %w", err)
	}
	return nil
}

// BuyByGrams enters a weight in grams.
func (p *BuyGoldPage) BuyByGrams(grams string) error {
	if err := p.GramsInput.Fill(grams); err != nil {
		return fmt.Errorf("filling grams: %w", err)
	}
	return nil
}

// Confirm submits the purchase.
func (p *BuyGoldPage) Confirm() error {
	if err := p.ConfirmButton.Click(); err != nil {
		return fmt.Errorf("confirming purchase: %w", err)
	}
	return nil
}

// ErrorText waits for the error box and returns its text.
func (p *BuyGoldPage) ErrorText() (string, error) {
	if err := waitVisible(p.ErrorBox); err != nil {
		return "", fmt.Errorf("waiting for purchase error: %w", err)
	}
	text, err := p.ErrorBox.InnerText()
	if err != nil {
		return "", fmt.Errorf("reading purchase error: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ExpectErrorContains waits for the error box and checks that it mentions text,
// ignoring case.
func (p *BuyGoldPage) ExpectErrorContains(text string) error {
	got, err := p.ErrorText()
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToLower(got), strings.ToLower(text)) {
		return fmt.Errorf("purchase error %q does not contain %q", got, text)
	}
	return nil
}
