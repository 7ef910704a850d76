package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// LoginPage is the sign-in form.
type LoginPage struct {
	BasePage
	UsernameInput playwright.Locator
	PasswordInput playwright.Locator
	SubmitButton  playwright.Locator
}

// NewLoginPage creates the page object for page.
func NewLoginPage(page playwright.Page) *LoginPage {
	base := NewBasePage(page)
	return &LoginPage{
		BasePage:      base,
		UsernameInput: base.TestID("login-username"),
		PasswordInput: base.TestID("login-password"),
		SubmitButton:  base.TestID("login-submit"),
	}
}

// Login submits the credentials and waits until the network is idle.
func (p *LoginPage) Login(username, password string) error {
	if err := p.UsernameInput.Fill(username); err != nil {
		return fmt.Errorf("filling username: %w", err)
	}
	if err := p.PasswordInput.Fill(password); err != nil {
		return fmt.Errorf("filling password: %w", err)
	}
	if err := p.SubmitButton.Click(); err != nil {
		return fmt.Errorf("submitting login: %w", err)
	}
	if err := p.waitForNetworkIdle(); err != nil {
		return fmt.Errorf("waiting for landing page: %w", err)
	}
	return nil
}

// Login is a convenience for NewLoginPage(page).Login(username, password).
func Login(page playwright.Page, username, password string) error {
	return NewLoginPage(page).Login(username, password)
}
