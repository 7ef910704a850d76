package stubapp

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

type loginProps struct {
	Error string
}

type dashboardProps struct {
	Username string
	Balance  float64
}

type buyProps struct {
	PricePerGram float64
	Balance      float64
	Amount       string
	Grams        string
	Total        float64
	Error        string
}

type orderProps struct {
	Order   Order
	Balance float64
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title>%s</head><body><main>`,
			templ.EscapeString(title), styles)
		if err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func loginView(props loginProps) templ.Component {
	return layout("Sign in", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<h1>Sign in</h1>`); err != nil {
			return err
		}
		if props.Error != "" {
			if _, err := fmt.Fprintf(w, `<p class="error" data-testid="login-error">%s</p>`, templ.EscapeString(props.Error)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `<form method="post" action="/login">`+
			`<label>Username <input name="username" autocomplete="username" data-testid="login-username"></label>`+
			`<label>Password <input name="password" type="password" autocomplete="current-password" data-testid="login-password"></label>`+
			`<button type="submit" data-testid="login-submit">Sign in</button>`+
			`</form>`)
		return err
	}))
}

func dashboardView(props dashboardProps) templ.Component {
	return layout("Dashboard", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `%s<h1>Welcome, %s</h1><p>Wallet balance: <span data-testid="wallet-balance">%s</span></p>`,
			nav, templ.EscapeString(props.Username), formatMoney(props.Balance))
		return err
	}))
}

func buyView(props buyProps) templ.Component {
	return layout("Buy gold", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `%s<h1>Buy gold</h1>`+
			`<p>Price per gram: <span data-testid="price-per-gram" data-price="%s">%s</span></p>`+
			`<p>Wallet balance: <span data-testid="wallet-balance">%s</span></p>`,
			nav, strconv.FormatFloat(props.PricePerGram, 'f', -1, 64), formatMoney(props.PricePerGram), formatMoney(props.Balance))
		if err != nil {
			return err
		}
		if props.Error != "" {
			if _, err := fmt.Fprintf(w, `<p class="error" role="alert" data-testid="buy-error">%s</p>`, templ.EscapeString(props.Error)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<form method="post" action="/buy">`+
			`<label>Amount <input name="amount" inputmode="decimal" value="%s" data-testid="buy-amount"></label>`+
			`<label>Grams <input name="grams" inputmode="decimal" value="%s" data-testid="buy-grams"></label>`+
			`<p>Total payable: <span data-testid="total-payable">%s</span></p>`+
			`<button type="submit" data-testid="buy-confirm">Confirm purchase</button>`+
			`</form>%s`,
			templ.EscapeString(props.Amount), templ.EscapeString(props.Grams), formatMoney(props.Total), totalScript)
		return err
	}))
}

func orderView(props orderProps) templ.Component {
	return layout("Order placed", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `%s<h1 data-testid="order-success-title">Order placed</h1>`+
			`<dl><dt>Order</dt><dd data-testid="order-id">%s</dd>`+
			`<dt>Gold</dt><dd data-testid="order-grams">%s g</dd>`+
			`<dt>Paid</dt><dd data-testid="order-total">%s</dd>`+
			`<dt>Remaining balance</dt><dd data-testid="wallet-balance">%s</dd></dl>`,
			nav, templ.EscapeString(props.Order.ID), strconv.FormatFloat(props.Order.Grams, 'f', -1, 64),
			formatMoney(props.Order.Total), formatMoney(props.Balance))
		return err
	}))
}

func notFoundView() templ.Component {
	return layout("Not found", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, nav+`<h1>Not found</h1>`)
		return err
	}))
}

const nav = `<nav><a href="/dashboard" data-testid="nav-dashboard">Dashboard</a> ` +
	`<a href="/buy" data-testid="nav-buy-gold">Buy gold</a> ` +
	`<form method="post" action="/logout" style="display:inline"><button type="submit" data-testid="nav-logout">Log out</button></form></nav>`

const styles = `<style>body{font-family:sans-serif;max-width:40rem;margin:2rem auto}label{display:block;margin:.5rem 0}.error{color:#b00020}</style>`

// totalScript keeps the total payable in sync while typing.
const totalScript = `<script>(function(){
var price=parseFloat(document.querySelector('[data-testid="price-per-gram"]').dataset.price);
var amount=document.querySelector('[data-testid="buy-amount"]');
var grams=document.querySelector('[data-testid="buy-grams"]');
var total=document.querySelector('[data-testid="total-payable"]');
function update(){var a=parseFloat(amount.value),g=parseFloat(grams.value),t=0;
if(amount.value!==""&&!isNaN(a)){t=a}else if(grams.value!==""&&!isNaN(g)){t=g*price}
total.textContent=t.toLocaleString("en-US",{minimumFractionDigits:2,maximumFractionDigits:2})}
amount.addEventListener("input",update);grams.addEventListener("input",update)})();</script>`
