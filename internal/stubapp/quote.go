package stubapp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInsufficientBalance is returned for purchases above the wallet balance.
	ErrInsufficientBalance = errors.New("Insufficient wallet balance")
	// ErrUnknownSession is returned for operations on a removed session.
	ErrUnknownSession = errors.New("session expired, please log in again")
)

// Quote is the price of a purchase.
type Quote struct {
	Grams float64
	Total float64
}

// NewQuote prices a purchase given either a currency amount or a weight in grams.
func NewQuote(amount, grams string, pricePerGram float64) (Quote, error) {
	amount = strings.TrimSpace(amount)
	grams = strings.TrimSpace(grams)

	switch {
	case amount != "" && grams != "":
		return Quote{}, errors.New("Enter either an amount or grams, not both")
	case amount != "":
		value, err := parsePositive(amount, "amount")
		if err != nil {
			return Quote{}, err
		}
		return Quote{Grams: round(value/pricePerGram, 4), Total: round(value, 2)}, nil
	case grams != "":
		value, err := parsePositive(grams, "grams")
		if err != nil {
			return Quote{}, err
		}
		return Quote{Grams: value, Total: round(value*pricePerGram, 2)}, nil
	default:
		return Quote{}, errors.New("Enter an amount or grams")
	}
}

func parsePositive(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("Invalid %s %q", field, raw)
	}
	if value <= 0 {
		return 0, fmt.Errorf("The %s must be greater than zero", field)
	}
	return value, nil
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// formatMoney renders an amount with two decimals and thousands separators.
func formatMoney(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}
