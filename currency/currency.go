// Package currency converts local salary amounts to euros using a fixed
// rate table. Rates are compile-time constants, not a live FX feed.
package currency

import (
	"math"
	"sort"

	"salary_portal/types"
)

var eurRates = map[string]float64{
	"EUR": 1.00,
	"USD": 0.85,
	"GBP": 1.15,
	"CAD": 0.65,
	"AUD": 0.60,
	"JPY": 0.0065,
	"CHF": 1.05,
	"SEK": 0.095,
	"NOK": 0.092,
	"DKK": 0.134,
}

// ConvertToEuros returns amount * rate rounded half-up to 2 decimals.
func ConvertToEuros(amount float64, code string) (float64, error) {
	rate, ok := eurRates[code]
	if !ok {
		return 0, types.ErrUnsupportedCurrency
	}
	return RoundHalfUp(amount * rate), nil
}

// ExchangeRate returns the EUR multiplier for a currency code.
func ExchangeRate(code string) (float64, error) {
	rate, ok := eurRates[code]
	if !ok {
		return 0, types.ErrUnsupportedCurrency
	}
	return rate, nil
}

// IsSupported reports whether the code is in the rate table.
func IsSupported(code string) bool {
	_, ok := eurRates[code]
	return ok
}

// SupportedCurrencies returns the supported codes in alphabetical order.
func SupportedCurrencies() []string {
	codes := make([]string, 0, len(eurRates))
	for code := range eurRates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Rates returns a copy of the full rate table.
func Rates() map[string]float64 {
	out := make(map[string]float64, len(eurRates))
	for code, rate := range eurRates {
		out[code] = rate
	}
	return out
}

// RoundHalfUp rounds to 2 decimal places, ties away from zero upward.
func RoundHalfUp(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
