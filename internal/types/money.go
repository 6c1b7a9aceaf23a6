// README: Money helpers; amounts are fixed-point decimals with two places (BRL).
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const Currency = "BRL"

// MoneyPlaces is the number of decimal places every stored amount is rounded to.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to two places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ParseMoney accepts "12.5", "12,50" and plain integers.
func ParseMoney(s string) (decimal.Decimal, error) {
	normalized := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ',' {
			r = '.'
		}
		normalized = append(normalized, r)
	}
	d, err := decimal.NewFromString(string(normalized))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return RoundMoney(d), nil
}

// SumMoney adds amounts and rounds the result once.
func SumMoney(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return RoundMoney(total)
}
