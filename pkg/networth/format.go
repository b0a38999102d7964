package networth

import (
	"github.com/Rhymond/go-money"
)

// IsISOCurrency reports whether code is a known ISO 4217 currency.
func IsISOCurrency(code string) bool {
	return money.GetCurrency(normalizeCurrency(code)) != nil
}

// FormatAmount renders value in currency with its symbol, grouping and
// minor-unit precision, e.g. "$1,234.50". Unknown codes fall back to a
// plain two-decimal number followed by the code.
func FormatAmount(value Amount, currency string) string {
	currency = normalizeCurrency(currency)
	cur := money.GetCurrency(currency)
	if cur == nil {
		return value.StringFixed(2) + " " + currency
	}
	minor := value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// Display renders the point as its date followed by the formatted value.
func (p Point) Display(currency string) string {
	return FormatDate(p.Date) + " " + FormatAmount(p.Value, currency)
}
