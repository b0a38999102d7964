package networth

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RateLookup resolves the exchange rate from base to target nearest to a
// date: an exact match, else the latest earlier date, else the earliest
// later date. ok is false when the pair has no rows at all. A non-nil error
// means the store itself failed.
type RateLookup interface {
	NearestRate(ctx context.Context, date time.Time, base, target string) (rate decimal.Decimal, ok bool, err error)
}

// PriceLookup resolves the price of one unit of symbol nearest to a date,
// with the same search order as RateLookup.
type PriceLookup interface {
	NearestPrice(ctx context.Context, date time.Time, symbol string) (price decimal.Decimal, ok bool, err error)
}

// AccountCurrencyResolver supplies the currency of an account whose records
// do not carry one.
type AccountCurrencyResolver interface {
	AccountCurrency(account string) (currency string, ok bool)
}

// StaticCurrencyResolver maps account names to currencies.
type StaticCurrencyResolver map[string]string

// AccountCurrency implements AccountCurrencyResolver.
func (m StaticCurrencyResolver) AccountCurrency(account string) (string, bool) {
	cur, ok := m[normalizeAccount(account)]
	cur = normalizeCurrency(cur)
	return cur, ok && cur != ""
}
