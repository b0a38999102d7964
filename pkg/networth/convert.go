package networth

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Converter translates amounts between currencies through a pivot currency.
// Every rate is read as "one unit of base is worth rate units of target".
type Converter struct {
	Rates RateLookup
	Pivot string
}

// Convert returns value, held in from, expressed in to on date. A rate that
// cannot be found is reported as an ErrCodeRateNotFound error; any other
// error comes from the rate store.
func (c Converter) Convert(ctx context.Context, value decimal.Decimal, from, to string, date time.Time) (decimal.Decimal, error) {
	from = normalizeCurrency(from)
	to = normalizeCurrency(to)
	if from == to {
		return value, nil
	}
	pivot := normalizeCurrency(c.Pivot)
	if pivot == "" {
		pivot = DefaultPivotCurrency
	}

	inPivot := value
	if from != pivot {
		rate, err := c.rate(ctx, date, from, pivot)
		if err != nil {
			return decimal.Decimal{}, err
		}
		inPivot = value.Mul(rate)
	}
	if to == pivot {
		return inPivot, nil
	}
	rate, err := c.rate(ctx, date, to, pivot)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return inPivot.Div(rate), nil
}

// rate looks up base to target, falling back to the reciprocal of the
// reverse pair when only that direction is stored.
func (c Converter) rate(ctx context.Context, date time.Time, base, target string) (decimal.Decimal, error) {
	if c.Rates == nil {
		return decimal.Decimal{}, WrapError(ErrCodeRateNotFound, fmt.Sprintf("no rate source for %s/%s", base, target), ErrRateNotFound)
	}
	rate, ok, err := c.Rates.NearestRate(ctx, date, base, target)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if ok && rate.IsPositive() {
		return rate, nil
	}
	reverse, ok, err := c.Rates.NearestRate(ctx, date, target, base)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if ok && reverse.IsPositive() {
		return decimal.NewFromInt(1).Div(reverse), nil
	}
	return decimal.Decimal{}, WrapError(ErrCodeRateNotFound, fmt.Sprintf("%s/%s near %s", base, target, FormatDate(date)), ErrRateNotFound)
}
