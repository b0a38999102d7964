package networth

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrencies is the currency set used when no list is configured.
var DefaultCurrencies = []string{
	"CAD", "USD", "INR", "IDR", "JPY", "TWD", "TRY", "KRW", "SEK", "CHF",
	"EUR", "HKD", "MXN", "NZD", "SAR", "SGD", "ZAR", "GBP", "NOK", "PEN",
	"RUB", "AUD", "BRL", "CNY",
}

const (
	DefaultDisplayCurrency = "CAD"
	DefaultPivotCurrency   = "CAD"

	// DefaultCheckpointDays is the spacing of synthetic dates added to the
	// global date axis. Every leaf is filled on each axis date inside its own
	// range, so a build holds about (last-first)/interval points per leaf on
	// top of its stored rows: roughly 1,100 per leaf for 30 years at 10 days.
	// Raise Options.CheckpointDays for very long histories.
	DefaultCheckpointDays = 10
)

// Aggregate series names. Category series use the category name.
const (
	SeriesTotal    = "total"
	SeriesNetWorth = "net worth"
)

// BalanceRecord is one raw balance fact. Ticker is empty for cash.
type BalanceRecord struct {
	AccountName string
	Date        time.Time
	Balance     Amount
	Currency    string
	Ticker      string
}

type balanceRecordJSON struct {
	AccountName string `json:"account_name"`
	Date        string `json:"date"`
	Balance     Amount `json:"balance"`
	Currency    string `json:"currency"`
	Ticker      string `json:"ticker,omitempty"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (r BalanceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(balanceRecordJSON{
		AccountName: r.AccountName,
		Date:        FormatDate(r.Date),
		Balance:     r.Balance,
		Currency:    r.Currency,
		Ticker:      r.Ticker,
	})
}

// RateRecord is the exchange rate from Base to Target on Date.
type RateRecord struct {
	Date   time.Time
	Base   string
	Target string
	Rate   Amount
	Source string
}

// PriceRecord is the price of one unit of Symbol, in Currency, on Date.
type PriceRecord struct {
	Date     time.Time
	Symbol   string
	Currency string
	Price    Amount
}

// Point is one dated value of a series.
type Point struct {
	Date  time.Time
	Value Amount
}

type pointJSON struct {
	Date  string `json:"date"`
	Value Amount `json:"value"`
}

// MarshalJSON renders the point as {"date": "YYYY-MM-DD", "value": n}.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{Date: FormatDate(p.Date), Value: p.Value})
}

// Series is a time-ordered sequence of points with unique dates.
type Series []Point

// At returns the value recorded exactly at date.
func (s Series) At(date time.Time) (Amount, bool) {
	date = Day(date)
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(date) })
	if i < len(s) && s[i].Date.Equal(date) {
		return s[i].Value, true
	}
	return Amount{}, false
}

// ValueAt returns the value at date, linearly interpolating between the
// surrounding points when date falls strictly inside the series. Dates
// outside the covered range report false.
func (s Series) ValueAt(date time.Time) (Amount, bool) {
	date = Day(date)
	i := sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(date) })
	if i < len(s) && s[i].Date.Equal(date) {
		return s[i].Value, true
	}
	if i == 0 || i == len(s) {
		return Amount{}, false
	}
	prev, next := s[i-1], s[i]
	return Amount{interpolate(prev.Date, prev.Value.Decimal, next.Date, next.Value.Decimal, date)}, true
}

// LastAtOrBefore returns the latest value whose date is not after date.
func (s Series) LastAtOrBefore(date time.Time) (Amount, bool) {
	date = Day(date)
	i := sort.Search(len(s), func(i int) bool { return s[i].Date.After(date) })
	if i == 0 {
		return Amount{}, false
	}
	return s[i-1].Value, true
}

// SeriesSet maps series name to series.
type SeriesSet map[string]Series

// Names returns the series names in lexical order.
func (s SeriesSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func seriesFromMap(values map[time.Time]decimal.Decimal) Series {
	out := make(Series, 0, len(values))
	for d, v := range values {
		out = append(out, Point{Date: d, Value: Amount{v}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// IssueKind classifies a recoverable data problem.
type IssueKind string

const (
	IssueUnknownCurrency IssueKind = "unknown_currency"
	IssueRateNotFound    IssueKind = "rate_not_found"
	IssuePriceNotFound   IssueKind = "price_not_found"
	IssueMalformedRow    IssueKind = "malformed_row"
	IssueNameCollision   IssueKind = "name_collision"
)

// Issue reports a data problem that was skipped rather than failing the call.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Account  string    `json:"account,omitempty"`
	Date     string    `json:"date,omitempty"`
	Currency string    `json:"currency,omitempty"`
	Ticker   string    `json:"ticker,omitempty"`
	Row      int       `json:"row,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

func (i Issue) logArgs() []any {
	args := []any{"kind", string(i.Kind)}
	if i.Account != "" {
		args = append(args, "account", i.Account)
	}
	if i.Date != "" {
		args = append(args, "date", i.Date)
	}
	if i.Currency != "" {
		args = append(args, "currency", i.Currency)
	}
	if i.Ticker != "" {
		args = append(args, "ticker", i.Ticker)
	}
	if i.Row > 0 {
		args = append(args, "row", i.Row)
	}
	if i.Detail != "" {
		args = append(args, "detail", i.Detail)
	}
	return args
}
