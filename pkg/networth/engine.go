package networth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Engine turns raw balance records into display-currency series. An Engine
// holds configuration only; every Build works on its own copy of the data,
// so one Engine may serve concurrent builds.
type Engine struct {
	Rates      RateLookup
	Prices     PriceLookup
	Categories *CategoryConfig
	// Currencies is the set records may carry. Nil accepts any currency.
	Currencies      CurrencySet
	DisplayCurrency string
	PivotCurrency   string
	CheckpointDays  int
	// CurrencyResolver fills in the currency of records that have none.
	CurrencyResolver AccountCurrencyResolver
	Logger           *slog.Logger
}

// BuildResult is the output of one Build.
type BuildResult struct {
	// Series holds one series per account plus the aggregate series.
	Series          SeriesSet
	Issues          []Issue
	DisplayCurrency string
	Now             time.Time
	// Accounts lists the accounts that produced a series, sorted.
	Accounts []string
	// Groups holds the members of every configured category.
	Groups map[Category][]string

	accountSeries SeriesSet
	categories    *CategoryConfig
}

type leafKey struct {
	account  string
	currency string
	ticker   string
}

type leaf struct {
	key    leafKey
	values map[time.Time]decimal.Decimal
}

// Build normalizes records as of now. Data problems are collected in
// BuildResult.Issues; only a failing rate or price store aborts the build.
func (e *Engine) Build(ctx context.Context, records []BalanceRecord, now time.Time) (*BuildResult, error) {
	now = Day(now)
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	display := defaultString(normalizeCurrency(e.DisplayCurrency), DefaultDisplayCurrency)
	b := &build{
		engine:    e,
		logger:    logger,
		display:   display,
		converter: Converter{Rates: e.Rates, Pivot: defaultString(normalizeCurrency(e.PivotCurrency), DefaultPivotCurrency)},
	}

	leaves := b.group(records)
	for _, l := range leaves {
		extendTo(l.values, now)
	}
	axis := dateAxis(leaves, defaultInt(e.CheckpointDays, DefaultCheckpointDays))
	for _, l := range leaves {
		fillGaps(l.values, axis)
	}

	accounts := map[string]map[time.Time]decimal.Decimal{}
	for _, l := range leaves {
		converted, err := b.convert(ctx, l)
		if err != nil {
			return nil, err
		}
		byDate, ok := accounts[l.key.account]
		if !ok {
			byDate = map[time.Time]decimal.Decimal{}
			accounts[l.key.account] = byDate
		}
		for d, v := range converted {
			byDate[d] = byDate[d].Add(v)
		}
	}

	result := &BuildResult{
		Series:          SeriesSet{},
		DisplayCurrency: display,
		Now:             now,
		Groups:          e.Categories.Groups(),
		accountSeries:   SeriesSet{},
		categories:      e.Categories,
	}
	for name, byDate := range accounts {
		if len(byDate) == 0 {
			continue
		}
		result.accountSeries[name] = seriesFromMap(byDate)
	}
	result.Accounts = result.accountSeries.Names()

	aggregates := aggregate(result.accountSeries, e.Categories)
	for _, name := range result.Accounts {
		if _, clash := aggregates[name]; clash {
			b.report(Issue{Kind: IssueNameCollision, Account: name, Detail: "account series hidden by aggregate of the same name"})
			continue
		}
		result.Series[name] = result.accountSeries[name]
	}
	for name, s := range aggregates {
		result.Series[name] = s
	}
	result.Issues = b.issues
	logger.Debug("series built",
		"records", len(records),
		"leaves", len(leaves),
		"dates", len(axis),
		"series", len(result.Series),
		"issues", len(result.Issues),
	)
	return result, nil
}

type build struct {
	engine    *Engine
	logger    *slog.Logger
	display   string
	converter Converter
	issues    []Issue
}

func (b *build) report(issue Issue) {
	b.issues = append(b.issues, issue)
	b.logger.Warn("balance data issue", issue.logArgs()...)
}

// group partitions records into leaves. Later records win on duplicate
// dates within a leaf.
func (b *build) group(records []BalanceRecord) []*leaf {
	index := map[leafKey]*leaf{}
	var leaves []*leaf
	for _, rec := range records {
		account := normalizeAccount(rec.AccountName)
		if account == "" || rec.Date.IsZero() {
			continue
		}
		currency := normalizeCurrency(rec.Currency)
		if currency == "" && b.engine.CurrencyResolver != nil {
			if resolved, ok := b.engine.CurrencyResolver.AccountCurrency(account); ok {
				currency = normalizeCurrency(resolved)
			}
		}
		if currency == "" || (b.engine.Currencies != nil && !b.engine.Currencies.Contains(currency)) {
			b.report(Issue{
				Kind:     IssueUnknownCurrency,
				Account:  account,
				Date:     FormatDate(rec.Date),
				Currency: currency,
				Detail:   "record excluded",
			})
			continue
		}
		key := leafKey{account: account, currency: currency, ticker: normalizeSymbol(rec.Ticker)}
		l, ok := index[key]
		if !ok {
			l = &leaf{key: key, values: map[time.Time]decimal.Decimal{}}
			index[key] = l
			leaves = append(leaves, l)
		}
		l.values[Day(rec.Date)] = rec.Balance.Decimal
	}
	return leaves
}

// extendTo carries the latest value forward to now when the data stops
// earlier.
func extendTo(values map[time.Time]decimal.Decimal, now time.Time) {
	var last time.Time
	for d := range values {
		if d.After(last) {
			last = d
		}
	}
	if !last.IsZero() && last.Before(now) {
		values[now] = values[last]
	}
}

// dateAxis is the sorted union of every leaf date plus evenly spaced
// checkpoints across the whole range.
func dateAxis(leaves []*leaf, interval int) []time.Time {
	seen := map[time.Time]struct{}{}
	for _, l := range leaves {
		for d := range l.values {
			seen[d] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	axis := make([]time.Time, 0, len(seen))
	for d := range seen {
		axis = append(axis, d)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	for _, d := range checkpoints(axis[0], axis[len(axis)-1], interval) {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			axis = append(axis, d)
		}
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}

// convert prices and converts every point of l into the display currency.
// Points whose price or rate cannot be found are dropped and reported.
func (b *build) convert(ctx context.Context, l *leaf) (map[time.Time]decimal.Decimal, error) {
	out := make(map[time.Time]decimal.Decimal, len(l.values))
	dates := make([]time.Time, 0, len(l.values))
	for d := range l.values {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		value := l.values[d]
		if l.key.ticker != "" {
			price, ok, err := b.nearestPrice(ctx, d, l.key.ticker)
			if err != nil {
				return nil, fmt.Errorf("price %s on %s: %w", l.key.ticker, FormatDate(d), err)
			}
			if !ok {
				b.report(Issue{
					Kind:     IssuePriceNotFound,
					Account:  l.key.account,
					Date:     FormatDate(d),
					Currency: l.key.currency,
					Ticker:   l.key.ticker,
				})
				continue
			}
			value = value.Mul(price)
		}
		converted, err := b.converter.Convert(ctx, value, l.key.currency, b.display, d)
		if err != nil {
			if IsErrorCode(err, ErrCodeRateNotFound) {
				b.report(Issue{
					Kind:     IssueRateNotFound,
					Account:  l.key.account,
					Date:     FormatDate(d),
					Currency: l.key.currency,
					Ticker:   l.key.ticker,
					Detail:   err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("convert %s %s on %s: %w", l.key.account, l.key.currency, FormatDate(d), err)
		}
		out[d] = converted
	}
	return out, nil
}

func (b *build) nearestPrice(ctx context.Context, date time.Time, symbol string) (decimal.Decimal, bool, error) {
	if b.engine.Prices == nil {
		return decimal.Decimal{}, false, nil
	}
	return b.engine.Prices.NearestPrice(ctx, date, symbol)
}

// AccountSeries returns the converted series of one account, including
// accounts whose series name is shadowed by an aggregate.
func (r *BuildResult) AccountSeries(account string) (Series, bool) {
	s, ok := r.accountSeries[account]
	return s, ok
}

// Select returns the named series. The second result lists requested names
// that are missing or have no points, so callers can show a placeholder.
func (r *BuildResult) Select(names ...string) (SeriesSet, []string) {
	if len(names) == 0 {
		names = r.Series.Names()
	}
	out := SeriesSet{}
	var empty []string
	for _, name := range names {
		s, ok := r.Series[name]
		if !ok || len(s) == 0 {
			empty = append(empty, name)
			if !ok {
				continue
			}
		}
		out[name] = s
	}
	return out, empty
}
