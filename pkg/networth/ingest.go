package networth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// priceBar is one daily close returned by a price history source.
type priceBar struct {
	Date  time.Time
	Close Amount
}

var priceHistoryFetcher = fetchPriceHistory

// IngestResult summarizes a price ingestion run.
type IngestResult struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
	Imported int    `json:"imported"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// IngestPrices downloads the daily closes of symbol from since to today and
// stores them. An empty currency takes the quote currency reported by the
// source. A zero since resumes after the latest stored price, or starts at
// the first balance holding the symbol.
func (c *Core) IngestPrices(ctx context.Context, symbol, currency string, since time.Time) (*IngestResult, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, NewError(ErrCodeInvalidInput, "symbol is required")
	}
	if since.IsZero() {
		start, err := c.priceStart(ctx, symbol)
		if err != nil {
			return nil, err
		}
		since = start
	}
	end := Today()
	if since.After(end) {
		return &IngestResult{Symbol: symbol, Currency: normalizeCurrency(currency)}, nil
	}

	bars, quoteCurrency, err := priceHistoryFetcher(ctx, symbol, Day(since), end)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, fmt.Sprintf("fetch prices for %s", symbol), err)
	}
	currency = defaultString(normalizeCurrency(currency), normalizeCurrency(quoteCurrency))

	records := make([]PriceRecord, 0, len(bars))
	result := &IngestResult{Symbol: symbol, Currency: currency}
	for _, bar := range bars {
		if !bar.Close.IsPositive() {
			continue
		}
		records = append(records, PriceRecord{Date: bar.Date, Symbol: symbol, Currency: currency, Price: bar.Close})
	}
	if err := c.UpsertPrices(ctx, records); err != nil {
		return nil, err
	}
	result.Imported = len(records)
	if len(records) > 0 {
		result.From = FormatDate(records[0].Date)
		result.To = FormatDate(records[len(records)-1].Date)
	}
	c.logger.Info("prices ingested", "symbol", symbol, "currency", currency, "imported", result.Imported)
	return result, nil
}

// IngestAllPrices runs IngestPrices for every ticker held in a balance,
// pricing each in the currency of its balances. Failures are collected so
// one bad symbol does not stop the rest.
func (c *Core) IngestAllPrices(ctx context.Context) ([]*IngestResult, []string, error) {
	records, err := c.ScanBalances(ctx)
	if err != nil {
		return nil, nil, err
	}
	currencies := tickerCurrencies(records)
	tickers, err := c.Tickers(ctx)
	if err != nil {
		return nil, nil, err
	}
	var results []*IngestResult
	var failures []string
	for _, ticker := range tickers {
		res, err := c.IngestPrices(ctx, ticker, currencies[ticker], time.Time{})
		if err != nil {
			c.logger.Warn("price ingestion failed", "symbol", ticker, "err", err)
			failures = append(failures, fmt.Sprintf("%s: %v", ticker, err))
			continue
		}
		results = append(results, res)
	}
	return results, failures, nil
}

func (c *Core) priceStart(ctx context.Context, symbol string) (time.Time, error) {
	queries := []struct {
		query  string
		offset int
	}{
		{query: "SELECT MAX(date) FROM stock_prices WHERE symbol = ?", offset: 1},
		{query: "SELECT MIN(date) FROM account_balances WHERE ticker = ?"},
	}
	for _, q := range queries {
		var date sql.NullString
		if err := c.db.QueryRowContext(ctx, q.query, symbol).Scan(&date); err != nil {
			return time.Time{}, WrapError(ErrCodeDatabase, "price start date", err)
		}
		if !date.Valid || date.String == "" {
			continue
		}
		t, err := ParseDate(date.String)
		if err != nil {
			return time.Time{}, WrapError(ErrCodeDatabase, "stored date", err)
		}
		return t.AddDate(0, 0, q.offset), nil
	}
	return Today().AddDate(-1, 0, 0), nil
}

func fetchPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]priceBar, string, error) {
	// The chart endpoint excludes the end day.
	end = end.AddDate(0, 0, 1)
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	params.Context = &ctx
	iter := chart.Get(params)

	var bars []priceBar
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, priceBar{
			Date:  Day(time.Unix(int64(bar.Timestamp), 0).UTC()),
			Close: Amount{bar.Close},
		})
	}
	if err := iter.Err(); err != nil {
		return nil, "", fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}
	return bars, iter.Meta().Currency, nil
}
