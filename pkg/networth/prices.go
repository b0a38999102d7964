package networth

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// UpsertPrice stores the price of symbol on a date.
func (c *Core) UpsertPrice(ctx context.Context, rec PriceRecord) error {
	return c.UpsertPrices(ctx, []PriceRecord{rec})
}

// UpsertPrices stores prices in one transaction and drops the cached
// lookups of every symbol it touched.
func (c *Core) UpsertPrices(ctx context.Context, records []PriceRecord) error {
	normalized := make([]PriceRecord, 0, len(records))
	for _, rec := range records {
		rec.Symbol = normalizeSymbol(rec.Symbol)
		rec.Currency = normalizeCurrency(rec.Currency)
		if rec.Symbol == "" {
			return NewError(ErrCodeInvalidInput, "symbol is required")
		}
		if rec.Date.IsZero() {
			return NewError(ErrCodeInvalidInput, "date is required")
		}
		if rec.Price.IsNegative() {
			return NewError(ErrCodeValidation, "price must not be negative")
		}
		rec.Date = Day(rec.Date)
		normalized = append(normalized, rec)
	}
	if len(normalized) == 0 {
		return nil
	}
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO stock_prices (date, symbol, currency, price, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(date, symbol) DO UPDATE SET
				currency = excluded.currency,
				price = excluded.price,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return WrapError(ErrCodeDatabase, "prepare price upsert", err)
		}
		defer stmt.Close()
		for _, rec := range normalized {
			if _, err := stmt.ExecContext(ctx, FormatDate(rec.Date), rec.Symbol, rec.Currency, rec.Price); err != nil {
				return WrapError(ErrCodeDatabase, "upsert price", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if c.cache != nil {
		for _, rec := range normalized {
			c.cache.invalidatePrice(rec.Symbol)
		}
	}
	return nil
}

// NearestPrice implements PriceLookup against the stock_prices table.
func (c *Core) NearestPrice(ctx context.Context, date time.Time, symbol string) (decimal.Decimal, bool, error) {
	symbol = normalizeSymbol(symbol)
	key := FormatDate(date)
	var gen uint64
	if c.cache != nil {
		entry, g, ok := c.cache.getPrice(symbol, key)
		if ok {
			return entry.value, entry.found, nil
		}
		gen = g
	}
	price, found, err := c.nearestValue(ctx, `
		SELECT price FROM stock_prices
		WHERE symbol = ? AND date %s ?
		ORDER BY date %s LIMIT 1
	`, key, symbol)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	if c.cache != nil {
		c.cache.setPrice(symbol, key, gen, lookupEntry{value: price, found: found})
	}
	return price, found, nil
}

// GetPrices lists stored prices for symbol, or all symbols when empty.
func (c *Core) GetPrices(ctx context.Context, symbol string) ([]PriceRecord, error) {
	query := "SELECT date, symbol, currency, price FROM stock_prices"
	var args []any
	if symbol = normalizeSymbol(symbol); symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY symbol, date"

	rows, err := c.queryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceRecord
	for rows.Next() {
		var rec PriceRecord
		var date string
		if err := rows.Scan(&date, &rec.Symbol, &rec.Currency, &rec.Price); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan price", err)
		}
		if rec.Date, err = ParseDate(date); err != nil {
			return nil, WrapError(ErrCodeDatabase, "stored price date", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "iterate prices", err)
	}
	return out, nil
}

// Tickers returns the distinct tickers referenced by balances.
func (c *Core) Tickers(ctx context.Context) ([]string, error) {
	return c.distinctStrings(ctx, "SELECT DISTINCT ticker FROM account_balances WHERE ticker <> '' ORDER BY ticker")
}

func tickerCurrencies(records []BalanceRecord) map[string]string {
	out := map[string]string{}
	for _, rec := range records {
		if rec.Ticker == "" || rec.Currency == "" {
			continue
		}
		if _, ok := out[rec.Ticker]; !ok {
			out[rec.Ticker] = rec.Currency
		}
	}
	return out
}
