package networth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	rateSourceManual = "manual"
	rateSourceImport = "import"
	rateSourceValet  = "valet"
)

// RateFilter narrows GetRates. Zero fields match everything.
type RateFilter struct {
	Base   string
	Target string
	From   time.Time
	To     time.Time
}

// UpsertRate stores the rate from base to target on a date.
func (c *Core) UpsertRate(ctx context.Context, rec RateRecord) error {
	return c.UpsertRates(ctx, []RateRecord{rec})
}

// UpsertRates stores rates in one transaction and drops the cached lookups
// of every pair it touched.
func (c *Core) UpsertRates(ctx context.Context, records []RateRecord) error {
	normalized := make([]RateRecord, 0, len(records))
	for _, rec := range records {
		rec, err := normalizeRate(rec)
		if err != nil {
			return err
		}
		normalized = append(normalized, rec)
	}
	if len(normalized) == 0 {
		return nil
	}
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertRatesTx(ctx, tx, normalized)
	})
	if err != nil {
		return err
	}
	if c.cache != nil {
		for _, rec := range normalized {
			c.cache.invalidateRate(ratePair{base: rec.Base, target: rec.Target})
		}
	}
	return nil
}

func upsertRatesTx(ctx context.Context, tx *sql.Tx, records []RateRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exchange_rates (date, base_currency, target_currency, rate, source, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date, base_currency, target_currency) DO UPDATE SET
			rate = excluded.rate,
			source = excluded.source,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return WrapError(ErrCodeDatabase, "prepare rate upsert", err)
	}
	defer stmt.Close()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, FormatDate(rec.Date), rec.Base, rec.Target, rec.Rate, rec.Source); err != nil {
			return WrapError(ErrCodeDatabase, "upsert rate", err)
		}
	}
	return nil
}

func normalizeRate(rec RateRecord) (RateRecord, error) {
	rec.Base = normalizeCurrency(rec.Base)
	rec.Target = normalizeCurrency(rec.Target)
	rec.Source = normalizeRateSource(rec.Source)
	if rec.Base == "" || rec.Target == "" {
		return rec, NewError(ErrCodeInvalidInput, "base and target currencies are required")
	}
	if rec.Base == rec.Target {
		return rec, NewError(ErrCodeInvalidInput, fmt.Sprintf("base and target are both %s", rec.Base))
	}
	if rec.Date.IsZero() {
		return rec, NewError(ErrCodeInvalidInput, "date is required")
	}
	if !rec.Rate.IsPositive() {
		return rec, NewError(ErrCodeValidation, "rate must be greater than 0")
	}
	rec.Date = Day(rec.Date)
	return rec, nil
}

func normalizeRateSource(source string) string {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return rateSourceManual
	}
	return strings.ToLower(trimmed)
}

// NearestRate implements RateLookup against the exchange_rates table.
func (c *Core) NearestRate(ctx context.Context, date time.Time, base, target string) (decimal.Decimal, bool, error) {
	base = normalizeCurrency(base)
	target = normalizeCurrency(target)
	if base == target {
		return decimal.NewFromInt(1), true, nil
	}
	key := FormatDate(date)
	pair := ratePair{base: base, target: target}
	var gen uint64
	if c.cache != nil {
		entry, g, ok := c.cache.getRate(pair, key)
		if ok {
			return entry.value, entry.found, nil
		}
		gen = g
	}

	rate, found, err := c.nearestValue(ctx, `
		SELECT rate FROM exchange_rates
		WHERE base_currency = ? AND target_currency = ? AND date %s ?
		ORDER BY date %s LIMIT 1
	`, key, base, target)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	if c.cache != nil {
		c.cache.setRate(pair, key, gen, lookupEntry{value: rate, found: found})
	}
	return rate, found, nil
}

// nearestValue runs the backward then forward search. query carries two %s
// verbs for the comparison and the sort direction; the date is bound last.
func (c *Core) nearestValue(ctx context.Context, query string, date string, args ...any) (decimal.Decimal, bool, error) {
	searches := []struct{ cmp, order string }{
		{cmp: "<=", order: "DESC"},
		{cmp: ">=", order: "ASC"},
	}
	bound := append(append([]any{}, args...), date)
	for _, s := range searches {
		var value Amount
		err := c.db.QueryRowContext(ctx, fmt.Sprintf(query, s.cmp, s.order), bound...).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return decimal.Decimal{}, false, WrapError(ErrCodeDatabase, "nearest lookup", err)
		}
		return value.Decimal, true, nil
	}
	return decimal.Decimal{}, false, nil
}

// GetRates lists stored rates ordered by pair then date.
func (c *Core) GetRates(ctx context.Context, filter RateFilter) ([]RateRecord, error) {
	var where []string
	var args []any
	if base := normalizeCurrency(filter.Base); base != "" {
		where = append(where, "base_currency = ?")
		args = append(args, base)
	}
	if target := normalizeCurrency(filter.Target); target != "" {
		where = append(where, "target_currency = ?")
		args = append(args, target)
	}
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, FormatDate(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, FormatDate(filter.To))
	}
	query := "SELECT date, base_currency, target_currency, rate, source FROM exchange_rates"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY base_currency, target_currency, date"

	rows, err := c.queryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RateRecord
	for rows.Next() {
		var rec RateRecord
		var date string
		if err := rows.Scan(&date, &rec.Base, &rec.Target, &rec.Rate, &rec.Source); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan rate", err)
		}
		if rec.Date, err = ParseDate(date); err != nil {
			return nil, WrapError(ErrCodeDatabase, "stored rate date", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "iterate rates", err)
	}
	return out, nil
}

// latestRateDate returns the most recent date stored for base/target.
func (c *Core) latestRateDate(ctx context.Context, base, target string) (time.Time, bool, error) {
	var date sql.NullString
	err := c.db.QueryRowContext(ctx,
		"SELECT MAX(date) FROM exchange_rates WHERE base_currency = ? AND target_currency = ?",
		base, target,
	).Scan(&date)
	if err != nil {
		return time.Time{}, false, WrapError(ErrCodeDatabase, "latest rate date", err)
	}
	if !date.Valid || date.String == "" {
		return time.Time{}, false, nil
	}
	t, err := ParseDate(date.String)
	if err != nil {
		return time.Time{}, false, WrapError(ErrCodeDatabase, "stored rate date", err)
	}
	return t, true, nil
}
