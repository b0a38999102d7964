package networth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// BalanceFilter narrows GetBalances. Zero fields match everything; From and
// To are inclusive.
type BalanceFilter struct {
	Accounts []string
	Currency string
	From     time.Time
	To       time.Time
}

// UpsertBalance stores one balance fact, replacing any previous value for the
// same account, date, currency and ticker.
func (c *Core) UpsertBalance(ctx context.Context, rec BalanceRecord) error {
	return c.UpsertBalances(ctx, []BalanceRecord{rec})
}

// UpsertBalances stores records in a single transaction. Nothing is written
// when any record is invalid.
func (c *Core) UpsertBalances(ctx context.Context, records []BalanceRecord) error {
	normalized := make([]BalanceRecord, 0, len(records))
	for i, rec := range records {
		rec, err := normalizeBalance(rec)
		if err != nil {
			if len(records) > 1 {
				return WrapError(ErrCodeInvalidInput, fmt.Sprintf("record %d", i+1), err)
			}
			return err
		}
		normalized = append(normalized, rec)
	}
	if len(normalized) == 0 {
		return nil
	}
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertBalancesTx(ctx, tx, normalized)
	})
}

func upsertBalancesTx(ctx context.Context, tx *sql.Tx, records []BalanceRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO account_balances (account_name, date, balance, currency, ticker, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_name, date, currency, ticker) DO UPDATE SET
			balance = excluded.balance,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return WrapError(ErrCodeDatabase, "prepare balance upsert", err)
	}
	defer stmt.Close()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.AccountName, FormatDate(rec.Date), rec.Balance, rec.Currency, rec.Ticker); err != nil {
			return WrapError(ErrCodeDatabase, "upsert balance", err)
		}
	}
	return nil
}

func normalizeBalance(rec BalanceRecord) (BalanceRecord, error) {
	rec.AccountName = normalizeAccount(rec.AccountName)
	rec.Currency = normalizeCurrency(rec.Currency)
	rec.Ticker = normalizeSymbol(rec.Ticker)
	if rec.AccountName == "" {
		return rec, NewError(ErrCodeInvalidInput, "account name is required")
	}
	if rec.Date.IsZero() {
		return rec, NewError(ErrCodeInvalidInput, "date is required")
	}
	rec.Date = Day(rec.Date)
	return rec, nil
}

// ScanBalances returns every stored balance ordered by date then account.
func (c *Core) ScanBalances(ctx context.Context) ([]BalanceRecord, error) {
	return c.GetBalances(ctx, BalanceFilter{})
}

// GetBalances returns the stored balances matching filter.
func (c *Core) GetBalances(ctx context.Context, filter BalanceFilter) ([]BalanceRecord, error) {
	var where []string
	var args []any
	var names []string
	for _, name := range filter.Accounts {
		if name = normalizeAccount(name); name != "" {
			names = append(names, name)
			args = append(args, name)
		}
	}
	if len(names) > 0 {
		where = append(where, "account_name IN ("+strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")+")")
	}
	if cur := normalizeCurrency(filter.Currency); cur != "" {
		where = append(where, "currency = ?")
		args = append(args, cur)
	}
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, FormatDate(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, FormatDate(filter.To))
	}
	query := "SELECT account_name, date, balance, currency, ticker FROM account_balances"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, account_name, id"

	rows, err := c.queryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceRecord
	for rows.Next() {
		var rec BalanceRecord
		var date string
		if err := rows.Scan(&rec.AccountName, &date, &rec.Balance, &rec.Currency, &rec.Ticker); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan balance", err)
		}
		rec.Date, err = ParseDate(date)
		if err != nil {
			return nil, WrapError(ErrCodeDatabase, "stored balance date", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "iterate balances", err)
	}
	return out, nil
}

// AccountNames returns the distinct account names in lexical order.
func (c *Core) AccountNames(ctx context.Context) ([]string, error) {
	return c.distinctStrings(ctx, "SELECT DISTINCT account_name FROM account_balances ORDER BY account_name")
}

// BalanceCurrencies returns the distinct currencies balances are held in.
func (c *Core) BalanceCurrencies(ctx context.Context) ([]string, error) {
	return c.distinctStrings(ctx, "SELECT DISTINCT currency FROM account_balances WHERE currency <> '' ORDER BY currency")
}

func (c *Core) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := c.queryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan value", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "iterate values", err)
	}
	return out, nil
}
