package networth

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB, pivot string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	hasBalances, err := tableExists(tx, "account_balances")
	if err != nil {
		return err
	}
	if hasBalances {
		hasCurrency, err := tableHasColumn(tx, "account_balances", "currency")
		if err != nil {
			return err
		}
		if !hasCurrency {
			if err := migrateLegacyBalances(tx, pivot); err != nil {
				return err
			}
		}
	}
	if err := createBalancesTable(tx); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE INDEX IF NOT EXISTS idx_account_balances_date
		ON account_balances(date, account_name)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS exchange_rates (
			date TEXT NOT NULL,
			base_currency TEXT NOT NULL,
			target_currency TEXT NOT NULL,
			rate TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'manual',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(date, base_currency, target_currency),
			CHECK(base_currency <> target_currency)
		)
	`); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE INDEX IF NOT EXISTS idx_exchange_rates_pair
		ON exchange_rates(base_currency, target_currency, date)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS stock_prices (
			date TEXT NOT NULL,
			symbol TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(date, symbol)
		)
	`); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE INDEX IF NOT EXISTS idx_stock_prices_symbol
		ON stock_prices(symbol, date)
	`); err != nil {
		return err
	}

	return tx.Commit()
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}

func createBalancesTable(tx *sql.Tx) error {
	return exec(tx, `
		CREATE TABLE IF NOT EXISTS account_balances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_name TEXT NOT NULL,
			date TEXT NOT NULL,
			balance TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT '',
			ticker TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(account_name, date, currency, ticker)
		)
	`)
}

// migrateLegacyBalances rebuilds a single-currency balance table, where
// every amount was already in the pivot currency, into the current layout.
func migrateLegacyBalances(tx *sql.Tx, pivot string) error {
	if err := exec(tx, "ALTER TABLE account_balances RENAME TO account_balances_legacy"); err != nil {
		return err
	}
	if err := exec(tx, "DROP INDEX IF EXISTS idx_account_balances_date"); err != nil {
		return err
	}
	if err := createBalancesTable(tx); err != nil {
		return err
	}
	hasTicker, err := tableHasColumn(tx, "account_balances_legacy", "ticker")
	if err != nil {
		return err
	}
	ticker := "''"
	if hasTicker {
		ticker = "COALESCE(ticker, '')"
	}
	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO account_balances (account_name, date, balance, currency, ticker)
		SELECT TRIM(account_name), substr(date, 1, 10), CAST(balance AS TEXT), ?, %s
		FROM account_balances_legacy
		WHERE account_name IS NOT NULL AND balance IS NOT NULL
	`, ticker)
	if _, err := tx.Exec(query, pivot); err != nil {
		return err
	}
	return exec(tx, "DROP TABLE account_balances_legacy")
}

func tableExists(tx *sql.Tx, table string) (bool, error) {
	var name string
	err := tx.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func tableHasColumn(tx *sql.Tx, table, column string) (bool, error) {
	exists, err := tableExists(tx, table)
	if err != nil || !exists {
		return false, err
	}
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
