package networth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertBalance_ReplacesSameKey(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, core.UpsertBalance(ctx, balance(t, " Chequing ", "2024-01-01", "100", "cad", "")))
	require.NoError(t, core.UpsertBalance(ctx, balance(t, "Chequing", "2024-01-01", "120.55", "CAD", "")))
	require.NoError(t, core.UpsertBalance(ctx, balance(t, "Chequing", "2024-01-01", "5", "USD", "")))
	require.NoError(t, core.UpsertBalance(ctx, balance(t, "Brokerage", "2024-01-01", "3", "USD", "nan")))

	records, err := core.ScanBalances(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Brokerage", records[0].AccountName)
	assert.Equal(t, "", records[0].Ticker)
	assert.Equal(t, "Chequing", records[1].AccountName)
	assert.Equal(t, "CAD", records[1].Currency)
	assert.True(t, records[1].Balance.Equal(dec("120.55")))
}

func TestUpsertBalances_RejectsInvalidBatch(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	err := core.UpsertBalances(ctx, []BalanceRecord{
		balance(t, "Chequing", "2024-01-01", "1", "CAD", ""),
		{AccountName: "", Date: date(t, "2024-01-01"), Balance: MustAmount("1")},
	})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeInvalidInput))

	records, err := core.ScanBalances(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetBalances_Filter(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, core.UpsertBalances(ctx, []BalanceRecord{
		balance(t, "A", "2024-01-01", "1", "CAD", ""),
		balance(t, "A", "2024-02-01", "2", "CAD", ""),
		balance(t, "B", "2024-02-01", "3", "USD", ""),
		balance(t, "C", "2024-03-01", "4", "EUR", ""),
	}))

	got, err := core.GetBalances(ctx, BalanceFilter{Accounts: []string{"A", "B"}, From: date(t, "2024-02-01")})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].AccountName)
	assert.Equal(t, "B", got[1].AccountName)

	got, err = core.GetBalances(ctx, BalanceFilter{Currency: "eur", To: date(t, "2024-12-31")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].AccountName)

	names, err := core.AccountNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names)

	currencies, err := core.BalanceCurrencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CAD", "EUR", "USD"}, currencies)
}

func TestOpen_MigratesLegacyBalances(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE account_balances (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_name TEXT NOT NULL,
			date TEXT NOT NULL,
			balance REAL NOT NULL
		)
	`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO account_balances (account_name, date, balance) VALUES
		('Chequing', '2023-05-01 00:00:00', 1500.25),
		('Savings', '2023-05-01', 20000)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	core, err := OpenWithOptions(Options{DBPath: dbPath, PivotCurrency: "CAD"})
	require.NoError(t, err)
	defer core.Close()

	records, err := core.ScanBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Chequing", records[0].AccountName)
	assert.Equal(t, "2023-05-01", FormatDate(records[0].Date))
	assert.Equal(t, "CAD", records[0].Currency)
	assert.True(t, records[0].Balance.Equal(dec("1500.25")))

	// Reopening an already migrated database is a no-op.
	require.NoError(t, core.Close())
	core, err = Open(dbPath)
	require.NoError(t, err)
	defer core.Close()
	records, err = core.ScanBalances(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestClosedDatabase(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	require.NoError(t, core.Close())

	_, err := core.ScanBalances(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeDatabase))

	_, err = core.BuildSeries(context.Background(), Today())
	assert.Error(t, err, "a store failure is fatal to a build")
}
