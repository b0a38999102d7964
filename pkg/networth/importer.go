package networth

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// balanceRow is one line of a balance spreadsheet export.
type balanceRow struct {
	Account  string `csv:"account"`
	Date     string `csv:"date"`
	Balance  string `csv:"balance"`
	Currency string `csv:"currency"`
	Ticker   string `csv:"ticker"`
}

var headerAliases = map[string]string{
	"account_name": "account",
	"accountname":  "account",
	"name":         "account",
	"amount":       "balance",
	"symbol":       "ticker",
}

var requiredColumns = []string{"account", "date", "balance"}

// ImportResult summarizes a spreadsheet import.
type ImportResult struct {
	Imported int     `json:"imported"`
	Skipped  int     `json:"skipped"`
	Issues   []Issue `json:"issues,omitempty"`
}

// ImportBalancesCSV reads balance rows with the columns account, date,
// balance, currency and ticker and upserts every valid row. Rows whose date
// or balance cannot be parsed are skipped and reported; row numbers count
// the header as row 1.
func (c *Core) ImportBalancesCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := &headerNormalizer{r: csv.NewReader(r)}
	reader.r.FieldsPerRecord = -1
	reader.r.TrimLeadingSpace = true

	var rows []balanceRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return &ImportResult{}, nil
		}
		return nil, WrapError(ErrCodeInvalidInput, "parse csv", err)
	}
	if missing := reader.missing(); len(missing) > 0 {
		return nil, NewError(ErrCodeInvalidInput, fmt.Sprintf("missing columns: %s", strings.Join(missing, ", ")))
	}

	records, result := parseBalanceRows(rows)
	if err := c.UpsertBalances(ctx, records); err != nil {
		return nil, err
	}
	result.Imported = len(records)
	for _, issue := range result.Issues {
		c.logger.Warn("import row skipped", issue.logArgs()...)
	}
	c.logger.Info("balances imported", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func parseBalanceRows(rows []balanceRow) ([]BalanceRecord, *ImportResult) {
	result := &ImportResult{}
	records := make([]BalanceRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		account := normalizeAccount(row.Account)
		if account == "" {
			result.skip(Issue{Kind: IssueMalformedRow, Row: line, Detail: "account is empty"})
			continue
		}
		date, err := ParseDate(row.Date)
		if err != nil {
			result.skip(Issue{Kind: IssueMalformedRow, Account: account, Row: line, Detail: err.Error()})
			continue
		}
		balance, err := parseBalance(row.Balance)
		if err != nil {
			result.skip(Issue{Kind: IssueMalformedRow, Account: account, Date: FormatDate(date), Row: line, Detail: err.Error()})
			continue
		}
		records = append(records, BalanceRecord{
			AccountName: account,
			Date:        date,
			Balance:     Amount{balance},
			Currency:    normalizeCurrency(row.Currency),
			Ticker:      normalizeSymbol(row.Ticker),
		})
	}
	return records, result
}

func (r *ImportResult) skip(issue Issue) {
	r.Skipped++
	r.Issues = append(r.Issues, issue)
}

var balanceStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "", "\u00a0", "")

// parseBalance accepts spreadsheet renderings such as "$1,234.56" and
// "(12.00)" for negatives.
func parseBalance(value string) (decimal.Decimal, error) {
	cleaned := balanceStripper.Replace(strings.TrimSpace(value))
	negative := strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")")
	if negative {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("balance is empty")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid balance %q", value)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// headerNormalizer lower-cases the header row and maps common aliases so
// exports from different spreadsheets bind to balanceRow.
type headerNormalizer struct {
	r      *csv.Reader
	header []string
}

func (h *headerNormalizer) Read() ([]string, error) {
	rec, err := h.r.Read()
	if err != nil || h.header != nil {
		return rec, err
	}
	for i, col := range rec {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		col = strings.ReplaceAll(col, " ", "_")
		if alias, ok := headerAliases[col]; ok {
			col = alias
		}
		rec[i] = col
	}
	h.header = rec
	return rec, nil
}

func (h *headerNormalizer) ReadAll() ([][]string, error) {
	var out [][]string
	for {
		rec, err := h.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func (h *headerNormalizer) missing() []string {
	var out []string
	for _, want := range requiredColumns {
		found := false
		for _, col := range h.header {
			if col == want {
				found = true
				break
			}
		}
		if !found {
			out = append(out, want)
		}
	}
	return out
}
