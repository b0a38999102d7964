package mobile

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networth/pkg/networth"
)

// Core wraps the net worth core for gomobile bindings. Every call takes and
// returns JSON strings so the bound API stays within gomobile's types.
type Core struct {
	core *networth.Core
}

// Open initializes the core with a database path and a directory holding the
// category list files. An empty categoryDir disables every category.
func Open(dbPath, categoryDir string) (*Core, error) {
	core, err := networth.OpenWithOptions(networth.Options{
		DBPath:      dbPath,
		CategoryDir: categoryDir,
	})
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// AddBalancesJSON stores a JSON array of balance rows.
func (c *Core) AddBalancesJSON(payloadJSON string) (int, error) {
	var payload []balancePayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return 0, err
	}
	records := make([]networth.BalanceRecord, 0, len(payload))
	for _, p := range payload {
		date, err := networth.ParseDate(p.Date)
		if err != nil {
			return 0, err
		}
		records = append(records, networth.BalanceRecord{
			AccountName: p.AccountName,
			Date:        date,
			Balance:     p.Balance,
			Currency:    p.Currency,
			Ticker:      p.Ticker,
		})
	}
	if err := c.core.UpsertBalances(context.Background(), records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// AddRateJSON stores one exchange rate.
func (c *Core) AddRateJSON(payloadJSON string) error {
	var payload ratePayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return err
	}
	date, err := networth.ParseDate(payload.Date)
	if err != nil {
		return err
	}
	return c.core.UpsertRate(context.Background(), networth.RateRecord{
		Date:   date,
		Base:   payload.BaseCurrency,
		Target: payload.TargetCurrency,
		Rate:   payload.Rate,
		Source: "manual",
	})
}

// ImportValetJSON imports a Bank of Canada Valet document and returns the
// import summary as JSON.
func (c *Core) ImportValetJSON(document string) (string, error) {
	result, err := c.core.ImportValetJSON(context.Background(), strings.NewReader(document))
	if err != nil {
		return "", err
	}
	return marshalJSON(result)
}

// GetSeriesJSON builds the series as of now (YYYY-MM-DD, empty for today)
// and returns the requested window as JSON. requestJSON may be empty.
func (c *Core) GetSeriesJSON(now, requestJSON string) (string, error) {
	var req seriesRequest
	if requestJSON != "" {
		if err := json.Unmarshal([]byte(requestJSON), &req); err != nil {
			return "", err
		}
	}
	tf, err := networth.ParseTimeframe(req.Timeframe)
	if err != nil {
		return "", err
	}
	at, err := dateOrToday(now)
	if err != nil {
		return "", err
	}
	result, err := c.core.BuildSeriesIn(context.Background(), at, req.Currency)
	if err != nil {
		return "", err
	}
	return marshalJSON(seriesResponse{
		Currency: result.DisplayCurrency,
		Now:      networth.FormatDate(result.Now),
		Window:   result.Window(req.Names, tf),
		Issues:   result.Issues,
	})
}

// GetBreakdownJSON returns the composition of category on date as JSON.
func (c *Core) GetBreakdownJSON(category, date string) (string, error) {
	cat, err := networth.ParseCategory(category)
	if err != nil {
		return "", err
	}
	now := networth.Today()
	at, err := dateOrToday(date)
	if err != nil {
		return "", err
	}
	result, err := c.core.BuildSeries(context.Background(), now)
	if err != nil {
		return "", err
	}
	breakdown, err := result.Breakdown(cat, at)
	if err != nil {
		return "", err
	}
	return marshalJSON(breakdown)
}

// Convert converts amount (a decimal string) from one currency to another
// on date and returns the formatted result.
func (c *Core) Convert(amount, from, to, date string) (string, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", networth.WrapError(networth.ErrCodeInvalidInput, "invalid amount", err)
	}
	at, err := dateOrToday(date)
	if err != nil {
		return "", err
	}
	converted, err := c.core.Convert(context.Background(), networth.NewAmount(value), from, to, at)
	if err != nil {
		return "", err
	}
	return networth.FormatAmount(converted, to), nil
}

// SetDisplayCurrency changes the currency later series are reported in.
func (c *Core) SetDisplayCurrency(code string) error {
	return c.core.SetDisplayCurrency(code)
}

// AccountsJSON lists the accounts with at least one balance row.
func (c *Core) AccountsJSON() (string, error) {
	names, err := c.core.AccountNames(context.Background())
	if err != nil {
		return "", err
	}
	return marshalJSON(names)
}

func dateOrToday(value string) (time.Time, error) {
	if value == "" {
		return networth.Today(), nil
	}
	return networth.ParseDate(value)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type balancePayload struct {
	AccountName string          `json:"account_name"`
	Date        string          `json:"date"`
	Balance     networth.Amount `json:"balance"`
	Currency    string          `json:"currency"`
	Ticker      string          `json:"ticker"`
}

type ratePayload struct {
	Date           string          `json:"date"`
	BaseCurrency   string          `json:"base_currency"`
	TargetCurrency string          `json:"target_currency"`
	Rate           networth.Amount `json:"rate"`
}

type seriesRequest struct {
	Names     []string `json:"names"`
	Timeframe string   `json:"timeframe"`
	Currency  string   `json:"currency"`
}

type seriesResponse struct {
	Currency string                 `json:"currency"`
	Now      string                 `json:"now"`
	Window   *networth.WindowResult `json:"window"`
	Issues   []networth.Issue       `json:"issues,omitempty"`
}
