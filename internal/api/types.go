package api

import "networth/pkg/networth"

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
	Source         string          `json:"source"`
}

type currencyPayload struct {
	Currency string `json:"currency"`
}

type pricePayload struct {
	Date     string          `json:"date"`
	Symbol   string          `json:"symbol"`
	Currency string          `json:"currency"`
	Price    networth.Amount `json:"price"`
}

type rateResponse struct {
	Date           string          `json:"date"`
	BaseCurrency   string          `json:"base_currency"`
	TargetCurrency string          `json:"target_currency"`
	Rate           networth.Amount `json:"rate"`
	Source         string          `json:"source,omitempty"`
}

type priceResponse struct {
	Date   string          `json:"date"`
	Symbol string          `json:"symbol"`
	Price  networth.Amount `json:"price"`
}

type seriesResponse struct {
	Currency      string             `json:"currency"`
	Now           string             `json:"now"`
	Timeframe     networth.Timeframe `json:"timeframe"`
	Start         string             `json:"start,omitempty"`
	End           string             `json:"end,omitempty"`
	AmountChanged networth.Amount    `json:"amount_changed"`
	Series        networth.SeriesSet `json:"series"`
	Empty         []string           `json:"empty,omitempty"`
	Issues        []networth.Issue   `json:"issues"`
	Warning       string             `json:"warning,omitempty"`
}

type groupsResponse struct {
	Groups  map[networth.Category][]string `json:"groups"`
	Ignored []string                       `json:"ignored_for_total"`
}

type convertResponse struct {
	Date      string          `json:"date"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    networth.Amount `json:"amount"`
	Converted networth.Amount `json:"converted"`
	Display   string          `json:"display"`
}

type priceRefreshResponse struct {
	Results  []*networth.IngestResult `json:"results"`
	Failures []string                 `json:"failures,omitempty"`
}
