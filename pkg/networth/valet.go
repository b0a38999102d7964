package networth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	valetBaseURL         = "https://www.bankofcanada.ca/valet/observations/group/FX_RATES_DAILY/json"
	maxValetBodySize     = 32 << 20
	defaultValetLookback = 365
)

var valetFetcher = fetchValetObservations

// ValetImportResult summarizes one Valet import.
type ValetImportResult struct {
	Imported int      `json:"imported"`
	Pairs    []string `json:"pairs"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Issues   []Issue  `json:"issues,omitempty"`
}

type valetDocument struct {
	SeriesDetail map[string]struct {
		Label string `json:"label"`
	} `json:"seriesDetail"`
	Observations []map[string]json.RawMessage `json:"observations"`
}

type valetObservation struct {
	V json.RawMessage `json:"v"`
}

// ImportValetJSON reads a Bank of Canada Valet observations document and
// stores every rate it carries. Each series is mapped to a currency pair
// through its "BASE/TARGET" label.
func (c *Core) ImportValetJSON(ctx context.Context, r io.Reader) (*ValetImportResult, error) {
	var doc valetDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, WrapError(ErrCodeInvalidInput, "decode valet document", err)
	}
	records, result := parseValet(doc)
	if err := c.UpsertRates(ctx, records); err != nil {
		return nil, err
	}
	result.Imported = len(records)
	for _, issue := range result.Issues {
		c.logger.Warn("valet import issue", issue.logArgs()...)
	}
	c.logger.Info("valet rates imported", "imported", result.Imported, "pairs", len(result.Pairs), "from", result.From, "to", result.To)
	return result, nil
}

func parseValet(doc valetDocument) ([]RateRecord, *ValetImportResult) {
	result := &ValetImportResult{Pairs: []string{}}
	pairs := map[string][2]string{}
	for series, detail := range doc.SeriesDetail {
		base, target, ok := strings.Cut(detail.Label, "/")
		base, target = normalizeCurrency(base), normalizeCurrency(target)
		if !ok || base == "" || target == "" || base == target {
			continue
		}
		pairs[series] = [2]string{base, target}
		result.Pairs = append(result.Pairs, base+"/"+target)
	}
	sort.Strings(result.Pairs)

	var records []RateRecord
	var first, last time.Time
	for i, obs := range doc.Observations {
		var rawDate string
		if err := json.Unmarshal(obs["d"], &rawDate); err != nil || rawDate == "" {
			continue
		}
		date, err := ParseDate(rawDate)
		if err != nil {
			result.Issues = append(result.Issues, Issue{Kind: IssueMalformedRow, Row: i + 1, Detail: err.Error()})
			continue
		}
		series := make([]string, 0, len(obs))
		for key := range obs {
			series = append(series, key)
		}
		sort.Strings(series)
		for _, key := range series {
			pair, ok := pairs[key]
			if key == "d" || !ok {
				continue
			}
			var value valetObservation
			if err := json.Unmarshal(obs[key], &value); err != nil {
				continue
			}
			raw := strings.Trim(strings.TrimSpace(string(value.V)), `"`)
			if raw == "" || raw == "null" {
				continue
			}
			rate, err := decimal.NewFromString(raw)
			if err != nil || !rate.IsPositive() {
				result.Issues = append(result.Issues, Issue{
					Kind:     IssueMalformedRow,
					Date:     FormatDate(date),
					Currency: pair[0],
					Row:      i + 1,
					Detail:   fmt.Sprintf("%s: invalid rate %q", key, raw),
				})
				continue
			}
			records = append(records, RateRecord{
				Date:   date,
				Base:   pair[0],
				Target: pair[1],
				Rate:   Amount{rate},
				Source: rateSourceValet,
			})
		}
		if first.IsZero() || date.Before(first) {
			first = date
		}
		if date.After(last) {
			last = date
		}
	}
	if !first.IsZero() {
		result.From = FormatDate(first)
		result.To = FormatDate(last)
	}
	return records, result
}

// RefreshExchangeRates downloads the daily Valet FX group starting at since
// and stores it. A zero since resumes after the latest stored USD/CAD rate,
// or a year back when there is none.
func (c *Core) RefreshExchangeRates(ctx context.Context, since time.Time) (*ValetImportResult, error) {
	if since.IsZero() {
		latest, ok, err := c.latestRateDate(ctx, "USD", "CAD")
		if err != nil {
			return nil, err
		}
		if ok {
			since = latest.AddDate(0, 0, 1)
		} else {
			since = Today().AddDate(0, 0, -defaultValetLookback)
		}
	}
	client := &http.Client{Timeout: c.httpTimeout}
	body, err := valetFetcher(ctx, client, Day(since))
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "fetch valet observations", err)
	}
	return c.ImportValetJSON(ctx, bytes.NewReader(body))
}

func fetchValetObservations(ctx context.Context, client *http.Client, since time.Time) ([]byte, error) {
	url := fmt.Sprintf("%s?start_date=%s", valetBaseURL, FormatDate(since))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NetWorth/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxValetBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
