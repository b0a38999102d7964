package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"networth/pkg/networth"
)

const (
	maxBodySize   = 10 << 20
	maxUploadSize = 32 << 20
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getSeries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tf, err := networth.ParseTimeframe(query.Get("timeframe"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	result, err := h.core.BuildSeriesIn(r.Context(), h.now(), query.Get("currency"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}

	window := result.Window(splitList(query.Get("names")), tf)
	resp := seriesResponse{
		Currency:      result.DisplayCurrency,
		Now:           networth.FormatDate(result.Now),
		Timeframe:     window.Timeframe,
		Start:         window.Start,
		End:           window.End,
		AmountChanged: window.AmountChanged,
		Series:        window.Series,
		Empty:         window.Empty,
		Issues:        result.Issues,
	}
	if resp.Issues == nil {
		resp.Issues = []networth.Issue{}
	}
	if !hasPoints(window.Series) {
		resp.Warning = "no data for the selected series"
	}
	noteIssues(w, len(result.Issues))
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getBreakdown(w http.ResponseWriter, r *http.Request) {
	cat, err := networth.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	query := r.URL.Query()
	now := h.now()
	date, err := parseDateParam(query.Get("date"), now)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	result, err := h.core.BuildSeriesIn(r.Context(), now, query.Get("currency"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	breakdown, err := result.Breakdown(cat, date)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (h *handler) convert(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	value, err := decimal.NewFromString(strings.TrimSpace(query.Get("amount")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	date, err := parseDateParam(query.Get("date"), h.now())
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	from := strings.ToUpper(strings.TrimSpace(query.Get("from")))
	to := strings.ToUpper(strings.TrimSpace(query.Get("to")))
	if to == "" {
		to = h.core.DisplayCurrency()
	}
	if from == "" {
		writeError(w, http.StatusBadRequest, "from is required")
		return
	}
	amount := networth.NewAmount(value)
	converted, err := h.core.Convert(r.Context(), amount, from, to, date)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Date:      networth.FormatDate(date),
		From:      from,
		To:        to,
		Amount:    amount,
		Converted: converted,
		Display:   networth.FormatAmount(converted, to),
	})
}

func (h *handler) getAccounts(w http.ResponseWriter, r *http.Request) {
	names, err := h.core.AccountNames(r.Context())
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *handler) getCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"display_currency": h.core.DisplayCurrency(),
		"currencies":       h.core.Currencies(),
	})
}

func (h *handler) setDisplayCurrency(w http.ResponseWriter, r *http.Request) {
	var payload currencyPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.core.SetDisplayCurrency(payload.Currency); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "display currency updated", map[string]string{
		"display_currency": h.core.DisplayCurrency(),
	})
}

func (h *handler) getAccountGroups(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.core.CategoryConfig()
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	ignored := cfg.IgnoredAccounts()
	if ignored == nil {
		ignored = []string{}
	}
	writeJSON(w, http.StatusOK, groupsResponse{Groups: cfg.Groups(), Ignored: ignored})
}

func (h *handler) getBalances(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseDateParam(query.Get("start_date"), time.Time{})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(query.Get("end_date"), time.Time{})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	records, err := h.core.GetBalances(r.Context(), networth.BalanceFilter{
		Accounts: splitList(query.Get("accounts")),
		Currency: query.Get("currency"),
		From:     from,
		To:       to,
	})
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []networth.BalanceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) upsertBalances(w http.ResponseWriter, r *http.Request) {
	payloads, err := decodeList[balancePayload](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := make([]networth.BalanceRecord, 0, len(payloads))
	for i, p := range payloads {
		date, err := parseDateParam(p.Date, time.Time{})
		if err == nil && date.IsZero() {
			err = networth.NewError(networth.ErrCodeInvalidInput, "date is required")
		}
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("record %d: %w", i+1, err))
			return
		}
		records = append(records, networth.BalanceRecord{
			AccountName: p.AccountName,
			Date:        date,
			Balance:     p.Balance,
			Currency:    p.Currency,
			Ticker:      p.Ticker,
		})
	}
	if err := h.core.UpsertBalances(r.Context(), records); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "balances saved", map[string]int{"saved": len(records)})
}

func (h *handler) importBalances(w http.ResponseWriter, r *http.Request) {
	file, err := uploadedFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	result, err := h.core.ImportBalancesCSV(r.Context(), file)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	noteIssues(w, len(result.Issues))
	writeSuccess(w, result)
}

func (h *handler) getRates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseDateParam(query.Get("start_date"), time.Time{})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(query.Get("end_date"), time.Time{})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	rates, err := h.core.GetRates(r.Context(), networth.RateFilter{
		Base:   query.Get("base"),
		Target: query.Get("target"),
		From:   from,
		To:     to,
	})
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	out := make([]rateResponse, 0, len(rates))
	for _, rate := range rates {
		out = append(out, rateResponse{
			Date:           networth.FormatDate(rate.Date),
			BaseCurrency:   rate.Base,
			TargetCurrency: rate.Target,
			Rate:           rate.Rate,
			Source:         rate.Source,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) upsertRates(w http.ResponseWriter, r *http.Request) {
	payloads, err := decodeList[ratePayload](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := make([]networth.RateRecord, 0, len(payloads))
	for i, p := range payloads {
		date, err := parseDateParam(p.Date, h.now())
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("record %d: %w", i+1, err))
			return
		}
		records = append(records, networth.RateRecord{
			Date:   date,
			Base:   p.BaseCurrency,
			Target: p.TargetCurrency,
			Rate:   p.Rate,
			Source: p.Source,
		})
	}
	if err := h.core.UpsertRates(r.Context(), records); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "rates saved", map[string]int{"saved": len(records)})
}

func (h *handler) nearestRate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, err := parseDateParam(query.Get("date"), h.now())
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	base := strings.ToUpper(strings.TrimSpace(query.Get("base")))
	target := strings.ToUpper(strings.TrimSpace(query.Get("target")))
	if base == "" || target == "" {
		writeError(w, http.StatusBadRequest, "base and target are required")
		return
	}
	rate, ok, err := h.core.NearestRate(r.Context(), date, base, target)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeErrorResponse(w, r, http.StatusNotFound, networth.WrapError(networth.ErrCodeRateNotFound,
			fmt.Sprintf("no %s/%s rate", base, target), networth.ErrRateNotFound))
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{
		Date:           networth.FormatDate(date),
		BaseCurrency:   base,
		TargetCurrency: target,
		Rate:           networth.NewAmount(rate),
	})
}

func (h *handler) importRates(w http.ResponseWriter, r *http.Request) {
	file, err := uploadedFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	result, err := h.core.ImportValetJSON(r.Context(), file)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	noteIssues(w, len(result.Issues))
	writeSuccess(w, result)
}

func (h *handler) refreshRates(w http.ResponseWriter, r *http.Request) {
	since, err := parseDateParam(r.URL.Query().Get("since"), time.Time{})
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	result, err := h.core.RefreshExchangeRates(r.Context(), since)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	noteIssues(w, len(result.Issues))
	writeSuccess(w, result)
}

func (h *handler) upsertPrices(w http.ResponseWriter, r *http.Request) {
	payloads, err := decodeList[pricePayload](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records := make([]networth.PriceRecord, 0, len(payloads))
	for i, p := range payloads {
		date, err := parseDateParam(p.Date, h.now())
		if err != nil {
			writeErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("record %d: %w", i+1, err))
			return
		}
		records = append(records, networth.PriceRecord{
			Date:     date,
			Symbol:   p.Symbol,
			Currency: p.Currency,
			Price:    p.Price,
		})
	}
	if err := h.core.UpsertPrices(r.Context(), records); err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	writeSuccessWithMessage(w, "prices saved", map[string]int{"saved": len(records)})
}

func (h *handler) nearestPrice(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, err := parseDateParam(query.Get("date"), h.now())
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(query.Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	price, ok, err := h.core.NearestPrice(r.Context(), date, symbol)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeErrorResponse(w, r, http.StatusNotFound, networth.WrapError(networth.ErrCodePriceNotFound,
			fmt.Sprintf("no price for %s", symbol), networth.ErrPriceNotFound))
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		Date:   networth.FormatDate(date),
		Symbol: symbol,
		Price:  networth.NewAmount(price),
	})
}

func (h *handler) refreshPrices(w http.ResponseWriter, r *http.Request) {
	results, failures, err := h.core.IngestAllPrices(r.Context())
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []*networth.IngestResult{}
	}
	writeSuccess(w, priceRefreshResponse{Results: results, Failures: failures})
}

// Helpers.

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// decodeList accepts either a single JSON object or an array of them.
func decodeList[T any](r *http.Request) ([]T, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("request body is empty")
	}
	req := r.Clone(r.Context())
	req.Body = io.NopCloser(bytes.NewReader(body))
	if body[0] == '[' {
		var list []T
		if err := decodeJSON(req, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one T
	if err := decodeJSON(req, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

type uploadFile interface {
	io.Reader
	io.Closer
}

func uploadedFile(r *http.Request) (uploadFile, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("file is required")
	}
	return file, nil
}

func parseDateParam(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	date, err := networth.ParseDate(value)
	if err != nil {
		return time.Time{}, networth.WrapError(networth.ErrCodeInvalidInput, fmt.Sprintf("invalid date %q", value), err)
	}
	return date, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hasPoints(set networth.SeriesSet) bool {
	for _, s := range set {
		if len(s) > 0 {
			return true
		}
	}
	return false
}
