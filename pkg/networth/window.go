package networth

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe selects how far back a window reaches from now.
type Timeframe string

const (
	TimeframeAll         Timeframe = "all"
	TimeframeLastYear    Timeframe = "1y"
	TimeframeLast6Months Timeframe = "6m"
	TimeframeLast3Months Timeframe = "3m"
	TimeframeLastMonth   Timeframe = "1m"
)

var timeframeDays = map[Timeframe]int{
	TimeframeLastYear:    365,
	TimeframeLast6Months: 182,
	TimeframeLast3Months: 91,
	TimeframeLastMonth:   30,
}

var timeframeAliases = map[string]Timeframe{
	"":              TimeframeAll,
	"all":           TimeframeAll,
	"all time":      TimeframeAll,
	"1y":            TimeframeLastYear,
	"last year":     TimeframeLastYear,
	"6m":            TimeframeLast6Months,
	"last 6 months": TimeframeLast6Months,
	"3m":            TimeframeLast3Months,
	"last 3 months": TimeframeLast3Months,
	"1m":            TimeframeLastMonth,
	"last month":    TimeframeLastMonth,
}

// ParseTimeframe accepts the short codes and their spelled-out labels.
func ParseTimeframe(value string) (Timeframe, error) {
	tf, ok := timeframeAliases[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return "", NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown timeframe: %s", value))
	}
	return tf, nil
}

// Start returns the first date inside the timeframe, or false for all.
func (tf Timeframe) Start(now time.Time) (time.Time, bool) {
	days, ok := timeframeDays[tf]
	if !ok {
		return time.Time{}, false
	}
	return Day(now).AddDate(0, 0, -days), true
}

// WindowResult holds selected series trimmed to a timeframe.
type WindowResult struct {
	Timeframe Timeframe `json:"timeframe"`
	Series    SeriesSet `json:"series"`
	// Start and End bound the dates left in the window; both are empty
	// when nothing remains.
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	// AmountChanged sums, over the selected series, the last value at or
	// before End minus the last value at or before Start.
	AmountChanged Amount `json:"amount_changed"`
	// Empty names the requested series that have no points in the window.
	Empty []string `json:"empty,omitempty"`
}

// Window trims the named series (all series when names is empty) to tf.
func (r *BuildResult) Window(names []string, tf Timeframe) *WindowResult {
	selected, empty := r.Select(names...)
	out := &WindowResult{Timeframe: tf, Series: SeriesSet{}, Empty: empty}
	start, bounded := tf.Start(r.Now)

	var first, last time.Time
	for name, s := range selected {
		kept := s
		if bounded {
			kept = Series{}
			for _, p := range s {
				if !p.Date.Before(start) {
					kept = append(kept, p)
				}
			}
		}
		out.Series[name] = kept
		if len(kept) == 0 {
			if len(s) > 0 {
				out.Empty = append(out.Empty, name)
			}
			continue
		}
		if first.IsZero() || kept[0].Date.Before(first) {
			first = kept[0].Date
		}
		if kept[len(kept)-1].Date.After(last) {
			last = kept[len(kept)-1].Date
		}
	}
	sort.Strings(out.Empty)
	if first.IsZero() {
		return out
	}

	changed := decimal.Zero
	for name := range out.Series {
		s := selected[name]
		if v, ok := s.LastAtOrBefore(last); ok {
			changed = changed.Add(v.Decimal)
		}
		if v, ok := s.LastAtOrBefore(first); ok {
			changed = changed.Sub(v.Decimal)
		}
	}
	out.Start = FormatDate(first)
	out.End = FormatDate(last)
	out.AmountChanged = Amount{changed}
	return out
}
