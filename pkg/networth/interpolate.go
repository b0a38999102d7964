package networth

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// interpolate returns the value on the straight line through (prevDate,
// prevValue) and (nextDate, nextValue) at date, measured in whole days.
func interpolate(prevDate time.Time, prevValue decimal.Decimal, nextDate time.Time, nextValue decimal.Decimal, date time.Time) decimal.Decimal {
	span := daysBetween(prevDate, nextDate)
	if span <= 0 {
		return prevValue
	}
	elapsed := daysBetween(prevDate, date)
	return prevValue.Add(
		nextValue.Sub(prevValue).
			Mul(decimal.NewFromInt(elapsed)).
			Div(decimal.NewFromInt(span)),
	)
}

// fillGaps adds a value for every axis date that falls strictly between the
// first and last known dates of values. Known values are never replaced.
func fillGaps(values map[time.Time]decimal.Decimal, axis []time.Time) {
	if len(values) < 2 {
		return
	}
	known := make([]time.Time, 0, len(values))
	for d := range values {
		known = append(known, d)
	}
	sort.Slice(known, func(i, j int) bool { return known[i].Before(known[j]) })
	first, last := known[0], known[len(known)-1]

	for _, d := range axis {
		if !d.After(first) || !d.Before(last) {
			continue
		}
		if _, ok := values[d]; ok {
			continue
		}
		i := sort.Search(len(known), func(i int) bool { return known[i].After(d) })
		prev, next := known[i-1], known[i]
		values[d] = interpolate(prev, values[prev], next, values[next], d)
	}
}

// checkpoints returns dates every interval days from start, stopping before end.
func checkpoints(start, end time.Time, interval int) []time.Time {
	if interval <= 0 || !start.Before(end) {
		return nil
	}
	var out []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, interval) {
		out = append(out, d)
	}
	return out
}
