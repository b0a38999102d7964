package networth

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BreakdownEntry is one member's share of a category on a date.
type BreakdownEntry struct {
	Name  string `json:"name"`
	Value Amount `json:"value"`
}

// Breakdown splits a category into its members on one date. Entry values are
// absolute and zero entries are left out; Total is the signed sum.
type Breakdown struct {
	Category Category         `json:"category"`
	Date     string           `json:"date"`
	Currency string           `json:"currency"`
	Entries  []BreakdownEntry `json:"entries"`
	Total    Amount           `json:"total"`
}

// Breakdown returns the composition of cat on date. Member values come from
// the built series, interpolated when date falls between two points.
func (r *BuildResult) Breakdown(cat Category, date time.Time) (*Breakdown, error) {
	members, ok := r.categories.Members(cat)
	if !ok {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("category %s is not configured", cat))
	}
	date = Day(date)
	out := &Breakdown{
		Category: cat,
		Date:     FormatDate(date),
		Currency: r.DisplayCurrency,
		Entries:  []BreakdownEntry{},
	}
	total := decimal.Zero
	for _, name := range members.Sorted() {
		s, ok := r.accountSeries[name]
		if !ok && cat == CategorySummary {
			s, ok = r.Series[name]
		}
		if !ok {
			continue
		}
		v, ok := s.ValueAt(date)
		if !ok {
			continue
		}
		total = total.Add(v.Decimal)
		if v.IsZero() {
			continue
		}
		out.Entries = append(out.Entries, BreakdownEntry{Name: name, Value: Amount{v.Abs()}})
	}
	sort.SliceStable(out.Entries, func(i, j int) bool {
		return out.Entries[i].Value.GreaterThan(out.Entries[j].Value.Decimal)
	})
	out.Total = Amount{total}
	return out, nil
}
