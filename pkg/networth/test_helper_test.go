package networth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// setupTestDB creates a temporary database for testing and returns a Core instance.
// The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T, opts ...func(*Options)) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "networth-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	options := Options{DBPath: filepath.Join(tmpDir, "test.db")}
	for _, opt := range opts {
		opt(&options)
	}
	core, err := OpenWithOptions(options)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}
	return core, cleanup
}

func withCategories(cfg *CategoryConfig) func(*Options) {
	return func(o *Options) { o.Categories = cfg }
}

// date parses a YYYY-MM-DD literal.
func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value)
	if err != nil {
		t.Fatalf("bad date literal %q: %v", value, err)
	}
	return d
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func balance(t *testing.T, account, day, amount, currency, ticker string) BalanceRecord {
	t.Helper()
	return BalanceRecord{
		AccountName: account,
		Date:        date(t, day),
		Balance:     MustAmount(amount),
		Currency:    currency,
		Ticker:      ticker,
	}
}

func addRate(t *testing.T, core *Core, day, base, target, rate string) {
	t.Helper()
	err := core.UpsertRate(context.Background(), RateRecord{
		Date:   date(t, day),
		Base:   base,
		Target: target,
		Rate:   MustAmount(rate),
	})
	if err != nil {
		t.Fatalf("UpsertRate %s %s/%s: %v", day, base, target, err)
	}
}

// decimalComparer compares decimals by value so "67.50" equals "67.5".
var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// assertSeries fails the test if s does not hold exactly want.
func assertSeries(t *testing.T, name string, s Series, want map[string]string) {
	t.Helper()
	got := map[string]decimal.Decimal{}
	for _, p := range s {
		got[FormatDate(p.Date)] = p.Value.Decimal
	}
	expected := map[string]decimal.Decimal{}
	for d, v := range want {
		expected[d] = dec(v)
	}
	if diff := cmp.Diff(expected, got, decimalComparer); diff != "" {
		t.Errorf("%s series mismatch (-want +got):\n%s", name, diff)
	}
}

// mapRates is an in-memory RateLookup keyed by "BASE/TARGET".
type mapRates map[string][]RateRecord

func (m mapRates) add(t *testing.T, day, base, target, rate string) {
	t.Helper()
	key := base + "/" + target
	m[key] = append(m[key], RateRecord{Date: date(t, day), Base: base, Target: target, Rate: MustAmount(rate)})
}

func (m mapRates) NearestRate(_ context.Context, d time.Time, base, target string) (decimal.Decimal, bool, error) {
	return nearestIn(m[base+"/"+target], d)
}

func nearestIn(rows []RateRecord, d time.Time) (decimal.Decimal, bool, error) {
	var before, after *RateRecord
	for i := range rows {
		r := &rows[i]
		if !r.Date.After(d) && (before == nil || r.Date.After(before.Date)) {
			before = r
		}
		if !r.Date.Before(d) && (after == nil || r.Date.Before(after.Date)) {
			after = r
		}
	}
	if before != nil {
		return before.Rate.Decimal, true, nil
	}
	if after != nil {
		return after.Rate.Decimal, true, nil
	}
	return decimal.Decimal{}, false, nil
}
