package networth

import (
	"time"

	"github.com/shopspring/decimal"
)

// aggregate computes "net worth", "total" and one series per configured
// category from the per-account series. Net worth and total carry a point
// on every date any account has; a category only where one of its members
// has a value. A configured category with no qualifying members still gets
// an empty series.
func aggregate(accounts SeriesSet, cfg *CategoryConfig) SeriesSet {
	byAccount := make(map[string]map[time.Time]decimal.Decimal, len(accounts))
	dates := map[time.Time]struct{}{}
	for name, s := range accounts {
		values := make(map[time.Time]decimal.Decimal, len(s))
		for _, p := range s {
			values[p.Date] = p.Value.Decimal
			dates[p.Date] = struct{}{}
		}
		byAccount[name] = values
	}

	netWorth := make(map[time.Time]decimal.Decimal, len(dates))
	total := make(map[time.Time]decimal.Decimal, len(dates))
	for d := range dates {
		netWorth[d] = decimal.Zero
		total[d] = decimal.Zero
	}
	for name, values := range byAccount {
		ignored := cfg.Ignored(name)
		for d, v := range values {
			netWorth[d] = netWorth[d].Add(v)
			if !ignored {
				total[d] = total[d].Add(v)
			}
		}
	}

	out := SeriesSet{
		SeriesNetWorth: seriesFromMap(netWorth),
		SeriesTotal:    seriesFromMap(total),
	}
	categoryValues := map[string]map[time.Time]decimal.Decimal{}
	for _, cat := range cfg.Enabled() {
		members, _ := cfg.Members(cat)
		sum := map[time.Time]decimal.Decimal{}
		for member := range members {
			values, ok := byAccount[member]
			if !ok && cat == CategorySummary {
				// Summary may also list other category series by name.
				values = categoryValues[member]
			}
			for d, v := range values {
				sum[d] = sum[d].Add(v)
			}
		}
		categoryValues[string(cat)] = sum
		out[string(cat)] = seriesFromMap(sum)
	}
	return out
}
