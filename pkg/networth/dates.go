package networth

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// Day truncates t to midnight of its calendar date, expressed in UTC so that
// day arithmetic never crosses a DST boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in the local time zone.
func Today() time.Time {
	return Day(time.Now())
}

// ParseDate parses a YYYY-MM-DD date. Spreadsheet exports that append a
// time of day ("2024-01-05 00:00:00", "2024-01-05T00:00:00Z") are accepted
// and truncated.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) && (value[len(DateLayout)] == ' ' || value[len(DateLayout)] == 'T') {
		value = value[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// daysBetween returns the whole number of days from a to b. Both must be
// values produced by Day.
func daysBetween(a, b time.Time) int64 {
	return int64(b.Sub(a) / day)
}
