package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used for daily bars.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, a plain date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// TruncateDay drops the clock part of t in its own location.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParsePeriod converts a lookback such as "30d", "6mo", "1y" or "2w" into a start date
// relative to now. "max" yields the zero time (no lower bound).
func ParsePeriod(period string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" {
		return time.Time{}, fmt.Errorf("empty period")
	}
	if p == "max" {
		return time.Time{}, nil
	}
	if p == "ytd" {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	}

	var unit string
	for _, u := range []string{"mo", "d", "w", "y"} {
		if strings.HasSuffix(p, u) {
			unit = u
			break
		}
	}
	if unit == "" {
		return time.Time{}, fmt.Errorf("unknown period unit in %q", period)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid period %q", period)
	}

	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "w":
		return now.AddDate(0, 0, -7*n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(-n, 0, 0), nil
	}
}
