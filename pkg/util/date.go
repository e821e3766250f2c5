package util

import (
	"strconv"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ParseDate tries ISO dates, compact YYYYMMDD, RFC3339 and unix seconds.
// Returns (t, true) if any worked. Results are in UTC.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// 8-digit strings were already tried as YYYYMMDD above.
	if len(s) != 8 {
		if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
			return time.Unix(ts, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WindowStart returns the inclusive lower bound of a trailing window of
// days calendar days ending at latest.
func WindowStart(latest time.Time, days int) time.Time {
	return latest.AddDate(0, 0, -days)
}

// CompactDate formats t as YYYYMMDD.
func CompactDate(t time.Time) string {
	return t.UTC().Format("20060102")
}
