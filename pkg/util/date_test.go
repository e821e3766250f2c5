package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   string
	}{
		{"iso", "2024-10-10"},
		{"compact", "20241010"},
		{"rfc3339", "2024-10-10T00:00:00Z"},
		{"datetime", "2024-10-10 00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if !ok {
				t.Fatalf("expected ok for %q", tt.in)
			}
			if !got.Equal(want) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestParseDateUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseDate(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "2024-13-40"} {
		if _, ok := ParseDate(s); ok {
			t.Fatalf("expected %q to fail", s)
		}
	}
}

func TestWindowStart(t *testing.T) {
	latest := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	got := WindowStart(latest, 30)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDayAndCompact(t *testing.T) {
	in := time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC)
	if got := Day(in); got.Hour() != 0 || got.Day() != 2 {
		t.Fatalf("unexpected day %v", got)
	}
	if got := CompactDate(in); got != "20240102" {
		t.Fatalf("got %q", got)
	}
}
