package detection

import (
	"errors"
	"testing"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

func obs(p string, dayOffset int) models.Observation {
	return models.Observation{
		Key:   models.EntityKey{Brand: "A", Name: "Apples"},
		Date:  day0.AddDate(0, 0, dayOffset),
		Price: decimal.RequireFromString(p),
	}
}

func TestExtractWindowInclusiveBounds(t *testing.T) {
	series := []models.Observation{
		obs("9", 40),
		obs("1", 0),  // 40 days before latest
		obs("2", 9),  // 31 days before latest
		obs("3", 10), // exactly 30 days before latest
		obs("4", 25),
	}

	w, err := ExtractWindow(series, 30, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Latest.Price.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("unexpected latest %s", w.Latest.Price)
	}
	got := w.Levels()
	want := decs("3", "4", "9")
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if series[0].Price.String() != "9" {
		t.Fatalf("input series was reordered")
	}
}

func TestExtractWindowUsesCalendarDays(t *testing.T) {
	at := func(p string, month time.Month, d, hour int) models.Observation {
		return models.Observation{
			Key:   models.EntityKey{Brand: "A", Name: "Apples"},
			Date:  time.Date(2024, month, d, hour, 0, 0, 0, time.UTC),
			Price: decimal.RequireFromString(p),
		}
	}
	series := []models.Observation{
		at("1", time.February, 29, 23), // 31 calendar days before latest
		at("2", time.March, 1, 9),      // boundary day, earlier hour than latest
		at("3", time.March, 15, 0),
		at("4", time.March, 31, 15),
	}

	w, err := ExtractWindow(series, 30, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.Observations) != 3 {
		t.Fatalf("window holds %d observations, want 3", len(w.Observations))
	}
	if !w.Observations[0].Price.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("boundary day dropped, first is %s", w.Observations[0].Price)
	}
}

func TestExtractWindowStableOnTies(t *testing.T) {
	series := []models.Observation{
		obs("1", 0),
		obs("5", 3),
		obs("6", 3),
		obs("7", 3),
	}
	w, err := ExtractWindow(series, 30, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Latest.Price.String() != "7" {
		t.Fatalf("expected last tied observation as latest, got %s", w.Latest.Price)
	}
}

func TestExtractWindowInsufficientHistory(t *testing.T) {
	tests := []struct {
		name   string
		series []models.Observation
	}{
		{"empty", nil},
		{"two", []models.Observation{obs("1", 0), obs("11", 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractWindow(tt.series, 30, 3)
			if !errors.Is(err, ErrInsufficientHistory) {
				t.Fatalf("expected ErrInsufficientHistory, got %v", err)
			}
		})
	}
}
