package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

func newMemStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func day(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

func obs(brand, name string, d int, price string) models.Observation {
	return models.Observation{
		Key:    models.EntityKey{Brand: brand, Name: name},
		Date:   day(d),
		Price:  decimal.RequireFromString(price),
		Weight: "1 lb",
	}
}

func TestSQLiteStore_ObservationsRoundTrip(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	in := []models.Observation{
		obs("Acme", "Apples", 3, "2.49"),
		obs("", "Bananas", 1, "0.59"),
		obs("Acme", "Apples", 1, "2.29"),
		obs("Acme", "Apples", 2, "2.39"),
	}
	if err := s.SaveObservations(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	// same key and day replaces the price
	if err := s.SaveObservations(ctx, []models.Observation{obs("Acme", "Apples", 3, "2.59")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	table, err := s.LoadTable(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(table.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(table.Rows))
	}
	if !table.HasColumn(models.ColPrice) || !table.HasColumn(models.ColName) {
		t.Fatalf("columns = %v", table.Columns)
	}
	for i := 1; i < len(table.Rows); i++ {
		if table.Rows[i].Date.Before(table.Rows[i-1].Date) {
			t.Fatalf("rows not ordered by date at %d", i)
		}
	}
	last := table.Rows[len(table.Rows)-1]
	if *last.Name != "Apples" || !last.Price.Decimal.Equal(decimal.RequireFromString("2.59")) {
		t.Fatalf("last row = %s %s", *last.Name, last.Price.Decimal)
	}
	for _, r := range table.Rows {
		if *r.Name == "Bananas" && *r.Brand != "" {
			t.Fatalf("empty brand should round-trip as empty, got %q", *r.Brand)
		}
	}
}

func TestSQLiteStore_LoadTableRange(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	var in []models.Observation
	for d := 1; d <= 10; d++ {
		in = append(in, obs("Acme", "Milk", d, "3.00"))
	}
	if err := s.SaveObservations(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"unbounded", time.Time{}, time.Time{}, 10},
		{"from only", day(8), time.Time{}, 3},
		{"to only", time.Time{}, day(2), 2},
		{"inclusive both", day(3), day(5), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := s.LoadTable(ctx, tt.from, tt.to)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(table.Rows) != tt.want {
				t.Fatalf("rows = %d, want %d", len(table.Rows), tt.want)
			}
		})
	}
}

func TestSQLiteStore_Reports(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	if _, err := s.LatestReport(ctx); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec := func(name, pct string, dir models.Direction) models.AnomalyRecord {
		return models.AnomalyRecord{
			Brand:       "Acme",
			Name:        name,
			Weight:      "1 lb",
			LatestDate:  day(30),
			LatestPrice: decimal.RequireFromString("13.5"),
			MedianPrice: decimal.RequireFromString("10"),
			PctDiff:     decimal.RequireFromString(pct),
			Direction:   dir,
			Reasons:     []string{models.ReasonModel, "median_diff_30pct"},
		}
	}

	first := models.Report{RunDate: day(30), Records: []models.AnomalyRecord{rec("Old", "35", models.DirectionHigher)}}
	if err := s.SaveReport(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := models.Report{RunDate: day(31), Records: []models.AnomalyRecord{
		rec("Zeta", "35", models.DirectionHigher),
		rec("Alpha", "-40", models.DirectionLower),
	}}
	if err := s.SaveReport(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := s.LatestReport(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !got.RunDate.Equal(day(31)) {
		t.Fatalf("run date = %v", got.RunDate)
	}
	if len(got.Records) != 2 || got.Records[0].Name != "Zeta" || got.Records[1].Name != "Alpha" {
		t.Fatalf("records out of order: %+v", got.Records)
	}
	r := got.Records[1]
	if !r.PctDiff.Equal(decimal.NewFromInt(-40)) || r.Direction != models.DirectionLower {
		t.Fatalf("record = %+v", r)
	}
	if r.Reason() != "model_30d_unique|median_diff_30pct" {
		t.Fatalf("reason = %q", r.Reason())
	}

	// rerun of the same day replaces its records
	if err := s.SaveReport(ctx, models.Report{RunDate: day(31)}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, err = s.LatestReport(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(got.Records) != 0 {
		t.Fatalf("expected replaced report to be empty, got %d", len(got.Records))
	}
}
