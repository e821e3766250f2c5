package detection

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/outlier"

	"github.com/shopspring/decimal"
)

func newTestEngine(opts ...EngineOption) *Engine {
	return NewEngine(outlier.NewIsolationForest(), nil, nil, opts...)
}

func TestEngineFlatPriceInvariance(t *testing.T) {
	for _, threshold := range []float64{0.5, 30, 90} {
		e := newTestEngine(WithManualThreshold(threshold))
		res, err := e.Run(context.Background(), table(
			seriesRows("A", "Flat short", "5", "5", "5"),
			seriesRows("A", "Flat long", "2.49", "2.490", "2.49", "2.49", "2.49", "2.49", "2.49", "2.49"),
		))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Records) != 0 {
			t.Fatalf("threshold %v: expected no records, got %v", threshold, res.Records)
		}
		if res.Outcomes[OutcomeFlat] != 2 {
			t.Fatalf("expected 2 flat entities, got %v", res.Outcomes)
		}
	}
}

func TestEngineInsufficientHistory(t *testing.T) {
	res, err := newTestEngine().Run(context.Background(), table(
		seriesRows("A", "Spiky", "1", "11"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 0 {
		t.Fatalf("expected no records, got %v", res.Records)
	}
	if res.Outcomes[OutcomeInsufficient] != 1 {
		t.Fatalf("expected insufficient history, got %v", res.Outcomes)
	}
}

func TestEngineMedianUsesDistinctLevels(t *testing.T) {
	res, err := newTestEngine().Run(context.Background(), table(
		seriesRows("A", "Apples", "10", "10", "10", "10", "20"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	rec := res.Records[0]
	if !rec.MedianPrice.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("median = %s, want 15", rec.MedianPrice)
	}
	if rec.PctDiff.String() != "33.33" {
		t.Fatalf("pct = %s, want 33.33", rec.PctDiff)
	}
	if rec.Direction != models.DirectionHigher {
		t.Fatalf("direction = %s", rec.Direction)
	}
	if rec.Reason() != "median_diff_30pct" {
		t.Fatalf("reason = %q", rec.Reason())
	}
	if !rec.LatestDate.Equal(day0.AddDate(0, 0, 4)) || rec.LatestPrice.String() != "20" {
		t.Fatalf("unexpected latest %s %s", rec.LatestDate, rec.LatestPrice)
	}
}

func TestEngineMissingBrandGrouping(t *testing.T) {
	res, err := newTestEngine().Run(context.Background(), table([]models.PriceRow{
		row(strp(""), "Eggs", "3", 0),
		row(nil, "Eggs", "3", 1),
		row(strp(""), "Eggs", "6", 2),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Entities != 1 {
		t.Fatalf("expected 1 entity, got %d", res.Entities)
	}
	if len(res.Records) != 1 || res.Records[0].Brand != models.NoBrand {
		t.Fatalf("unexpected records %+v", res.Records)
	}
}

func TestEngineWindowExcludesOldHistory(t *testing.T) {
	rows := []models.PriceRow{
		row(strp("A"), "Rice", "100", 0),
		row(strp("A"), "Rice", "10", 40),
		row(strp("A"), "Rice", "10", 41),
		row(strp("A"), "Rice", "10", 42),
	}
	res, err := newTestEngine().Run(context.Background(), table(rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 0 || res.Outcomes[OutcomeFlat] != 1 {
		t.Fatalf("expected flat skip, got %v %v", res.Records, res.Outcomes)
	}
}

func TestEngineModelFailureFallsBack(t *testing.T) {
	e := NewEngine(&stubDetector{err: errStubFit}, nil, nil, WithWorkers(1))
	res, err := e.Run(context.Background(), table(
		seriesRows("A", "Jam", "10", "11", "12", "20"),
		seriesRows("A", "Tea", "10", "11", "12", "11"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ModelFailures != 2 {
		t.Fatalf("expected 2 model failures, got %d", res.ModelFailures)
	}
	if len(res.Records) != 1 || res.Records[0].Name != "Jam" {
		t.Fatalf("unexpected records %+v", res.Records)
	}
	if res.Records[0].Reason() != "median_diff_30pct" {
		t.Fatalf("reason = %q", res.Records[0].Reason())
	}
}

func TestEngineDegenerateMedianSkipped(t *testing.T) {
	res, err := newTestEngine().Run(context.Background(), table(
		seriesRows("A", "Broken", "-2", "0", "1"),
		seriesRows("A", "Apples", "10", "10", "10", "10", "20"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcomes[OutcomeDegenerate] != 1 {
		t.Fatalf("expected a degenerate skip, got %v", res.Outcomes)
	}
	if len(res.Records) != 1 || res.Records[0].Name != "Apples" {
		t.Fatalf("unexpected records %+v", res.Records)
	}
	if got := res.Skipped(); got[OutcomeDegenerate] != 1 || got[OutcomeFlagged] != 0 {
		t.Fatalf("unexpected skipped map %v", got)
	}
}

func TestEngineReproducible(t *testing.T) {
	tbl := table(
		seriesRows("A", "Apples", "10", "10", "10", "10", "20"),
		seriesRows("B", "Bread", "2.10", "2.20", "2.15", "2.05", "2.12", "4.99"),
		seriesRows("C", "Cheese", "7", "7.10", "6.90", "7.05", "6.95", "7"),
		seriesRows("D", "Dates", "3", "3.5", "4", "2.1"),
		seriesRows("E", "Eggs", "5", "5", "5"),
	)

	first, err := newTestEngine(WithWorkers(4)).Run(context.Background(), tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := newTestEngine(WithWorkers(1)).Run(context.Background(), tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Fatalf("runs differ:\n%v\n%v", first.Records, second.Records)
	}
	if len(first.Records) == 0 {
		t.Fatalf("expected some records")
	}
}

func TestEngineOrderFollowsFirstSeen(t *testing.T) {
	res, err := newTestEngine(WithWorkers(3)).Run(context.Background(), table(
		seriesRows("Z", "Zucchini", "1", "1", "3"),
		seriesRows("A", "Apples", "10", "10", "10", "10", "20"),
		seriesRows("M", "Mango", "4", "4", "1"),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, r := range res.Records {
		got = append(got, r.Name)
	}
	want := []string{"Zucchini", "Apples", "Mango"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestEngineSchemaError(t *testing.T) {
	_, err := newTestEngine().Run(context.Background(), models.PriceTable{Columns: []string{"brand", "name"}})
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine().Run(ctx, table(seriesRows("A", "Apples", "1", "2", "3")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
