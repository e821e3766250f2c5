package detection

import (
	"context"
	"errors"
	"testing"

	"PricePulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

func TestClassifyThresholdSymmetry(t *testing.T) {
	c := NewClassifier(&stubDetector{}, 30, 3)
	levels := decs("10", "10", "10", "10", "10")

	tests := []struct {
		latest string
		dir    models.Direction
		pct    string
	}{
		{"13.5", models.DirectionHigher, "35"},
		{"6.5", models.DirectionLower, "-35"},
	}
	for _, tt := range tests {
		t.Run(tt.latest, func(t *testing.T) {
			got, err := c.Classify(context.Background(), decimal.RequireFromString(tt.latest), levels)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Manual || got.Model {
				t.Fatalf("expected manual-only signal, got %+v", got)
			}
			if !got.PctDiff.Equal(decimal.RequireFromString(tt.pct)) {
				t.Fatalf("pct = %s, want %s", got.PctDiff, tt.pct)
			}

			rec, ok := BuildRecord(obs(tt.latest, 0), got, 30)
			if !ok {
				t.Fatalf("expected a record")
			}
			if rec.Direction != tt.dir {
				t.Fatalf("direction = %s, want %s", rec.Direction, tt.dir)
			}
			if len(rec.Reasons) != 1 || rec.Reasons[0] != "median_diff_30pct" {
				t.Fatalf("unexpected reasons %v", rec.Reasons)
			}
		})
	}
}

func TestClassifySubThreshold(t *testing.T) {
	det := &stubDetector{verdict: true}
	c := NewClassifier(det, 30, 3)

	got, err := c.Classify(context.Background(), decimal.RequireFromString("11.0"), decs("10", "10", "10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsAnomaly() {
		t.Fatalf("expected no anomaly, got %+v", got)
	}
	if det.calls != 0 {
		t.Fatalf("model must not run with fewer than 3 distinct levels")
	}
	if _, ok := BuildRecord(obs("11", 0), got, 30); ok {
		t.Fatalf("expected no record")
	}
}

func TestClassifyFlatPrice(t *testing.T) {
	c := NewClassifier(&stubDetector{verdict: true}, 1, 3)
	_, err := c.Classify(context.Background(), decimal.RequireFromString("2.490"), decs("2.49", "2.49", "2.4900"))
	if !errors.Is(err, ErrFlatPrice) {
		t.Fatalf("expected ErrFlatPrice, got %v", err)
	}
}

func TestClassifyDegenerateMedian(t *testing.T) {
	c := NewClassifier(&stubDetector{}, 30, 3)
	_, err := c.Classify(context.Background(), decimal.RequireFromString("1"), decs("-2", "0", "1"))
	if !errors.Is(err, ErrDegenerateMedian) {
		t.Fatalf("expected ErrDegenerateMedian, got %v", err)
	}
}

func TestClassifyModelOnly(t *testing.T) {
	det := &stubDetector{verdict: true}
	c := NewClassifier(det, 30, 3)

	got, err := c.Classify(context.Background(), decimal.RequireFromString("11.5"), decs("10", "10.5", "11", "11.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Model || got.Manual {
		t.Fatalf("expected model-only signal, got %+v", got)
	}
	rec, ok := BuildRecord(obs("11.5", 0), got, 30)
	if !ok {
		t.Fatalf("expected a record")
	}
	if len(rec.Reasons) != 1 || rec.Reasons[0] != models.ReasonModel {
		t.Fatalf("unexpected reasons %v", rec.Reasons)
	}
	if rec.MedianPrice.String() != "10.75" {
		t.Fatalf("median = %s", rec.MedianPrice)
	}
}

func TestClassifyModelFailureFallsBack(t *testing.T) {
	c := NewClassifier(&stubDetector{err: errStubFit}, 30, 3)

	got, err := c.Classify(context.Background(), decimal.RequireFromString("20"), decs("10", "11", "12", "20"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(got.ModelErr, errStubFit) {
		t.Fatalf("expected model error to be recorded, got %v", got.ModelErr)
	}
	if got.Model || !got.Manual {
		t.Fatalf("expected manual-only signal, got %+v", got)
	}
}

func TestClassifyCancelled(t *testing.T) {
	c := NewClassifier(&stubDetector{err: context.Canceled}, 30, 3)
	_, err := c.Classify(context.Background(), decimal.RequireFromString("20"), decs("10", "11", "20"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDistinctLevelsAndMedian(t *testing.T) {
	tests := []struct {
		name   string
		in     []decimal.Decimal
		levels int
		median string
	}{
		{"collapses repeats", decs("10", "10", "10", "10", "20"), 2, "15"},
		{"trailing zeros", decs("2.49", "2.490", "3"), 2, "2.745"},
		{"odd", decs("5", "1", "3"), 3, "3"},
		{"single", decs("7"), 1, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistinctLevels(tt.in)
			if len(d) != tt.levels {
				t.Fatalf("got %d levels, want %d", len(d), tt.levels)
			}
			if m := Median(d); !m.Equal(decimal.RequireFromString(tt.median)) {
				t.Fatalf("median = %s, want %s", m, tt.median)
			}
		})
	}
}
