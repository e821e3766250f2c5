package detection

import (
	"testing"

	"PricePulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

func TestBuildRecord(t *testing.T) {
	tests := []struct {
		name    string
		c       Classification
		dir     models.Direction
		reasons string
	}{
		{
			name:    "both signals",
			c:       Classification{Model: true, Manual: true, Median: decimal.RequireFromString("15"), PctDiff: decimal.RequireFromString("33.3333333")},
			dir:     models.DirectionHigher,
			reasons: "model_30d_unique|median_diff_30pct",
		},
		{
			name:    "model at median",
			c:       Classification{Model: true, Median: decimal.RequireFromString("10"), PctDiff: decimal.Zero},
			dir:     models.DirectionNoChange,
			reasons: "model_30d_unique",
		},
		{
			name:    "manual drop",
			c:       Classification{Manual: true, Median: decimal.RequireFromString("10.005"), PctDiff: decimal.RequireFromString("-50.126")},
			dir:     models.DirectionLower,
			reasons: "median_diff_30pct",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest := obs("5", 3)
			latest.Weight = "16 oz"
			rec, ok := BuildRecord(latest, tt.c, 30)
			if !ok {
				t.Fatalf("expected a record")
			}
			if rec.Direction != tt.dir {
				t.Fatalf("direction = %s, want %s", rec.Direction, tt.dir)
			}
			if rec.Reason() != tt.reasons {
				t.Fatalf("reason = %q, want %q", rec.Reason(), tt.reasons)
			}
			if rec.Weight != "16 oz" || rec.Brand != "A" || rec.Name != "Apples" {
				t.Fatalf("unexpected identity %+v", rec)
			}
			if !rec.PctDiff.Equal(tt.c.PctDiff.Round(2)) || !rec.MedianPrice.Equal(tt.c.Median.Round(2)) {
				t.Fatalf("values not rounded: %s %s", rec.PctDiff, rec.MedianPrice)
			}
		})
	}
}

func TestBuildRecordNoSignal(t *testing.T) {
	if _, ok := BuildRecord(obs("5", 0), Classification{PctDiff: decimal.NewFromInt(12)}, 30); ok {
		t.Fatalf("expected no record")
	}
}

func TestManualReasonFormatting(t *testing.T) {
	if got := models.ManualReason(30); got != "median_diff_30pct" {
		t.Fatalf("got %q", got)
	}
	if got := models.ManualReason(12.5); got != "median_diff_12pct" && got != "median_diff_13pct" {
		t.Fatalf("got %q", got)
	}
}
