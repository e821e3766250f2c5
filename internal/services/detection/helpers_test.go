package detection

import (
	"context"
	"errors"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func row(brand *string, name, p string, dayOffset int) models.PriceRow {
	return models.PriceRow{
		Brand:  brand,
		Name:   strp(name),
		Weight: strp("1 lb"),
		Price:  price(p),
		Date:   day0.AddDate(0, 0, dayOffset),
	}
}

// seriesRows builds one row per price on consecutive days.
func seriesRows(brand, name string, prices ...string) []models.PriceRow {
	out := make([]models.PriceRow, len(prices))
	for i, p := range prices {
		out[i] = row(strp(brand), name, p, i)
	}
	return out
}

func table(rows ...[]models.PriceRow) models.PriceTable {
	t := models.PriceTable{Columns: models.StandardColumns()}
	for _, r := range rows {
		t.Rows = append(t.Rows, r...)
	}
	return t
}

func decs(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

// stubDetector returns a fixed verdict and counts calls.
type stubDetector struct {
	verdict bool
	err     error
	calls   int
}

func (s *stubDetector) Name() string { return "stub" }

func (s *stubDetector) FitAndClassify(_ context.Context, _ []float64, _ float64) (bool, error) {
	s.calls++
	return s.verdict, s.err
}

var errStubFit = errors.New("stub fit failed")
