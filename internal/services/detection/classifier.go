package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"

	domsvc "PricePulse/internal/domain/service"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
	flatTol = decimal.New(1, -9)
)

// Classification holds both anomaly signals for one latest price.
type Classification struct {
	Model    bool
	Manual   bool
	Median   decimal.Decimal
	PctDiff  decimal.Decimal
	Distinct int
	// ModelErr is set when the detector failed; Model is then false.
	ModelErr error
}

// IsAnomaly is true when either signal fired.
func (c Classification) IsAnomaly() bool { return c.Model || c.Manual }

// Classifier combines a percent-from-median rule with an outlier model fit
// over the distinct price levels of a window.
type Classifier struct {
	detector     domsvc.OutlierDetector
	thresholdPct decimal.Decimal
	minDistinct  int
}

func NewClassifier(detector domsvc.OutlierDetector, thresholdPct float64, minDistinct int) *Classifier {
	return &Classifier{
		detector:     detector,
		thresholdPct: decimal.NewFromFloat(thresholdPct),
		minDistinct:  minDistinct,
	}
}

// Classify evaluates latest against the window levels. Levels may contain
// duplicates. ErrFlatPrice and ErrDegenerateMedian mean the entity is skipped.
// A detector failure is reported in Classification.ModelErr, not as an error;
// only context cancellation is returned.
func (c *Classifier) Classify(ctx context.Context, latest decimal.Decimal, levels []decimal.Decimal) (Classification, error) {
	distinct := DistinctLevels(levels)
	if len(distinct) == 0 {
		return Classification{}, fmt.Errorf("%w: no price levels", ErrInsufficientHistory)
	}
	if len(distinct) == 1 && distinct[0].Sub(latest).Abs().LessThan(flatTol) {
		return Classification{}, ErrFlatPrice
	}

	median := Median(distinct)
	if !median.IsPositive() {
		return Classification{}, fmt.Errorf("%w: %s", ErrDegenerateMedian, median)
	}

	pct := latest.Sub(median).Div(median).Mul(hundred)
	out := Classification{
		Median:   median,
		PctDiff:  pct,
		Manual:   pct.Abs().GreaterThanOrEqual(c.thresholdPct),
		Distinct: len(distinct),
	}

	if len(distinct) < c.minDistinct || c.detector == nil {
		return out, nil
	}

	points := make([]float64, len(distinct))
	for i, d := range distinct {
		points[i] = d.InexactFloat64()
	}
	model, err := c.detector.FitAndClassify(ctx, points, latest.InexactFloat64())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Classification{}, err
		}
		out.ModelErr = err
		return out, nil
	}
	out.Model = model
	return out, nil
}

// DistinctLevels returns the unique values in ascending order. Values that
// differ only in trailing zeros are the same level.
func DistinctLevels(levels []decimal.Decimal) []decimal.Decimal {
	if len(levels) == 0 {
		return nil
	}
	s := make([]decimal.Decimal, len(levels))
	copy(s, levels)
	sort.Slice(s, func(i, j int) bool { return s[i].LessThan(s[j]) })

	out := s[:1]
	for _, v := range s[1:] {
		if !v.Equal(out[len(out)-1]) {
			out = append(out, v)
		}
	}
	return out
}

// Median of sorted values; an even count averages the two middle values.
func Median(sorted []decimal.Decimal) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(two)
}
