package outlier

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZScoreDetector flags a query whose distance from the mean of the points
// is at least Threshold standard deviations.
type ZScoreDetector struct {
	Threshold float64
}

func NewZScoreDetector(threshold float64) *ZScoreDetector {
	if threshold <= 0 {
		threshold = 2.5
	}
	return &ZScoreDetector{Threshold: threshold}
}

func (d *ZScoreDetector) Name() string { return "zscore" }

func (d *ZScoreDetector) FitAndClassify(ctx context.Context, points []float64, query float64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkPoints(points, 2); err != nil {
		return false, err
	}
	mean, std := stat.MeanStdDev(points, nil)
	if std == 0 || math.IsNaN(std) {
		return false, fmt.Errorf("%w: zero variance", ErrDegenerateFit)
	}
	return math.Abs(query-mean)/std >= d.Threshold, nil
}
