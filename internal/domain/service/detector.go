package service

import "context"

// OutlierDetector fits an unsupervised one-dimensional model over points and
// reports whether query falls outside it. Implementations must be safe for
// concurrent use and deterministic for identical input.
type OutlierDetector interface {
	Name() string
	FitAndClassify(ctx context.Context, points []float64, query float64) (bool, error)
}
