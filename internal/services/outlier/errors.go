package outlier

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateFit is returned when a model cannot be fit to the given points.
var ErrDegenerateFit = errors.New("degenerate fit")

func checkPoints(points []float64, min int) error {
	if len(points) < min {
		return fmt.Errorf("%w: need at least %d points, got %d", ErrDegenerateFit, min, len(points))
	}
	first := points[0]
	constant := true
	for _, p := range points {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: non-finite point %v", ErrDegenerateFit, p)
		}
		if p != first {
			constant = false
		}
	}
	if constant {
		return fmt.Errorf("%w: constant input", ErrDegenerateFit)
	}
	return nil
}
