package detection

import (
	"fmt"
	"sort"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/util"

	"github.com/shopspring/decimal"
)

// Window is the trailing window ending at an entity's latest observation.
type Window struct {
	Latest       models.Observation
	Observations []models.Observation
}

// Levels returns the window prices, duplicates included.
func (w Window) Levels() []decimal.Decimal {
	out := make([]decimal.Decimal, len(w.Observations))
	for i, o := range w.Observations {
		out[i] = o.Price
	}
	return out
}

// ExtractWindow stable-sorts the series by date and keeps observations dated
// within windowDays of the latest one, both ends inclusive. The input slice
// is not modified.
func ExtractWindow(series []models.Observation, windowDays, minObservations int) (Window, error) {
	if len(series) < minObservations || len(series) == 0 {
		return Window{}, fmt.Errorf("%w: %d observations", ErrInsufficientHistory, len(series))
	}

	sorted := make([]models.Observation, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	latest := sorted[len(sorted)-1]
	latestDay := util.Day(latest.Date)
	start := util.WindowStart(latestDay, windowDays)

	var in []models.Observation
	for _, o := range sorted {
		if d := util.Day(o.Date); !d.Before(start) && !d.After(latestDay) {
			in = append(in, o)
		}
	}
	if len(in) == 0 {
		// The latest observation always falls in its own window.
		return Window{}, fmt.Errorf("%w: empty window", ErrInsufficientHistory)
	}
	return Window{Latest: latest, Observations: in}, nil
}
