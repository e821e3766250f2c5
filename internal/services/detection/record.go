package detection

import (
	"PricePulse/internal/domain/models"
)

// BuildRecord turns a classification into an anomaly record. It returns
// false when neither signal fired.
func BuildRecord(latest models.Observation, c Classification, thresholdPct float64) (models.AnomalyRecord, bool) {
	if !c.IsAnomaly() {
		return models.AnomalyRecord{}, false
	}

	dir := models.DirectionNoChange
	switch c.PctDiff.Sign() {
	case 1:
		dir = models.DirectionHigher
	case -1:
		dir = models.DirectionLower
	}

	reasons := make([]string, 0, 2)
	if c.Model {
		reasons = append(reasons, models.ReasonModel)
	}
	if c.Manual {
		reasons = append(reasons, models.ManualReason(thresholdPct))
	}

	return models.AnomalyRecord{
		Brand:       latest.Key.Brand,
		Name:        latest.Key.Name,
		Weight:      latest.Weight,
		LatestDate:  latest.Date,
		LatestPrice: latest.Price,
		MedianPrice: c.Median.Round(2),
		PctDiff:     c.PctDiff.Round(2),
		Direction:   dir,
		Reasons:     reasons,
	}, true
}
