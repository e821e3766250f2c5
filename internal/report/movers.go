package report

import (
	"sort"
	"strings"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

// Movers returns deals (negative pct_diff, most negative first) or hikes
// (positive pct_diff, most positive first), at most limit of them. Ties keep
// report order. limit <= 0 means DefaultMoversLimit.
func Movers(records []models.AnomalyRecord, kind domrepo.MoverKind, limit int) []models.AnomalyRecord {
	if limit <= 0 {
		limit = domrepo.DefaultMoversLimit
	}

	out := make([]models.AnomalyRecord, 0, len(records))
	for _, r := range records {
		switch {
		case kind == domrepo.MoverDeal && r.PctDiff.IsNegative():
			out = append(out, r)
		case kind == domrepo.MoverHike && r.PctDiff.IsPositive():
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if kind == domrepo.MoverDeal {
			return out[i].PctDiff.LessThan(out[j].PctDiff)
		}
		return out[i].PctDiff.GreaterThan(out[j].PctDiff)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Filter keeps records whose brand and name contain the given substrings,
// case-insensitively. Empty arguments match everything.
func Filter(records []models.AnomalyRecord, brand, name string) []models.AnomalyRecord {
	brand = strings.ToLower(strings.TrimSpace(brand))
	name = strings.ToLower(strings.TrimSpace(name))
	if brand == "" && name == "" {
		return records
	}

	out := make([]models.AnomalyRecord, 0, len(records))
	for _, r := range records {
		if brand != "" && !strings.Contains(strings.ToLower(r.Brand), brand) {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(r.Name), name) {
			continue
		}
		out = append(out, r)
	}
	return out
}
