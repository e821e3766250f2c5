package detection

import (
	"fmt"
	"strings"

	"PricePulse/internal/domain/models"
)

// Series is the unsorted observation sequence of one entity.
type Series struct {
	Key          models.EntityKey
	Observations []models.Observation
}

// GroupEntities partitions the table by (brand, name) after trimming key
// fields and mapping a missing brand to models.NoBrand. Series come back in
// the order their keys were first seen. Rows without a usable name, price or
// date are dropped and counted.
func GroupEntities(table models.PriceTable) ([]Series, int, error) {
	for _, col := range []string{models.ColName, models.ColPrice} {
		if !table.HasColumn(col) {
			return nil, 0, fmt.Errorf("%w: missing column %q", ErrSchema, col)
		}
	}

	index := make(map[models.EntityKey]int)
	var (
		out     []Series
		dropped int
	)
	for _, row := range table.Rows {
		if row.Name == nil || !row.Price.Valid || row.Date.IsZero() {
			dropped++
			continue
		}
		name := strings.TrimSpace(*row.Name)
		if name == "" {
			dropped++
			continue
		}

		key := models.EntityKey{Brand: normalizeBrand(row.Brand), Name: name}
		obs := models.Observation{
			Key:    key,
			Date:   row.Date,
			Price:  row.Price.Decimal,
			Weight: trimOrEmpty(row.Weight),
		}

		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Series{Key: key})
		}
		out[i].Observations = append(out[i].Observations, obs)
	}
	return out, dropped, nil
}

func normalizeBrand(b *string) string {
	if b == nil {
		return models.NoBrand
	}
	s := strings.TrimSpace(*b)
	if s == "" {
		return models.NoBrand
	}
	return s
}

func trimOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
