package ingest

import (
	"regexp"
	"strings"

	"PricePulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

var (
	priceReplacer = strings.NewReplacer("$", "", ",", "")
	avgWeight     = regexp.MustCompile(`(?i)avg\.\s*([^/]+)`)
)

// ParsePrice strips currency symbols and thousands separators. Anything that
// is still not a positive number comes back null.
func ParsePrice(s string) decimal.NullDecimal {
	s = strings.TrimSpace(priceReplacer.Replace(s))
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// CleanWeight reduces "avg. 3 lb/piece" to "3 lb"; other labels pass through.
func CleanWeight(s string) string {
	if m := avgWeight.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// Observations converts usable table rows into observations. Brand stays as
// ingested; normalisation happens at grouping time.
func Observations(table models.PriceTable) ([]models.Observation, int) {
	out := make([]models.Observation, 0, len(table.Rows))
	skipped := 0
	for _, r := range table.Rows {
		if r.Name == nil || strings.TrimSpace(*r.Name) == "" || !r.Price.Valid || r.Date.IsZero() {
			skipped++
			continue
		}
		var brand, weight string
		if r.Brand != nil {
			brand = strings.TrimSpace(*r.Brand)
		}
		if r.Weight != nil {
			weight = *r.Weight
		}
		out = append(out, models.Observation{
			Key:    models.EntityKey{Brand: brand, Name: strings.TrimSpace(*r.Name)},
			Date:   r.Date,
			Price:  r.Price.Decimal,
			Weight: weight,
		})
	}
	return out, skipped
}
