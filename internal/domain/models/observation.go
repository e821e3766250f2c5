package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoBrand stands in for a missing or blank brand so unbranded products
// group together.
const NoBrand = "(no brand)"

// Column names recognised in a price table.
const (
	ColBrand  = "brand"
	ColName   = "name"
	ColWeight = "weight"
	ColPrice  = "price"
	ColDate   = "date"
)

// EntityKey identifies one product across days.
type EntityKey struct {
	Brand string `json:"brand"`
	Name  string `json:"name"`
}

func (k EntityKey) String() string { return k.Brand + "|" + k.Name }

// Observation is one cleaned daily price for one product.
type Observation struct {
	Key    EntityKey
	Date   time.Time
	Price  decimal.Decimal
	Weight string
}

// PriceRow is a raw table row as produced by ingestion. Any field may be
// missing; the grouper decides what is usable.
type PriceRow struct {
	Brand  *string
	Name   *string
	Weight *string
	Price  decimal.NullDecimal
	Date   time.Time
}

// PriceTable is the engine input.
type PriceTable struct {
	Columns []string
	Rows    []PriceRow
}

// HasColumn reports whether the table schema carries the named column.
func (t PriceTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// StandardColumns is the full schema written by ingestion.
func StandardColumns() []string {
	return []string{ColBrand, ColName, ColWeight, ColPrice, ColDate}
}
