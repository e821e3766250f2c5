package detection

import (
	"errors"
	"testing"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

func TestGroupEntitiesMissingBrand(t *testing.T) {
	tbl := table([]models.PriceRow{
		row(strp(""), "Milk", "3.00", 0),
		row(nil, "Milk", "3.10", 1),
		row(strp("   "), " Milk ", "3.20", 2),
	})

	series, dropped, err := GroupEntities(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("expected no dropped rows, got %d", dropped)
	}
	if len(series) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(series))
	}
	if series[0].Key.Brand != models.NoBrand || series[0].Key.Name != "Milk" {
		t.Fatalf("unexpected key %+v", series[0].Key)
	}
	if len(series[0].Observations) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(series[0].Observations))
	}
}

func TestGroupEntitiesFirstSeenOrder(t *testing.T) {
	tbl := table([]models.PriceRow{
		row(strp("B"), "Beans", "1", 0),
		row(strp("A"), "Apples", "2", 0),
		row(strp("B"), "Beans", "1", 1),
		row(strp(" A"), "Apples ", "2", 1),
		row(strp("C"), "Corn", "3", 0),
	})

	series, _, err := GroupEntities(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"B|Beans", "A|Apples", "C|Corn"}
	if len(series) != len(want) {
		t.Fatalf("expected %d entities, got %d", len(want), len(series))
	}
	for i, w := range want {
		if series[i].Key.String() != w {
			t.Fatalf("position %d: got %s, want %s", i, series[i].Key, w)
		}
	}
}

func TestGroupEntitiesDropsUnusableRows(t *testing.T) {
	good := row(strp("A"), "Apples", "2", 0)
	noName := row(strp("A"), "", "2", 0)
	nilName := good
	nilName.Name = nil
	nullPrice := good
	nullPrice.Price = decimal.NullDecimal{}
	noDate := good
	noDate.Date = time.Time{}

	series, dropped, err := GroupEntities(table([]models.PriceRow{good, noName, nilName, nullPrice, noDate}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 4 {
		t.Fatalf("expected 4 dropped rows, got %d", dropped)
	}
	if len(series) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(series))
	}
}

func TestGroupEntitiesSchema(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
	}{
		{"no price", []string{"brand", "name", "date"}},
		{"no name", []string{"brand", "price", "date"}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := GroupEntities(models.PriceTable{Columns: tt.columns})
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("expected ErrSchema, got %v", err)
			}
		})
	}
}
