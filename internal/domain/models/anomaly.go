package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionHigher   Direction = "higher_vs_30d_median"
	DirectionLower    Direction = "lower_vs_30d_median"
	DirectionNoChange Direction = "no_change"
)

// ReasonModel tags records flagged by the outlier model.
const ReasonModel = "model_30d_unique"

// ManualReason tags records flagged by the percent rule, e.g. median_diff_30pct.
func ManualReason(thresholdPct float64) string {
	return fmt.Sprintf("median_diff_%.0fpct", thresholdPct)
}

// AnomalyRecord describes one confirmed anomalous latest price.
type AnomalyRecord struct {
	Brand       string          `json:"brand"`
	Name        string          `json:"name"`
	Weight      string          `json:"weight"`
	LatestDate  time.Time       `json:"latest_date"`
	LatestPrice decimal.Decimal `json:"latest_price"`
	MedianPrice decimal.Decimal `json:"median_price_30d"`
	PctDiff     decimal.Decimal `json:"pct_diff_vs_30d_median"`
	Direction   Direction       `json:"direction"`
	Reasons     []string        `json:"reason"`
}

func (r AnomalyRecord) Key() EntityKey { return EntityKey{Brand: r.Brand, Name: r.Name} }

// Reason joins the reason tags with "|".
func (r AnomalyRecord) Reason() string { return strings.Join(r.Reasons, "|") }

// FlatHeader is the column order of FlatRow.
var FlatHeader = []string{
	"brand", "name", "weight", "latest_date", "latest_price",
	"median_price_30d", "pct_diff_vs_30d_median", "direction", "reason",
}

// FlatRow serialises the record for CSV and tabular output.
func (r AnomalyRecord) FlatRow() []string {
	return []string{
		r.Brand,
		r.Name,
		r.Weight,
		r.LatestDate.Format("2006-01-02"),
		r.LatestPrice.String(),
		r.MedianPrice.StringFixed(2),
		r.PctDiff.StringFixed(2),
		string(r.Direction),
		r.Reason(),
	}
}

// ParseReason splits a joined reason back into tags.
func ParseReason(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "|")
}

// Report is the persisted output of one run.
type Report struct {
	RunDate time.Time       `json:"run_date"`
	Records []AnomalyRecord `json:"records"`
}

// RunSummary is announced after every run.
type RunSummary struct {
	RunDate         time.Time      `json:"run_date"`
	StartedAt       time.Time      `json:"started_at"`
	DurationMS      int64          `json:"duration_ms"`
	Entities        int            `json:"entities"`
	Flagged         int            `json:"flagged"`
	SkippedByReason map[string]int `json:"skipped_by_reason"`
	ModelFailures   int            `json:"model_failures"`
	ReportPath      string         `json:"report_path,omitempty"`
}
