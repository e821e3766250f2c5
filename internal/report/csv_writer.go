package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/util"
)

// FileName returns price_anomalies_YYYYMMDD.csv for runDate.
func FileName(runDate time.Time) string {
	return "price_anomalies_" + util.CompactDate(runDate) + ".csv"
}

// WriteCSV writes the flat header followed by one row per record. An empty
// report still gets its header.
func WriteCSV(w io.Writer, records []models.AnomalyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.FlatHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.FlatRow()); err != nil {
			return fmt.Errorf("write row %s: %w", r.Key(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the report into dir, creating it if needed, and returns
// the file path. The file is written to a temp name and renamed into place.
func WriteFile(dir string, rep models.Report) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, FileName(rep.RunDate))

	tmp, err := os.CreateTemp(dir, ".price_anomalies_*.csv")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, rep.Records); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename report: %w", err)
	}
	return path, nil
}
