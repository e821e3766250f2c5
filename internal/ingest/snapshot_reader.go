package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"PricePulse/internal/domain/models"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/util"
)

// ErrMissingColumns marks a CSV file without name or price; such files are skipped.
var ErrMissingColumns = errors.New("missing required columns")

// SnapshotConfig holds snapshot reader settings.
type SnapshotConfig struct {
	Dir          string
	LookbackDays int
	Now          func() time.Time
}

// SnapshotOption configures SnapshotReader.
type SnapshotOption func(*SnapshotConfig)

func WithLookbackDays(days int) SnapshotOption {
	return func(c *SnapshotConfig) { c.LookbackDays = days }
}

func WithClock(now func() time.Time) SnapshotOption {
	return func(c *SnapshotConfig) { c.Now = now }
}

// SnapshotReader loads per-day scraper folders named YYYYMMDD. Every folder
// date inside the lookback range contributes the rows of its CSV files.
type SnapshotReader struct {
	cfg    SnapshotConfig
	logger *applogger.Logger
}

func NewSnapshotReader(dir string, logger *applogger.Logger, opts ...SnapshotOption) *SnapshotReader {
	cfg := SnapshotConfig{Dir: dir, LookbackDays: 30, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &SnapshotReader{cfg: cfg, logger: logger}
}

// ReadTable reads all snapshot folders in [today - lookback, today].
// A lookback of 0 reads every dated folder.
func (r *SnapshotReader) ReadTable(ctx context.Context) (models.PriceTable, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return models.PriceTable{}, fmt.Errorf("read data dir: %w", err)
	}

	today := util.Day(r.cfg.Now())
	from := today.AddDate(0, 0, -r.cfg.LookbackDays)

	var folders []string
	dates := make(map[string]time.Time)
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) != 8 {
			continue
		}
		d, err := time.Parse("20060102", e.Name())
		if err != nil {
			continue
		}
		if d.After(today) || (r.cfg.LookbackDays > 0 && d.Before(from)) {
			continue
		}
		folders = append(folders, e.Name())
		dates[e.Name()] = d
	}
	sort.Strings(folders)

	table := models.PriceTable{Columns: models.StandardColumns()}
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return models.PriceTable{}, err
		}
		files, err := filepath.Glob(filepath.Join(r.cfg.Dir, folder, "*.csv"))
		if err != nil {
			return models.PriceTable{}, fmt.Errorf("glob %s: %w", folder, err)
		}
		sort.Strings(files)
		for _, path := range files {
			base := strings.ToLower(filepath.Base(path))
			if strings.Contains(base, "combined") || strings.Contains(base, "anomalies") {
				continue
			}
			rows, err := readSnapshotFile(path, dates[folder])
			if err != nil {
				r.logger.Warn("skipping snapshot file",
					applogger.String("path", path),
					applogger.Error(err))
				continue
			}
			table.Rows = append(table.Rows, rows...)
		}
	}

	r.logger.Info("snapshot folders loaded",
		applogger.Int("folders", len(folders)),
		applogger.Int("rows", len(table.Rows)))
	return table, nil
}

func readSnapshotFile(path string, date time.Time) ([]models.PriceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	nameIdx, okName := cols[models.ColName]
	priceIdx, okPrice := cols[models.ColPrice]
	if !okName || !okPrice {
		return nil, ErrMissingColumns
	}
	brandIdx, okBrand := cols[models.ColBrand]
	weightIdx, okWeight := cols[models.ColWeight]

	field := func(rec []string, i int, ok bool) string {
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []models.PriceRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		name := strings.TrimSpace(field(rec, nameIdx, true))
		brand := strings.TrimSpace(field(rec, brandIdx, okBrand))
		weight := CleanWeight(field(rec, weightIdx, okWeight))

		row := models.PriceRow{
			Brand:  &brand,
			Weight: &weight,
			Price:  ParsePrice(field(rec, priceIdx, true)),
			Date:   date,
		}
		if name != "" {
			row.Name = &name
		}
		rows = append(rows, row)
	}
	return rows, nil
}
