package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgch "PricePulse/pkg/clickhouse"
	applogger "PricePulse/pkg/logger"

	"github.com/shopspring/decimal"
)

// CHStore implements Store on ClickHouse. Observations and runs use
// ReplacingMergeTree so re-ingesting a day or re-running a date converges to
// the latest version.
type CHStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHStore(ch *pkgch.Client, l *applogger.Logger) *CHStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHStore{ch: ch, db: ch.DB(), l: l}
}

func (s *CHStore) table(name string) string {
	return s.ch.Database() + "." + name
}

func (s *CHStore) Init(ctx context.Context) error {
	db := s.ch.Database()
	return s.ch.InitSchema(ctx, []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_observations (
			brand       String,
			name        String,
			weight      String,
			date        Date,
			price       Decimal(18, 4),
			ingested_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(ingested_at)
		PARTITION BY toYYYYMM(date)
		ORDER BY (brand, name, weight, date)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.anomaly_runs (
			run_date   Date,
			created_at DateTime64(3),
			records    UInt32
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY run_date`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_anomalies (
			run_date     Date,
			created_at   DateTime64(3),
			position     UInt32,
			brand        String,
			name         String,
			weight       String,
			latest_date  Date,
			latest_price Decimal(18, 4),
			median_price Decimal(18, 4),
			pct_diff     Decimal(18, 4),
			direction    LowCardinality(String),
			reason       String
		) ENGINE = MergeTree
		ORDER BY (run_date, created_at, position)`, db),
	})
}

func (s *CHStore) SaveObservations(ctx context.Context, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	start := time.Now()
	rows := make([][]any, len(obs))
	for i, o := range obs {
		rows[i] = []any{o.Key.Brand, o.Key.Name, o.Weight, o.Date.UTC(), o.Price}
	}
	q := fmt.Sprintf(`INSERT INTO %s (brand, name, weight, date, price)`, s.table("price_observations"))
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		s.l.Error("clickhouse save_observations error", applogger.Int("rows", len(obs)), applogger.Error(err))
		return fmt.Errorf("save observations: %w", err)
	}
	s.l.Debug("clickhouse save_observations ok",
		applogger.Int("rows", len(obs)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHStore) LoadTable(ctx context.Context, from, to time.Time) (models.PriceTable, error) {
	start := time.Now()
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, to.UTC())
	}
	q := fmt.Sprintf(`SELECT brand, name, weight, date, price FROM %s FINAL`, s.table("price_observations"))
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date, brand, name, weight"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse load_table query error", applogger.Error(err))
		return models.PriceTable{}, fmt.Errorf("load table: %w", err)
	}
	defer rows.Close()

	table := models.PriceTable{Columns: models.StandardColumns(), Rows: make([]models.PriceRow, 0, 1024)}
	for rows.Next() {
		var (
			brand, name, weight string
			date                time.Time
			price               decimal.Decimal
		)
		if err := rows.Scan(&brand, &name, &weight, &date, &price); err != nil {
			return models.PriceTable{}, fmt.Errorf("scan observation: %w", err)
		}
		table.Rows = append(table.Rows, priceRow(brand, name, weight, date.UTC(), price))
	}
	if err := rows.Err(); err != nil {
		return models.PriceTable{}, fmt.Errorf("rows: %w", err)
	}
	s.l.Info("clickhouse load_table ok",
		applogger.Int("rows", len(table.Rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return table, nil
}

// SaveReport writes the records first and the run marker last, so a reader
// never sees a run whose records are still missing.
func (s *CHStore) SaveReport(ctx context.Context, report models.Report) error {
	created := time.Now().UTC()
	runDate := report.RunDate.UTC()

	rows := make([][]any, len(report.Records))
	for i, r := range report.Records {
		rows[i] = []any{
			runDate, created, uint32(i),
			r.Brand, r.Name, r.Weight, r.LatestDate.UTC(),
			r.LatestPrice, r.MedianPrice, r.PctDiff,
			string(r.Direction), r.Reason(),
		}
	}
	q := fmt.Sprintf(`INSERT INTO %s (run_date, created_at, position, brand, name, weight,
		latest_date, latest_price, median_price, pct_diff, direction, reason)`, s.table("price_anomalies"))
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		return fmt.Errorf("save anomalies: %w", err)
	}

	q = fmt.Sprintf(`INSERT INTO %s (run_date, created_at, records)`, s.table("anomaly_runs"))
	if err := s.ch.InsertBatch(ctx, q, [][]any{{runDate, created, uint32(len(report.Records))}}); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *CHStore) LatestReport(ctx context.Context) (models.Report, error) {
	var runDate, created time.Time
	q := fmt.Sprintf(`SELECT run_date, created_at FROM %s FINAL ORDER BY run_date DESC LIMIT 1`, s.table("anomaly_runs"))
	err := s.db.QueryRowContext(ctx, q).Scan(&runDate, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, domrepo.ErrNotFound
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("latest run: %w", err)
	}

	q = fmt.Sprintf(`SELECT brand, name, weight, latest_date, latest_price, median_price, pct_diff, direction, reason
		FROM %s WHERE run_date = ? AND created_at = ? ORDER BY position`, s.table("price_anomalies"))
	rows, err := s.db.QueryContext(ctx, q, runDate, created)
	if err != nil {
		return models.Report{}, fmt.Errorf("load anomalies: %w", err)
	}
	defer rows.Close()

	report := models.Report{RunDate: runDate.UTC(), Records: []models.AnomalyRecord{}}
	for rows.Next() {
		var (
			r        models.AnomalyRecord
			dir, rsn string
		)
		if err := rows.Scan(&r.Brand, &r.Name, &r.Weight, &r.LatestDate, &r.LatestPrice, &r.MedianPrice, &r.PctDiff, &dir, &rsn); err != nil {
			return models.Report{}, fmt.Errorf("scan anomaly: %w", err)
		}
		r.LatestDate = r.LatestDate.UTC()
		r.Direction = models.Direction(dir)
		r.Reasons = models.ParseReason(rsn)
		report.Records = append(report.Records, r)
	}
	if err := rows.Err(); err != nil {
		return models.Report{}, fmt.Errorf("rows: %w", err)
	}
	return report, nil
}

func (s *CHStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHStore) Close() error { return s.ch.Close() }

var _ domrepo.Store = (*CHStore)(nil)
