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
	applogger "PricePulse/pkg/logger"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS observations (
		brand  TEXT NOT NULL,
		name   TEXT NOT NULL,
		weight TEXT NOT NULL,
		date   TEXT NOT NULL,
		price  TEXT NOT NULL,
		PRIMARY KEY (brand, name, weight, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_observations_date ON observations (date)`,
	`CREATE TABLE IF NOT EXISTS anomaly_runs (
		run_date   TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		records    INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS anomalies (
		run_date     TEXT NOT NULL,
		position     INTEGER NOT NULL,
		brand        TEXT NOT NULL,
		name         TEXT NOT NULL,
		weight       TEXT NOT NULL,
		latest_date  TEXT NOT NULL,
		latest_price TEXT NOT NULL,
		median_price TEXT NOT NULL,
		pct_diff     TEXT NOT NULL,
		direction    TEXT NOT NULL,
		reason       TEXT NOT NULL,
		PRIMARY KEY (run_date, position)
	)`,
}

// SQLiteStore keeps observations and reports in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewSQLiteStore opens path (":memory:" for a throwaway database). The pool is
// pinned to one connection so an in-memory database is shared by all queries.
func NewSQLiteStore(path string, l *applogger.Logger) (*SQLiteStore, error) {
	if l == nil {
		l = applogger.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite wal: %w", err)
		}
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite busy_timeout: %w", err)
	}
	return &SQLiteStore{db: db, l: l}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

// SaveObservations upserts by (brand, name, weight, date) in one transaction.
func (s *SQLiteStore) SaveObservations(ctx context.Context, obs []models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO observations (brand, name, weight, date, price) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.Key.Brand, o.Key.Name, o.Weight, o.Date.UTC().Format(dateLayout), o.Price.String()); err != nil {
			_ = tx.Rollback()
			s.l.Error("sqlite save_observations exec error", applogger.String("key", o.Key.String()), applogger.Error(err))
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.l.Debug("sqlite save_observations ok",
		applogger.Int("rows", len(obs)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *SQLiteStore) LoadTable(ctx context.Context, from, to time.Time) (models.PriceTable, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, from.UTC().Format(dateLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, to.UTC().Format(dateLayout))
	}
	q := `SELECT brand, name, weight, date, price FROM observations`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date, rowid"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return models.PriceTable{}, fmt.Errorf("load table: %w", err)
	}
	defer rows.Close()

	table := models.PriceTable{Columns: models.StandardColumns()}
	for rows.Next() {
		var (
			brand, name, weight, date string
			price                     decimal.Decimal
		)
		if err := rows.Scan(&brand, &name, &weight, &date, &price); err != nil {
			return models.PriceTable{}, fmt.Errorf("scan observation: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return models.PriceTable{}, fmt.Errorf("parse date %q: %w", date, err)
		}
		table.Rows = append(table.Rows, priceRow(brand, name, weight, d, price))
	}
	if err := rows.Err(); err != nil {
		return models.PriceTable{}, fmt.Errorf("rows: %w", err)
	}
	return table, nil
}

// SaveReport replaces any report already stored for the same run date.
func (s *SQLiteStore) SaveReport(ctx context.Context, report models.Report) error {
	runDate := report.RunDate.UTC().Format(dateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM anomalies WHERE run_date = ?`, runDate); err != nil {
		return fmt.Errorf("clear anomalies: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO anomaly_runs (run_date, created_at, records) VALUES (?, ?, ?)`,
		runDate, time.Now().UTC().Format(time.RFC3339Nano), len(report.Records)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO anomalies
		(run_date, position, brand, name, weight, latest_date, latest_price, median_price, pct_diff, direction, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Records {
		if _, err := stmt.ExecContext(ctx, runDate, i,
			r.Brand, r.Name, r.Weight, r.LatestDate.UTC().Format(dateLayout),
			r.LatestPrice.String(), r.MedianPrice.String(), r.PctDiff.String(),
			string(r.Direction), r.Reason()); err != nil {
			return fmt.Errorf("insert anomaly: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LatestReport(ctx context.Context) (models.Report, error) {
	var runDate string
	err := s.db.QueryRowContext(ctx, `SELECT run_date FROM anomaly_runs ORDER BY run_date DESC LIMIT 1`).Scan(&runDate)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, domrepo.ErrNotFound
	}
	if err != nil {
		return models.Report{}, fmt.Errorf("latest run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT brand, name, weight, latest_date, latest_price, median_price, pct_diff, direction, reason
		FROM anomalies WHERE run_date = ? ORDER BY position`, runDate)
	if err != nil {
		return models.Report{}, fmt.Errorf("load anomalies: %w", err)
	}
	defer rows.Close()

	rd, err := time.Parse(dateLayout, runDate)
	if err != nil {
		return models.Report{}, fmt.Errorf("parse run date %q: %w", runDate, err)
	}
	report := models.Report{RunDate: rd, Records: []models.AnomalyRecord{}}
	for rows.Next() {
		var (
			r                models.AnomalyRecord
			latest, dir, rsn string
		)
		if err := rows.Scan(&r.Brand, &r.Name, &r.Weight, &latest, &r.LatestPrice, &r.MedianPrice, &r.PctDiff, &dir, &rsn); err != nil {
			return models.Report{}, fmt.Errorf("scan anomaly: %w", err)
		}
		if r.LatestDate, err = time.Parse(dateLayout, latest); err != nil {
			return models.Report{}, fmt.Errorf("parse latest date %q: %w", latest, err)
		}
		r.Direction = models.Direction(dir)
		r.Reasons = models.ParseReason(rsn)
		report.Records = append(report.Records, r)
	}
	if err := rows.Err(); err != nil {
		return models.Report{}, fmt.Errorf("rows: %w", err)
	}
	return report, nil
}

func (s *SQLiteStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func priceRow(brand, name, weight string, date time.Time, price decimal.Decimal) models.PriceRow {
	return models.PriceRow{
		Brand:  &brand,
		Name:   &name,
		Weight: &weight,
		Price:  decimal.NewNullDecimal(price),
		Date:   date,
	}
}

var _ domrepo.Store = (*SQLiteStore)(nil)
