package usecase

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/report"
	applogger "PricePulse/pkg/logger"
)

// ReportQuery serves the latest report to readers, cache first.
type ReportQuery struct {
	store  domrepo.AnomalyStore
	cache  domrepo.ReportCache
	ttl    time.Duration
	logger *applogger.Logger
}

// NewReportQuery builds a query; cache may be nil.
func NewReportQuery(store domrepo.AnomalyStore, cache domrepo.ReportCache, ttl time.Duration, logger *applogger.Logger) *ReportQuery {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &ReportQuery{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Latest returns domrepo.ErrNotFound when no run has completed yet. Cache
// failures fall through to the store.
func (q *ReportQuery) Latest(ctx context.Context) (models.Report, error) {
	if q.cache != nil {
		rep, ok, err := q.cache.GetReport(ctx)
		if err != nil {
			q.logger.Warn("report cache read failed", applogger.Error(err))
		} else if ok {
			return rep, nil
		}
	}

	rep, err := q.store.LatestReport(ctx)
	if err != nil {
		return models.Report{}, fmt.Errorf("latest report: %w", err)
	}
	if q.cache != nil {
		if err := q.cache.SetReport(ctx, rep, q.ttl); err != nil {
			q.logger.Warn("report cache fill failed", applogger.Error(err))
		}
	}
	return rep, nil
}

// MoversResult is one side of the movers board.
type MoversResult struct {
	RunDate time.Time              `json:"run_date"`
	Kind    domrepo.MoverKind      `json:"kind"`
	Count   int                    `json:"count"`
	Records []models.AnomalyRecord `json:"records"`
}

func (q *ReportQuery) Movers(ctx context.Context, kind domrepo.MoverKind, limit int) (*MoversResult, error) {
	if !domrepo.IsValidMoverKind(kind) {
		return nil, fmt.Errorf("unknown mover kind %q", kind)
	}
	rep, err := q.Latest(ctx)
	if err != nil {
		return nil, err
	}
	recs := report.Movers(rep.Records, kind, limit)
	return &MoversResult{RunDate: rep.RunDate, Kind: kind, Count: len(recs), Records: recs}, nil
}

// Anomalies returns the latest report narrowed by brand and name substrings.
func (q *ReportQuery) Anomalies(ctx context.Context, brand, name string) (models.Report, error) {
	rep, err := q.Latest(ctx)
	if err != nil {
		return models.Report{}, err
	}
	rep.Records = report.Filter(rep.Records, brand, name)
	return rep, nil
}
