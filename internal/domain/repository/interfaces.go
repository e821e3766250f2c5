package repository

import (
	"context"
	"time"

	"PricePulse/internal/domain/models"
)

// ObservationStore persists cleaned observations and serves the engine input table.
type ObservationStore interface {
	Init(ctx context.Context) error
	SaveObservations(ctx context.Context, obs []models.Observation) error
	// LoadTable returns all observations with date in [from, to] as a price table.
	// A zero from or to leaves that side unbounded.
	LoadTable(ctx context.Context, from, to time.Time) (models.PriceTable, error)
	Health(ctx context.Context) error
	Close() error
}

// AnomalyStore persists run reports.
type AnomalyStore interface {
	SaveReport(ctx context.Context, report models.Report) error
	// LatestReport returns ErrNotFound when no run has been stored.
	LatestReport(ctx context.Context) (models.Report, error)
}

// Store is the combined storage backend selected by configuration.
type Store interface {
	ObservationStore
	AnomalyStore
}

// AnomalyPublisher announces anomaly records to downstream consumers.
type AnomalyPublisher interface {
	PublishAnomalies(ctx context.Context, runDate time.Time, records []models.AnomalyRecord) error
	Close() error
}

// ReportCache keeps the latest report close to the API and guards run overlap.
type ReportCache interface {
	GetReport(ctx context.Context) (models.Report, bool, error)
	SetReport(ctx context.Context, report models.Report, ttl time.Duration) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RunNotifier pushes run summaries to live subscribers.
type RunNotifier interface {
	NotifyRun(summary models.RunSummary)
}

type Metrics interface {
	RecordRun(status string, seconds float64)
	RecordEntity(outcome string)
	RecordFlagged(direction string)
	RecordModelFailure(model string)
	RecordObservations(source string, n int)
	RecordError(kind string)
}
