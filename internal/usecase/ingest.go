package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/ingest"
	applogger "PricePulse/pkg/logger"
)

const ingestChunk = 5000

// IngestResult counts what one snapshot import did.
type IngestResult struct {
	Rows    int `json:"rows"`
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// SnapshotIngester imports per-day CSV snapshot folders into the store.
type SnapshotIngester struct {
	store    domrepo.ObservationStore
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	lookback int
	now      func() time.Time
}

func NewSnapshotIngester(store domrepo.ObservationStore, metrics domrepo.Metrics, logger *applogger.Logger, lookbackDays int) *SnapshotIngester {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &SnapshotIngester{store: store, metrics: metrics, logger: logger, lookback: lookbackDays, now: time.Now}
}

func (uc *SnapshotIngester) Ingest(ctx context.Context, dir string) (IngestResult, error) {
	reader := ingest.NewSnapshotReader(dir, uc.logger,
		ingest.WithLookbackDays(uc.lookback),
		ingest.WithClock(uc.now),
	)
	table, err := reader.ReadTable(ctx)
	if err != nil {
		return IngestResult{}, fmt.Errorf("read snapshots: %w", err)
	}

	obs, skipped := ingest.Observations(table)
	res := IngestResult{Rows: len(table.Rows), Skipped: skipped}

	for start := 0; start < len(obs); start += ingestChunk {
		end := min(start+ingestChunk, len(obs))
		if err := uc.store.SaveObservations(ctx, obs[start:end]); err != nil {
			return res, fmt.Errorf("save observations: %w", err)
		}
		res.Saved = end
	}
	if uc.metrics != nil {
		uc.metrics.RecordObservations("csv", res.Saved)
	}

	uc.logger.Info("snapshot ingest finished",
		applogger.String("dir", dir),
		applogger.Int("rows", res.Rows),
		applogger.Int("saved", res.Saved),
		applogger.Int("skipped", res.Skipped),
	)
	return res, nil
}
