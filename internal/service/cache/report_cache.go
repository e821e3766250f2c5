package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/domain/repository"
	pkgcache "PricePulse/pkg/cache"
)

const reportKey = "report:latest"

// ReportCache stores the latest anomaly report in a pkg/cache backend.
type ReportCache struct {
	svc pkgcache.Service
}

func NewReportCache(svc pkgcache.Service) *ReportCache {
	return &ReportCache{svc: svc}
}

// GetReport reports ok=false on a miss; only backend failures are errors.
func (c *ReportCache) GetReport(ctx context.Context) (models.Report, bool, error) {
	var r models.Report
	if err := c.svc.Get(ctx, reportKey, &r); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return models.Report{}, false, nil
		}
		return models.Report{}, false, fmt.Errorf("get cached report: %w", err)
	}
	return r, true, nil
}

func (c *ReportCache) SetReport(ctx context.Context, report models.Report, ttl time.Duration) error {
	if err := c.svc.Set(ctx, reportKey, report, ttl); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

func (c *ReportCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.svc.TryLock(ctx, pkgcache.GenerateKey("lock", key), ttl)
}

func (c *ReportCache) Unlock(ctx context.Context, key string) error {
	return c.svc.Unlock(ctx, pkgcache.GenerateKey("lock", key))
}

var _ repository.ReportCache = (*ReportCache)(nil)
