package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/repository"
	"PricePulse/internal/services/detection"
	svccache "PricePulse/internal/service/cache"
	pkgcache "PricePulse/pkg/cache"
)

var runClock = time.Date(2024, 5, 31, 9, 30, 0, 0, time.UTC)

func day(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

func newStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return s
}

func newReportCache(t *testing.T) *svccache.ReportCache {
	t.Helper()
	mem := pkgcache.NewMemoryCache(pkgcache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mem.Close() })
	return svccache.NewReportCache(mem)
}

// seed stores one price per consecutive day ending on firstDay+len-1.
func seed(t *testing.T, s *repository.SQLiteStore, brand, name string, firstDay int, prices ...string) {
	t.Helper()
	obs := make([]models.Observation, len(prices))
	for i, p := range prices {
		obs[i] = models.Observation{
			Key:    models.EntityKey{Brand: brand, Name: name},
			Date:   day(firstDay + i),
			Price:  decimal.RequireFromString(p),
			Weight: "1 lb",
		}
	}
	if err := s.SaveObservations(context.Background(), obs); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

type quietDetector struct{}

func (quietDetector) Name() string { return "quiet" }

func (quietDetector) FitAndClassify(context.Context, []float64, float64) (bool, error) {
	return false, nil
}

func newEngine() *detection.Engine {
	return detection.NewEngine(quietDetector{}, nil, nil, detection.WithWorkers(2))
}

type capturePublisher struct {
	mu      sync.Mutex
	runDate time.Time
	records []models.AnomalyRecord
	err     error
}

func (p *capturePublisher) PublishAnomalies(_ context.Context, runDate time.Time, records []models.AnomalyRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runDate = runDate
	p.records = append(p.records, records...)
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

type captureNotifier struct {
	summaries []models.RunSummary
}

func (n *captureNotifier) NotifyRun(s models.RunSummary) { n.summaries = append(n.summaries, s) }

type countingMetrics struct {
	mu     sync.Mutex
	runs   map[string]int
	errors map[string]int
	obs    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{runs: map[string]int{}, errors: map[string]int{}, obs: map[string]int{}}
}

func (m *countingMetrics) RecordRun(status string, _ float64) {
	m.mu.Lock()
	m.runs[status]++
	m.mu.Unlock()
}
func (m *countingMetrics) RecordEntity(string)       {}
func (m *countingMetrics) RecordFlagged(string)      {}
func (m *countingMetrics) RecordModelFailure(string) {}
func (m *countingMetrics) RecordObservations(source string, n int) {
	m.mu.Lock()
	m.obs[source] += n
	m.mu.Unlock()
}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
