package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/report"
	"PricePulse/internal/services/detection"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/util"
)

var (
	// ErrRunInProgress is returned when another run holds the detection lock.
	ErrRunInProgress = errors.New("detection run already in progress")
	// ErrReportCSV marks a run whose report was stored but whose CSV file
	// could not be written.
	ErrReportCSV = errors.New("write csv report")
)

const runLockKey = "detect"

type DetectConfig struct {
	// LookbackDays bounds the table loaded from the store; 0 loads everything.
	LookbackDays int
	LockTTL      time.Duration
	ReportTTL    time.Duration
	ReportDir    string
	CSVOut       bool
}

type DetectOption func(*DetectConfig)

func WithLookback(days int) DetectOption {
	return func(c *DetectConfig) { c.LookbackDays = days }
}

func WithLockTTL(d time.Duration) DetectOption {
	return func(c *DetectConfig) { c.LockTTL = d }
}

func WithReportTTL(d time.Duration) DetectOption {
	return func(c *DetectConfig) { c.ReportTTL = d }
}

// WithReportDir sets where CSV reports go; csvOut makes every run write one.
func WithReportDir(dir string, csvOut bool) DetectOption {
	return func(c *DetectConfig) {
		c.ReportDir = dir
		c.CSVOut = csvOut
	}
}

// RunOptions are per-invocation overrides.
type RunOptions struct {
	CSVOut bool
}

// DetectRunner executes one batch detection pass: load, detect, persist,
// then fan the report out to cache, broker, CSV and live subscribers.
type DetectRunner struct {
	cfg       DetectConfig
	store     domrepo.Store
	engine    *detection.Engine
	cache     domrepo.ReportCache
	publisher domrepo.AnomalyPublisher
	notifier  domrepo.RunNotifier
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	now       func() time.Time
}

// NewDetectRunner wires a runner. cache, publisher, notifier and metrics
// may be nil.
func NewDetectRunner(
	store domrepo.Store,
	engine *detection.Engine,
	cache domrepo.ReportCache,
	publisher domrepo.AnomalyPublisher,
	notifier domrepo.RunNotifier,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
	opts ...DetectOption,
) *DetectRunner {
	cfg := DetectConfig{
		LookbackDays: 30,
		LockTTL:      10 * time.Minute,
		ReportTTL:    48 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &DetectRunner{
		cfg:       cfg,
		store:     store,
		engine:    engine,
		cache:     cache,
		publisher: publisher,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Run performs one detection pass. Failing to load the table, running the
// engine or persisting the report fails the run; later fan-out failures are
// logged and counted only. A CSV write failure is returned alongside the
// summary since the report is already stored.
func (uc *DetectRunner) Run(ctx context.Context, opts RunOptions) (models.RunSummary, error) {
	unlock, err := uc.lock(ctx)
	if err != nil {
		return models.RunSummary{}, err
	}
	defer unlock()

	started := uc.now()
	runDate := util.Day(started)
	log := uc.logger.With(applogger.String("run_date", runDate.Format("2006-01-02")))

	summary, rep, err := uc.detect(ctx, runDate, log)
	summary.StartedAt = started
	summary.DurationMS = uc.now().Sub(started).Milliseconds()
	if err != nil {
		uc.recordRun("error", started)
		log.Error("detection run failed", applogger.Error(err))
		return summary, err
	}

	uc.fanOut(ctx, rep, log)

	var csvErr error
	if opts.CSVOut || uc.cfg.CSVOut {
		path, err := report.WriteFile(uc.cfg.ReportDir, rep)
		if err != nil {
			uc.recordError("report_csv")
			csvErr = fmt.Errorf("%w: %w", ErrReportCSV, err)
			log.Error("csv report failed", applogger.Error(err))
		} else {
			summary.ReportPath = path
			log.Info("csv report written", applogger.String("path", path))
		}
	}

	if uc.notifier != nil {
		uc.notifier.NotifyRun(summary)
	}
	uc.recordRun("ok", started)
	log.Info("detection run finished",
		applogger.Int("entities", summary.Entities),
		applogger.Int("flagged", summary.Flagged),
		applogger.Int("model_failures", summary.ModelFailures),
		applogger.Any("skipped", summary.SkippedByReason),
		applogger.Int64("duration_ms", summary.DurationMS),
	)
	return summary, csvErr
}

func (uc *DetectRunner) detect(ctx context.Context, runDate time.Time, log *applogger.Logger) (models.RunSummary, models.Report, error) {
	summary := models.RunSummary{RunDate: runDate}

	var from time.Time
	if uc.cfg.LookbackDays > 0 {
		from = runDate.AddDate(0, 0, -uc.cfg.LookbackDays)
	}
	table, err := uc.store.LoadTable(ctx, from, time.Time{})
	if err != nil {
		return summary, models.Report{}, fmt.Errorf("load observations: %w", err)
	}
	log.Debug("observations loaded", applogger.Int("rows", len(table.Rows)))

	res, err := uc.engine.Run(ctx, table)
	if err != nil {
		return summary, models.Report{}, fmt.Errorf("run engine: %w", err)
	}

	rep := models.Report{RunDate: runDate, Records: res.Records}
	if rep.Records == nil {
		rep.Records = []models.AnomalyRecord{}
	}
	if err := uc.store.SaveReport(ctx, rep); err != nil {
		return summary, models.Report{}, fmt.Errorf("save report: %w", err)
	}

	summary.Entities = res.Entities
	summary.Flagged = len(res.Records)
	summary.SkippedByReason = res.Skipped()
	summary.ModelFailures = res.ModelFailures
	return summary, rep, nil
}

func (uc *DetectRunner) fanOut(ctx context.Context, rep models.Report, log *applogger.Logger) {
	if uc.cache != nil {
		if err := uc.cache.SetReport(ctx, rep, uc.cfg.ReportTTL); err != nil {
			uc.recordError("report_cache")
			log.Warn("report cache update failed", applogger.Error(err))
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishAnomalies(ctx, rep.RunDate, rep.Records); err != nil {
			uc.recordError("publish")
			log.Error("anomaly publish failed", applogger.Int("records", len(rep.Records)), applogger.Error(err))
		}
	}
}

// lock takes the run lock when a cache is configured. A lock backend error
// is logged and the run proceeds unguarded.
func (uc *DetectRunner) lock(ctx context.Context) (func(), error) {
	noop := func() {}
	if uc.cache == nil {
		return noop, nil
	}
	ok, err := uc.cache.TryLock(ctx, runLockKey, uc.cfg.LockTTL)
	if err != nil {
		uc.recordError("run_lock")
		uc.logger.Warn("run lock unavailable, continuing without it", applogger.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := uc.cache.Unlock(ctx, runLockKey); err != nil {
			uc.logger.Warn("run unlock failed", applogger.Error(err))
		}
	}, nil
}

func (uc *DetectRunner) recordRun(status string, started time.Time) {
	if uc.metrics != nil {
		uc.metrics.RecordRun(status, uc.now().Sub(started).Seconds())
	}
}

func (uc *DetectRunner) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
