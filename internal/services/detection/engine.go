package detection

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	applogger "PricePulse/pkg/logger"
)

// EngineConfig holds detection parameters.
type EngineConfig struct {
	WindowDays         int
	ManualThresholdPct float64
	MinObservations    int
	MinDistinctLevels  int
	Workers            int
}

// EngineOption configures Engine.
type EngineOption func(*EngineConfig)

func WithWindowDays(days int) EngineOption {
	return func(c *EngineConfig) { c.WindowDays = days }
}

func WithManualThreshold(pct float64) EngineOption {
	return func(c *EngineConfig) { c.ManualThresholdPct = pct }
}

func WithMinObservations(n int) EngineOption {
	return func(c *EngineConfig) { c.MinObservations = n }
}

func WithMinDistinctLevels(n int) EngineOption {
	return func(c *EngineConfig) { c.MinDistinctLevels = n }
}

// WithWorkers sets the worker pool size; n <= 0 uses runtime.NumCPU().
func WithWorkers(n int) EngineOption {
	return func(c *EngineConfig) { c.Workers = n }
}

// Engine runs grouping, windowing, classification and record building over
// a whole price table.
type Engine struct {
	cfg        EngineConfig
	detector   domsvc.OutlierDetector
	classifier *Classifier
	logger     *applogger.Logger
	metrics    repository.Metrics
}

func NewEngine(detector domsvc.OutlierDetector, logger *applogger.Logger, metrics repository.Metrics, opts ...EngineOption) *Engine {
	cfg := EngineConfig{
		WindowDays:         30,
		ManualThresholdPct: 30,
		MinObservations:    3,
		MinDistinctLevels:  3,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		detector:   detector,
		classifier: NewClassifier(detector, cfg.ManualThresholdPct, cfg.MinDistinctLevels),
		logger:     logger,
		metrics:    metrics,
	}
}

// Result is the output of one engine pass.
type Result struct {
	Records       []models.AnomalyRecord
	Entities      int
	Dropped       int
	Outcomes      map[string]int
	ModelFailures int
}

// Skipped returns the outcome counts for entities that produced no verdict.
func (r Result) Skipped() map[string]int {
	out := make(map[string]int)
	for k, v := range r.Outcomes {
		if k != OutcomeFlagged && k != OutcomeClean {
			out[k] = v
		}
	}
	return out
}

type entityResult struct {
	record   *models.AnomalyRecord
	outcome  string
	modelErr error
}

// Run evaluates every entity in the table. Only a schema error or context
// cancellation fails the run; per-entity problems are counted in the result.
// Records follow the order in which entities first appear in the table.
func (e *Engine) Run(ctx context.Context, table models.PriceTable) (Result, error) {
	series, dropped, err := GroupEntities(table)
	if err != nil {
		return Result{}, err
	}
	if dropped > 0 {
		e.logger.Debug("dropped unusable rows", applogger.Int("rows", dropped))
	}

	results := make([]entityResult, len(series))
	jobs := make(chan int)

	workers := e.cfg.Workers
	if workers > len(series) {
		workers = len(series)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.evaluate(ctx, series[i])
			}
		}()
	}

dispatch:
	for i := range series {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{
		Entities: len(series),
		Dropped:  dropped,
		Outcomes: make(map[string]int),
	}
	for _, r := range results {
		res.Outcomes[r.outcome]++
		if r.modelErr != nil {
			res.ModelFailures++
		}
		if r.record != nil {
			res.Records = append(res.Records, *r.record)
		}
	}
	return res, nil
}

func (e *Engine) evaluate(ctx context.Context, s Series) entityResult {
	res := e.classify(ctx, s)
	if e.metrics != nil {
		e.metrics.RecordEntity(res.outcome)
		if res.modelErr != nil && e.detector != nil {
			e.metrics.RecordModelFailure(e.detector.Name())
		}
		if res.record != nil {
			e.metrics.RecordFlagged(string(res.record.Direction))
		}
	}
	return res
}

func (e *Engine) classify(ctx context.Context, s Series) entityResult {
	log := func(msg string, err error) {
		e.logger.Debug(msg,
			applogger.String("brand", s.Key.Brand),
			applogger.String("name", s.Key.Name),
			applogger.Error(err))
	}

	w, err := ExtractWindow(s.Observations, e.cfg.WindowDays, e.cfg.MinObservations)
	if err != nil {
		log("entity skipped", err)
		return entityResult{outcome: OutcomeInsufficient}
	}

	c, err := e.classifier.Classify(ctx, w.Latest.Price, w.Levels())
	if err != nil {
		outcome := outcomeOf(err)
		if errors.Is(err, ErrDegenerateMedian) {
			e.logger.Warn("degenerate price statistics",
				applogger.String("brand", s.Key.Brand),
				applogger.String("name", s.Key.Name),
				applogger.Error(err))
		} else {
			log("entity skipped", err)
		}
		if outcome == "" {
			// cancelled mid-fit; Run reports ctx.Err()
			outcome = OutcomeInsufficient
		}
		return entityResult{outcome: outcome}
	}
	if c.ModelErr != nil {
		e.logger.Warn("outlier model failed, using manual rule only",
			applogger.String("brand", s.Key.Brand),
			applogger.String("name", s.Key.Name),
			applogger.Error(c.ModelErr))
	}

	rec, ok := BuildRecord(w.Latest, c, e.cfg.ManualThresholdPct)
	if !ok {
		return entityResult{outcome: OutcomeClean, modelErr: c.ModelErr}
	}
	return entityResult{record: &rec, outcome: OutcomeFlagged, modelErr: c.ModelErr}
}
