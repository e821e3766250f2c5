package di

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/handler/api"
	"PricePulse/internal/handler/ws"
	internalrepo "PricePulse/internal/repository"
	"PricePulse/internal/service/cache"
	svcmetrics "PricePulse/internal/service/metrics"
	"PricePulse/internal/service/ratelimit"
	"PricePulse/internal/services/detection"
	"PricePulse/internal/usecase"
	pkgcache "PricePulse/pkg/cache"
	pkgch "PricePulse/pkg/clickhouse"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return l, l.RemoveCollector, nil
}

// ProvideMetrics registers every collector on the default registry, which
// is what the server exposes on /metrics.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register(prometheus.DefaultRegisterer)
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideStore opens the backend selected by storage.type and ensures its schema.
func ProvideStore(cfg *config.Config, l *applogger.Logger) (repository.Store, func(), error) {
	var (
		store repository.Store
		err   error
	)
	switch cfg.Storage.Type {
	case "clickhouse":
		store, err = newCHStore(cfg, l)
	default:
		store, err = internalrepo.NewSQLiteStore(cfg.Storage.SQLitePath, l)
	}
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("%s schema: %w", cfg.Storage.Type, err)
	}
	l.Info("storage ready", applogger.String("type", cfg.Storage.Type))

	cleanup := func() {
		if err := store.Close(); err != nil {
			l.Warn("close storage", applogger.Error(err))
		}
	}
	return store, cleanup, nil
}

func newCHStore(cfg *config.Config, l *applogger.Logger) (*internalrepo.CHStore, error) {
	c := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(c.Host),
		pkgch.WithPort(c.Port),
		pkgch.WithDatabase(c.Database),
		pkgch.WithCredentials(c.User, c.Password),
		pkgch.WithMaxConnections(c.MaxOpenConns, c.MaxIdleConns),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithAsyncInsert(c.AsyncInsert, c.WaitForAsync),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout, c.WriteTimeout),
		pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return internalrepo.NewCHStore(client, l), nil
}

func ProvideEngine(cfg *config.Config, detector domsvc.OutlierDetector, l *applogger.Logger, m repository.Metrics) *detection.Engine {
	e := cfg.Engine
	return detection.NewEngine(detector, l, m,
		detection.WithWindowDays(e.WindowDays),
		detection.WithManualThreshold(e.ManualThresholdPct),
		detection.WithMinObservations(e.MinObservations),
		detection.WithMinDistinctLevels(e.MinDistinctLevels),
		detection.WithWorkers(e.Workers),
	)
}

// ProvideCacheService returns Redis when enabled and reachable, otherwise an
// in-process cache. The run lock is then only process-wide.
func ProvideCacheService(cfg *config.Config, l *applogger.Logger) (pkgcache.Service, func(), error) {
	var svc pkgcache.Service
	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Redis.Host),
			pkgcache.WithRedisPort(cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
			pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		)
		if err != nil {
			l.Warn("redis unavailable, using memory cache", applogger.Error(err))
		} else {
			svc = rc
		}
	}
	if svc == nil {
		svc = pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(256),
			pkgcache.WithMemoryCleanup(time.Minute),
		)
	}
	return svc, func() { _ = svc.Close() }, nil
}

func ProvideReportCache(svc pkgcache.Service) repository.ReportCache {
	return cache.NewReportCache(svc)
}

// ProvideKafkaProducer returns nil when Kafka is disabled. When a collector
// topic is configured, aggregated error logs are shipped through it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithBatching(k.Producer.BatchSize, k.Producer.BatchBytes, k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopics(k.AutoCreateTopics),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Log.CollectorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Log.CollectorTopic,
			Publisher: producer,
		})
	}
	cleanup := func() {
		l.RemoveCollector()
		if err := producer.Close(); err != nil {
			l.Warn("close kafka producer", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvidePublisher returns a nil publisher when Kafka is disabled.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.AnomalyPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.AnomaliesTopic)
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(k.GroupID),
		pkgkafka.WithConsumerWorkers(k.Workers),
		pkgkafka.WithConsumerBufferSize(k.BufferSize),
		pkgkafka.WithConsumerRetry(k.RetryMax, k.BackoffMin, k.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.DLQTopic),
		pkgkafka.WithConsumerFetch(k.MinBytes, k.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TracingHook())
	return consumer, nil
}

func ProvideObservationsHandler(cfg *config.Config, store repository.Store, m repository.Metrics, l *applogger.Logger) *usecase.ObservationsHandler {
	return usecase.NewObservationsHandler(cfg.Kafka.ObservationsTopic, store, m, l)
}

// ProvideNotifier pushes run summaries to websocket subscribers.
func ProvideNotifier(hub *ws.Hub) repository.RunNotifier { return hub }

// ProvideNoNotifier is used by one-shot commands with no subscribers.
func ProvideNoNotifier() repository.RunNotifier { return nil }

func ProvideDetectRunner(
	cfg *config.Config,
	store repository.Store,
	engine *detection.Engine,
	reportCache repository.ReportCache,
	pub repository.AnomalyPublisher,
	notifier repository.RunNotifier,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.DetectRunner {
	return usecase.NewDetectRunner(store, engine, reportCache, pub, notifier, m, l,
		usecase.WithLookback(cfg.Engine.WindowDays),
		usecase.WithLockTTL(cfg.Schedule.LockTTL),
		usecase.WithReportTTL(cfg.Schedule.ReportTTL),
		usecase.WithReportDir(cfg.Report.OutputDir, cfg.Report.CSVOut),
	)
}

func ProvideReportQuery(cfg *config.Config, store repository.Store, reportCache repository.ReportCache, l *applogger.Logger) *usecase.ReportQuery {
	return usecase.NewReportQuery(store, reportCache, cfg.Schedule.ReportTTL, l)
}

func ProvideIngester(cfg *config.Config, store repository.Store, m repository.Metrics, l *applogger.Logger) *usecase.SnapshotIngester {
	return usecase.NewSnapshotIngester(store, m, l, cfg.Ingest.LookbackDays)
}

func ProvideScheduler(cfg *config.Config, runner *usecase.DetectRunner, l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(runner, cfg.Schedule.Interval, cfg.Schedule.RunOnStart, l)
}

func ProvideAPIHandler(
	cfg *config.Config,
	l *applogger.Logger,
	query *usecase.ReportQuery,
	runner *usecase.DetectRunner,
	store repository.Store,
) *api.AnomaliesEchoHandler {
	limiter := ratelimit.New(cfg.Server.RunTriggerBurst, cfg.Server.RunTriggerPerMinute)
	return api.NewAnomaliesEchoHandler(l, query, runner, store, limiter)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, apiHandler *api.AnomaliesEchoHandler, hub *ws.Hub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{apiHandler, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(metricsPath, prometheus.DefaultRegisterer, prometheus.DefaultGatherer),
	)
}
