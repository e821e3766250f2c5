//go:build wireinject
// +build wireinject

package di

import (
	"PricePulse/internal/handler/ws"
	"PricePulse/internal/services/outlier"
	"PricePulse/internal/usecase"
	"PricePulse/pkg/config"
	"PricePulse/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideStore,
)

var detectSet = wire.NewSet(
	outlier.NewDetector,
	ProvideEngine,
	ProvideCacheService,
	ProvideReportCache,
	ProvideKafkaProducer,
	ProvidePublisher,
	ProvideDetectRunner,
)

// InitializeApp wires the long-running server.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		detectSet,
		ws.NewHub,
		ProvideNotifier,
		ProvideReportQuery,
		ProvideScheduler,
		ProvideKafkaConsumer,
		ProvideObservationsHandler,
		ProvideAPIHandler,
		ProvideHTTPServer,
		server.New,
	)
	return nil, nil, nil
}

// InitializeDetectRunner wires a one-shot detection pass.
func InitializeDetectRunner(cfg *config.Config) (*usecase.DetectRunner, func(), error) {
	wire.Build(coreSet, detectSet, ProvideNoNotifier)
	return nil, nil, nil
}

// InitializeIngester wires the snapshot ingester.
func InitializeIngester(cfg *config.Config) (*usecase.SnapshotIngester, func(), error) {
	wire.Build(coreSet, ProvideIngester)
	return nil, nil, nil
}
