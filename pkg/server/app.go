package server

import (
	"context"
	"sync"

	"PricePulse/internal/handler/ws"
	"PricePulse/internal/usecase"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
)

// App owns the long-running parts of `serve`: the HTTP API, the websocket
// hub, the detection scheduler and, when Kafka is enabled, the
// observations consumer.
type App struct {
	cfg          *config.Config
	logger       *applogger.Logger
	httpServer   *xhttp.Server
	hub          *ws.Hub
	scheduler    *usecase.Scheduler
	consumer     *pkgkafka.Consumer
	observations *usecase.ObservationsHandler
}

// New creates an App. consumer may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	observations *usecase.ObservationsHandler,
) *App {
	return &App{
		cfg:          cfg,
		logger:       logger,
		httpServer:   httpServer,
		hub:          hub,
		scheduler:    scheduler,
		consumer:     consumer,
		observations: observations,
	}
}

// Run starts every component and blocks until ctx is cancelled, then shuts
// down in reverse order.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hub.Run(runCtx)
	}()

	if err := a.httpServer.Start(); err != nil {
		return err
	}

	if a.consumer != nil {
		a.consumer.RegisterHandler(a.observations)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start failed", applogger.Error(err))
		} else {
			a.logger.Info("kafka consumer started", applogger.String("topic", a.observations.Topic()))
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduler.Start(runCtx)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	cancel()
	a.shutdown()
	wg.Wait()
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
}
