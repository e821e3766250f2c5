package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/service/metrics"
	"PricePulse/internal/service/ratelimit"
	"PricePulse/internal/usecase"
	xhttp "PricePulse/pkg/http"
	applogger "PricePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReportReader serves the latest report.
type ReportReader interface {
	Anomalies(ctx context.Context, brand, name string) (models.Report, error)
	Movers(ctx context.Context, kind domrepo.MoverKind, limit int) (*usecase.MoversResult, error)
}

// RunTrigger starts a detection pass.
type RunTrigger interface {
	Run(ctx context.Context, opts usecase.RunOptions) (models.RunSummary, error)
}

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// runTimeout bounds a run triggered over HTTP. The run is detached from the
// request so a disconnecting client does not abort it halfway.
const runTimeout = 10 * time.Minute

// AnomaliesEchoHandler exposes the anomaly report over HTTP.
type AnomaliesEchoHandler struct {
	logger  *applogger.Logger
	reports ReportReader
	runs    RunTrigger
	health  HealthChecker
	limiter *ratelimit.Limiter
}

func NewAnomaliesEchoHandler(
	logger *applogger.Logger,
	reports ReportReader,
	runs RunTrigger,
	health HealthChecker,
	limiter *ratelimit.Limiter,
) *AnomaliesEchoHandler {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &AnomaliesEchoHandler{
		logger:  logger,
		reports: reports,
		runs:    runs,
		health:  health,
		limiter: limiter,
	}
}

func (h *AnomaliesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/anomalies", h.Anomalies)
	g.GET("/movers", h.Movers)
	g.POST("/runs", h.TriggerRun)
	e.GET("/healthz", h.Healthz)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *AnomaliesEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	metrics.APIErrors.WithLabelValues(endpoint).Inc()
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no detection run has completed yet").WithError(err))
	}
	h.logger.Error(endpoint+" request failed", applogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *AnomaliesEchoHandler) Anomalies(c echo.Context) error {
	defer observe("anomalies", time.Now())
	req := &models.AnomaliesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rep, err := h.reports.Anomalies(c.Request().Context(), req.Brand, req.Name)
	if err != nil {
		return h.fail(c, "anomalies", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, rep)
}

func (h *AnomaliesEchoHandler) Movers(c echo.Context) error {
	defer observe("movers", time.Now())
	req := &models.MoversRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.reports.Movers(c.Request().Context(), domrepo.MoverKind(req.Kind), req.Limit)
	if err != nil {
		return h.fail(c, "movers", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnomaliesEchoHandler) TriggerRun(c echo.Context) error {
	defer observe("runs", time.Now())
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		h.logger.Warn("run trigger rate limited", applogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many run requests", http.StatusTooManyRequests))
	}
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), runTimeout)
	defer cancel()
	summary, err := h.runs.Run(ctx, usecase.RunOptions{CSVOut: req.CSVOut})
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		metrics.APIErrors.WithLabelValues("runs").Inc()
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case errors.Is(err, usecase.ErrReportCSV):
		h.logger.Warn("run stored but csv report failed", applogger.Error(err))
	case err != nil:
		return h.fail(c, "runs", err)
	}
	return xhttp.SuccessResponse(c, summary)
}

func (h *AnomaliesEchoHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Health(ctx); err != nil {
		h.logger.Warn("health check failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("storage unavailable"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
