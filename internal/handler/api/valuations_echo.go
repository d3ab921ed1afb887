package api

import (
	"errors"
	"net/http"
	"time"

	models "AutoValue/internal/domain/models"
	"AutoValue/internal/service/feed"
	svcmetrics "AutoValue/internal/service/metrics"
	"AutoValue/internal/service/ratelimit"
	"AutoValue/internal/usecase"
	xhttp "AutoValue/pkg/http"
	applogger "AutoValue/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	endpointEvaluate = "evaluate"
	endpointOptions  = "options"
	endpointHistory  = "history"
)

// ValuationsEchoHandler exposes the valuation service over HTTP.
// The feed, metrics and limiter are optional.
type ValuationsEchoHandler struct {
	logger  *applogger.Logger
	service *usecase.ValuationService
	hub     *feed.Hub
	metrics *svcmetrics.APIMetrics
	limiter *ratelimit.Limiter
}

func NewValuationsEchoHandler(logger *applogger.Logger, service *usecase.ValuationService, hub *feed.Hub, metrics *svcmetrics.APIMetrics, limiter *ratelimit.Limiter) *ValuationsEchoHandler {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &ValuationsEchoHandler{logger: logger, service: service, hub: hub, metrics: metrics, limiter: limiter}
}

func (h *ValuationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)

	g := e.Group("/api/v1/valuations")
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, ratelimit.Middleware(h.limiter, func(echo.Context) {
			if h.metrics != nil {
				h.metrics.Limited.WithLabelValues(endpointEvaluate).Inc()
			}
		}))
	}
	g.POST("", h.Evaluate, mw...)
	g.GET("/options", h.Options)
	g.GET("/history", h.History)
	if h.hub != nil {
		g.GET("/stream", h.hub.Serve)
	}
}

func (h *ValuationsEchoHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	defer h.observe(endpointEvaluate, start)

	req := &models.ValuationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.countError(endpointEvaluate, "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	v, err := h.service.Evaluate(c.Request().Context(), req.VehicleInput, req.CurrentYear)
	if err != nil {
		appErr := valuationError(err)
		h.countError(endpointEvaluate, appErr.Code)
		if appErr.Status == http.StatusInternalServerError {
			h.logger.Error("valuation usecase error", applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *ValuationsEchoHandler) Options(c echo.Context) error {
	start := time.Now()
	defer h.observe(endpointOptions, start)

	opts := models.FormOptions(h.service.EffectiveYear(0))
	opts.ModelLoaded = h.service.Available()
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, opts)
}

func (h *ValuationsEchoHandler) History(c echo.Context) error {
	start := time.Now()
	defer h.observe(endpointHistory, start)

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.countError(endpointHistory, "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.service.History(c.Request().Context(), req.Make, req.Limit)
	if err != nil {
		if errors.Is(err, usecase.ErrHistoryDisabled) {
			h.countError(endpointHistory, "ERR_NOT_FOUND")
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("valuation history is not enabled"))
		}
		h.countError(endpointHistory, "ERR_INTERNAL")
		h.logger.Error("history usecase error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to load valuation history").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ValuationsEchoHandler) Healthz(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "alive"})
}

// Readyz reports ready only once the price pipeline is loaded.
func (h *ValuationsEchoHandler) Readyz(c echo.Context) error {
	if !h.service.Available() {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("ERR_MODEL_UNAVAILABLE", "price model is not loaded"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ready"})
}

func (h *ValuationsEchoHandler) observe(endpoint string, start time.Time) {
	if h.metrics != nil {
		h.metrics.Latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (h *ValuationsEchoHandler) countError(endpoint, code string) {
	if h.metrics != nil {
		h.metrics.Errors.WithLabelValues(endpoint, code).Inc()
	}
}

// valuationError maps service errors onto HTTP errors.
func valuationError(err error) *xhttp.AppError {
	var perr *usecase.PredictionError
	switch {
	case errors.Is(err, usecase.ErrModelUnavailable):
		return xhttp.UnavailableError("ERR_MODEL_UNAVAILABLE", "price model is not loaded")
	case errors.As(err, &perr):
		return xhttp.UpstreamError("ERR_PREDICTION", perr.Error()).WithError(perr.Err)
	default:
		return xhttp.InternalError("valuation failed").WithError(err)
	}
}
