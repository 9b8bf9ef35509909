package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	models "Predictelligence/internal/domain/models"
	"Predictelligence/internal/service/cache"
	svcmetrics "Predictelligence/internal/service/metrics"
	"Predictelligence/internal/service/ratelimit"
	"Predictelligence/internal/usecase"
	xhttp "Predictelligence/pkg/http"
	xlogger "Predictelligence/pkg/logger"

	"github.com/labstack/echo/v4"
)

// predict endpoint rate limit per client IP
const (
	predictBurst     = 10.0
	predictPerSecond = 5.0
)

// PredictionHandler exposes the prediction engine over Echo.
type PredictionHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
	cache    cache.BytesCache
	limiter  *ratelimit.Limiter
	cacheTTL time.Duration
}

func NewPredictionHandler(logger *xlogger.Logger, pipeline *usecase.Pipeline, c cache.BytesCache, cacheTTL time.Duration) *PredictionHandler {
	svcmetrics.Register()
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Second
	}
	return &PredictionHandler{
		logger:   logger,
		pipeline: pipeline,
		cache:    c,
		limiter:  ratelimit.New(),
		cacheTTL: cacheTTL,
	}
}

func (h *PredictionHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/prediction")
	g.GET("/predict", h.Predict)
	g.GET("/history", h.History)
	g.GET("/health", h.Health)
}

func (h *PredictionHandler) Predict(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.PredictionLatency.WithLabelValues("predict").Observe(time.Since(start).Seconds())
	}()

	if !h.limiter.Allow(c.RealIP(), predictBurst, predictPerSecond) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.PredictionErrors.WithLabelValues("predict").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	subject := req.Subject()

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")

	key := cacheKey(subject)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(key); err == nil && ok {
			svcmetrics.PredictionCacheHits.WithLabelValues("predict").Inc()
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	resp := h.pipeline.Predict(c.Request().Context(), subject)

	// Render once and serve the same bytes we cache, so cache hits and
	// fresh computes are identical on the wire.
	body, err := responseBody(resp)
	if err != nil {
		return xhttp.SuccessResponse(c, resp)
	}

	// Warming-up answers change with the very next cycle; cache only once
	// the model is ready.
	if h.cache != nil && resp.ModelReady {
		if err := h.cache.SetBytes(key, body, h.cacheTTL); err != nil {
			h.logger.Warn("prediction cache set failed", xlogger.Error(err))
		}
	}
	return c.JSONBlob(http.StatusOK, body)
}

func (h *PredictionHandler) History(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.PredictionLatency.WithLabelValues("history").Observe(time.Since(start).Seconds())
	}()

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.PredictionErrors.WithLabelValues("history").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	recs, err := h.pipeline.History(c.Request().Context(), req.Postcode, req.Limit)
	if err != nil {
		svcmetrics.PredictionErrors.WithLabelValues("history").Inc()
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("history query failed").WithError(err))
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *PredictionHandler) Health(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.PredictionLatency.WithLabelValues("health").Observe(time.Since(start).Seconds())
	}()
	return xhttp.SuccessResponse(c, h.pipeline.Health())
}

func cacheKey(s models.Subject) string {
	return fmt.Sprintf("predict:%s:%s", s.Key(), s.UserType)
}

// responseBody pre-renders the cached payload in the same envelope
// SuccessResponse produces, so cached and fresh responses are identical on
// the wire.
func responseBody(resp *models.PredictResponse) ([]byte, error) {
	return json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    resp,
	})
}
