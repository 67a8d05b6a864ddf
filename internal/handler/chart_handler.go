package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/model"
	"github.com/fleveque/chart-service/internal/service"
	"github.com/fleveque/chart-service/internal/storage"
	"github.com/fleveque/chart-service/internal/upstream"
)

// ChartHandler handles the database-backed chart API. The service is nil
// when the process is running in degraded mode (no database) — every route
// here answers 503 in that case rather than panicking on a nil store.
type ChartHandler struct {
	charts *service.ChartService
	logger *zap.Logger
}

// NewChartHandler creates a ChartHandler. charts may be nil (degraded mode).
func NewChartHandler(charts *service.ChartService, logger *zap.Logger) *ChartHandler {
	return &ChartHandler{charts: charts, logger: logger}
}

// createChartRequest is the body for POST /charts.
type createChartRequest struct {
	Symbol string `json:"symbol"`
}

// batchChartsRequest is the body for POST /batch-charts.
type batchChartsRequest struct {
	Symbols []string `json:"symbols"`
}

// CreateChart fetches (or refreshes) the chart for one symbol.
// Route: POST /api/v1/charts
func (h *ChartHandler) CreateChart(c *gin.Context) {
	if h.charts == nil {
		degraded(c)
		return
	}

	var req createChartRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing symbol"})
		return
	}

	chart, err := h.charts.GetOrFetch(c.Request.Context(), req.Symbol)
	if err != nil {
		h.logger.Warn("chart fetch failed",
			zap.String("symbol", req.Symbol),
			zap.Error(err),
		)
		c.JSON(statusForErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":     chart.Symbol,
		"size_bytes": len(chart.Image),
		"created_at": chart.CreatedAt,
		"updated_at": chart.UpdatedAt,
	})
}

// GetChart serves the cached chart image. This path never fetches —
// an absent chart is a plain 404.
// Route: GET /api/v1/charts/:symbol
func (h *ChartHandler) GetChart(c *gin.Context) {
	if h.charts == nil {
		degraded(c)
		return
	}

	chart, err := h.charts.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.JSON(statusForErr(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", chart.Image)
}

// ListSymbols returns metadata for every cached chart, symbol ascending.
// Route: GET /api/v1/symbols
func (h *ChartHandler) ListSymbols(c *gin.Context) {
	if h.charts == nil {
		degraded(c)
		return
	}

	infos, err := h.charts.List(c.Request.Context())
	if err != nil {
		h.logger.Error("listing charts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if infos == nil {
		infos = []model.ChartInfo{}
	}

	c.JSON(http.StatusOK, gin.H{"symbols": infos})
}

// BatchCharts fetches charts for many symbols, returning one outcome per
// input in input order. Individual failures land in their outcome; only a
// malformed request fails the call as a whole.
// Route: POST /api/v1/batch-charts
func (h *ChartHandler) BatchCharts(c *gin.Context) {
	if h.charts == nil {
		degraded(c)
		return
	}

	var req batchChartsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols must be a non-empty array"})
		return
	}

	outcomes := h.charts.FetchBatch(c.Request.Context(), req.Symbols)
	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

func degraded(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": storage.ErrBackendUnavailable.Error(),
	})
}

// statusForErr maps the service error taxonomy onto HTTP status codes.
func statusForErr(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidSymbol), errors.Is(err, service.ErrInvalidUpload):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, upstream.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, upstream.ErrUnavailable), errors.Is(err, upstream.ErrBadStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
