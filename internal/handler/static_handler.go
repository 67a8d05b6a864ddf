package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/model"
	"github.com/fleveque/chart-service/internal/service"
)

// StaticHandler serves charts from the file backend. Unlike the plain
// /charts/:symbol read path, the static routes repopulate on miss or
// staleness: the same orchestrator as the API path, pointed at the file
// store, so file freshness comes from mtime.
type StaticHandler struct {
	static *service.ChartService
	logger *zap.Logger
}

// NewStaticHandler creates a StaticHandler over the file-backed service.
func NewStaticHandler(static *service.ChartService, logger *zap.Logger) *StaticHandler {
	return &StaticHandler{static: static, logger: logger}
}

// GetFile serves a chart file by its storage-key filename, fetching and
// populating first when the file is stale or absent.
// Route: GET /static/:filename
func (h *StaticHandler) GetFile(c *gin.Context) {
	symbol, err := model.SymbolFromKey(c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chart, err := h.static.GetOrFetch(c.Request.Context(), symbol)
	if err != nil {
		h.logger.Warn("static chart unavailable",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		c.JSON(statusForErr(err), gin.H{"error": err.Error()})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", chart.Image)
}

// GetChartURL ensures a fresh chart file exists for the symbol, then
// returns its public URL as plain text.
// Route: GET /static/charts/:symbol
func (h *StaticHandler) GetChartURL(c *gin.Context) {
	chart, err := h.static.GetOrFetch(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		c.JSON(statusForErr(err), gin.H{"error": err.Error()})
		return
	}

	c.String(http.StatusOK, "/static/"+model.StorageKey(chart.Symbol))
}
