package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/config"
	"github.com/fleveque/chart-service/internal/handler"
	"github.com/fleveque/chart-service/internal/middleware"
	"github.com/fleveque/chart-service/internal/service"
)

// Deps collects everything the routes need. Dependencies are passed
// explicitly — no DI container, no magic. DB and Charts are nil in degraded
// mode; the handlers answer 503 for those routes instead.
type Deps struct {
	DB      *sqlx.DB
	Charts  *service.ChartService // database-backed orchestrator
	Static  *service.ChartService // file-backed orchestrator
	Uploads *service.UploadValidator
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler(deps.DB, logger)
	chartHandler := handler.NewChartHandler(deps.Charts, logger)
	staticHandler := handler.NewStaticHandler(deps.Static, logger)
	uploadHandler := handler.NewUploadHandler(deps.Uploads, logger)

	// Liveness and diagnostics (no middleware)
	r.GET("/health", healthHandler.Health)
	r.GET("/db-status", healthHandler.DBStatus)
	r.GET("/db-test", healthHandler.DBTest)

	// File-backed chart surface
	r.GET("/static/charts/:symbol", staticHandler.GetChartURL)
	r.GET("/static/:filename", staticHandler.GetFile)

	// API group with CORS and per-IP rate limiting
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	api.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		api.POST("/charts", chartHandler.CreateChart)
		api.GET("/charts/:symbol", chartHandler.GetChart)
		api.GET("/symbols", chartHandler.ListSymbols)
		api.POST("/batch-charts", chartHandler.BatchCharts)
		api.POST("/upload", uploadHandler.Upload)
		api.POST("/upload-batch", uploadHandler.UploadBatch)
	}
}
