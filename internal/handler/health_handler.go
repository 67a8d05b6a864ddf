// Package handler contains HTTP request handlers.
// In Gin, a handler is any function with signature func(*gin.Context).
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// HealthHandler handles liveness and database diagnostics. db is nil when
// running in degraded mode.
type HealthHandler struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db *sqlx.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Health responds with service status.
// Route: GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "chart-service",
	})
}

// DBStatus reports whether the relational backend is connected.
// Route: GET /db-status
func (h *HealthHandler) DBStatus(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "mode": "degraded"})
		return
	}
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"connected": false, "mode": "full"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "mode": "full"})
}

// DBTest runs a real query against the charts table as a deeper probe than
// a ping.
// Route: GET /db-test
func (h *HealthHandler) DBTest(c *gin.Context) {
	if h.db == nil {
		degraded(c)
		return
	}

	var count int64
	if err := h.db.GetContext(c.Request.Context(), &count, "SELECT COUNT(*) FROM charts"); err != nil {
		h.logger.Error("database test query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "charts": count})
}
