package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hotelrank/internal/domain"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	platforms   []domain.Platform
	authEnabled bool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(platforms []domain.Platform, authEnabled bool) *HealthHandler {
	return &HealthHandler{platforms: platforms, authEnabled: authEnabled}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Info describes the service and its endpoints.
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":         "hotelrank",
		"authentication":  h.authEnabled,
		"sites_supported": h.platforms,
		"endpoints": []string{
			"POST /scraper/start",
			"GET /scraper/status/:job_id",
			"GET /scraper/result/:job_id",
			"POST /scraper/consolidate",
			"GET /scraper/jobs",
			"DELETE /scraper/jobs/:job_id",
		},
		"timestamp": time.Now().UTC(),
	})
}
