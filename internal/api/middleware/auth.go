package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/hotelrank/internal/domain"
	"github.com/timmy/hotelrank/internal/logger"
)

// APIKeyHeader carries the shared secret.
const APIKeyHeader = "X-API-Key"

// AuthConfig holds shared-secret authentication settings
type AuthConfig struct {
	Enabled bool
	APIKey  string
}

// APIKeyAuth rejects requests without the configured API key.
// A missing key yields 401 and a wrong key 403; neither reaches the handler.
func APIKeyAuth(cfg AuthConfig) gin.HandlerFunc {
	expected := []byte(cfg.APIKey)
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		provided := c.GetHeader(APIKeyHeader)
		if provided == "" {
			logger.CtxWarn(c.Request.Context(), "Rejected request without API key: path=%s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthorized.Error()})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			logger.CtxWarn(c.Request.Context(), "Rejected request with invalid API key: path=%s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": domain.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}
