package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-chat-service/internal/middleware"
	"project-chat-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		subject := ""
		if ident, ok := middleware.IdentityFromContext(c); ok {
			subject = ident.ExternalID
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), "", subject)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
