package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ticketpilot/backend/internal/logger"
)

// RequestLoggerMiddleware logs each HTTP request with latency and status.
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString(RequestIDKey),
		})
	}
}
