package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"paritybit-setup/services"
)

/**
 * Request accounting middleware
 * @description
 * - Counts requests per route and records their duration
 * - Responses with status >= 400 are counted as errors
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		services.IncrementRequestCount(path)
		services.RecordRequestDuration(path, time.Since(start).Seconds())
		if c.Writer.Status() >= 400 {
			services.IncrementErrorCount(path)
		}
	}
}
