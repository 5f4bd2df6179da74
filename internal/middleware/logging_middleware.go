package middleware

import (
	"time"

	"shophub-realtime/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware writes one access line per request through the
// context-aware logger, so the request id set upstream rides along as a
// structured field.
func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log == nil {
			return
		}
		log.InfofCtx(c.Request.Context(), "%s %s %d %s %s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
