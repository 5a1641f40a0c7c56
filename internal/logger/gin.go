package logger

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware logs every request at debug level once it has been served.
// Server errors are raised to warning.
func GinMiddleware(l Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := l.Debug()
		if status >= 500 {
			event = l.Warn()
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("Request served")
	}
}
