// README: Request logging middleware with expvar request counters.
package middleware

import (
	"expvar"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	requestsTotal  = expvar.NewInt("requests_total")
	requestsErrors = expvar.NewInt("requests_errors_total")
)

func Logging(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		requestsTotal.Add(1)
		if status >= 500 {
			requestsErrors.Add(1)
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("uid", CallerUID(c)),
			slog.String("request_id", c.GetHeader("X-Request-ID")),
		)
	}
}
