package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medscan-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can name what they touched.
const (
	ReportIDKey  = "reportId"
	FileCountKey = "fileCount"
)

// Logging writes one structured line per request once the handler chain finishes.
// Preflights and metrics scrapes are not logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"session_id":  SessionIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if v, ok := c.Get(ReportIDKey); ok {
			fields["report_id"] = v
		}
		if v, ok := c.Get(FileCountKey); ok {
			fields["file_count"] = v
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
