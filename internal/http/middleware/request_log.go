package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

// RequestLogger logs one line per request. Successful health checks log at debug so
// they do not drown the sweep logs.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td := TraceFrom(c.Request.Context()); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", kv...)
		case status >= 400:
			log.Warn("HTTP request", kv...)
		default:
			log.Debug("HTTP request", kv...)
		}
	}
}
