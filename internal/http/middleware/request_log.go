package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/i-am-the-robot/Edulife/internal/platform/ctxutil"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

// RequestLogger writes one line per request. Server errors log at error
// level, client errors at warn, health probes at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		ctx := c.Request.Context()
		if td := ctxutil.GetTraceData(ctx); td != nil {
			kv = append(kv, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if rd := ctxutil.GetRequestData(ctx); rd != nil {
			if rd.StudentID != "" {
				kv = append(kv, "student_id", rd.StudentID)
			}
			if rd.SessionID != "" {
				kv = append(kv, "session_id", rd.SessionID)
			}
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", kv...)
		case status >= 400:
			log.Warn("HTTP request", kv...)
		case path == "/healthcheck":
			log.Debug("HTTP request", kv...)
		default:
			log.Info("HTTP request", kv...)
		}
	}
}
