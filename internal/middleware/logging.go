package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"code-bounty/internal/log"
)

const traceHeader = "X-Trace-ID"

// requestTraceID prefers the Cloud Run trace ("TRACE_ID/SPAN_ID;o=1"), then
// a caller supplied X-Trace-ID, then a fresh UUID.
func requestTraceID(h http.Header) string {
	if cloud := h.Get("X-Cloud-Trace-Context"); cloud != "" {
		traceID, _, _ := strings.Cut(cloud, "/")
		return traceID
	}
	if traceID := h.Get(traceHeader); traceID != "" {
		return traceID
	}
	return uuid.NewString()
}

// LoggingMiddleware tags the request context with a trace ID and logs one
// line per completed request.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := requestTraceID(c.Request.Header)
		c.Set("trace_id", traceID)
		c.Header(traceHeader, traceID)
		c.Request = c.Request.WithContext(log.WithTraceID(c.Request.Context(), traceID))

		start := time.Now()
		c.Next()

		// Read the context again: ClientMiddleware may have added the principal.
		ctx := c.Request.Context()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			log.Warn(ctx, "Request failed", attrs...)
			return
		}
		log.Info(ctx, "Request completed", attrs...)
	}
}
