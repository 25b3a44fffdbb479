package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aatumaykin/ssrworker/internal/logger"
)

// requestLogger logs one line per request after it completes.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			{Key: "method", Value: c.Request.Method},
			{Key: "path", Value: c.FullPath()},
			{Key: "status", Value: c.Writer.Status()},
			{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.Field{Key: "error", Value: c.Errors.String()})
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.WarnCtx(c.Request.Context(), "request failed", fields...)
			return
		}
		log.DebugCtx(c.Request.Context(), "request served", fields...)
	}
}

// bodyLimit caps the request body size.
func bodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
