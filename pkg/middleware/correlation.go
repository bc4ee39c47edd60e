package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Plvkssh/SmartLodge/pkg/logger"
)

const (
	// CorrelationIDHeader carries the request correlation ID across services
	CorrelationIDHeader = "X-Correlation-Id"
	// ContextKeyCorrelationID is the context key for the correlation ID
	ContextKeyCorrelationID = "correlation_id"
)

// CorrelationID accepts an incoming X-Correlation-Id or mints a new one with
// the given prefix. The ID is stored in the request context and echoed on the
// response so clients can reference it.
func CorrelationID(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = prefix + uuid.New().String()
		}

		c.Set(ContextKeyCorrelationID, correlationID)
		c.Header(CorrelationIDHeader, correlationID)
		c.Next()
	}
}

// GetCorrelationID extracts the correlation ID from gin context
func GetCorrelationID(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextKeyCorrelationID)
	if !exists {
		return "", false
	}
	correlationID, ok := value.(string)
	return correlationID, ok
}

// RequestLogger logs one line per request with correlation and trace IDs.
// Probe endpoints are skipped to keep the logs readable.
func RequestLogger(log *logger.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if correlationID, ok := GetCorrelationID(c); ok {
			fields = append(fields, zap.String("correlation_id", correlationID))
		}
		if traceID := c.GetString("trace_id"); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		entry := log.With(fields...)
		switch {
		case status >= 500:
			entry.Error("request completed")
		case status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}
