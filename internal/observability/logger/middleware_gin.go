package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	auditcontext "github.com/smallbiznis/greenledger/internal/auditcontext"
	obscontext "github.com/smallbiznis/greenledger/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error onto (error_type, error_code).
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware stamps a request id on the context and emits one
// http_request line per request once handlers have run.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := requestID(c)
		c.Set("request_id", reqID)
		c.Header(requestIDHeader, reqID)

		ctx := obscontext.WithRequestID(c.Request.Context(), reqID)
		ctx = auditcontext.WithRequestID(ctx, reqID)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if hit := c.Writer.Header().Get("X-Cache"); hit != "" {
			fields = append(fields, zap.String("cache", strings.ToLower(hit)))
		}

		var errType string
		if last := c.Errors.Last(); last != nil {
			var errCode string
			if cfg.ErrorClassifier != nil {
				errType, errCode = cfg.ErrorClassifier(last.Err)
			}
			fields = append(fields, zap.String("error_type", errType), zap.String("error_code", errCode))
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		logRequest(FromContext(c.Request.Context()), route, status, errType, fields)
	}
}

// requestID honors an inbound id so callers can correlate across services.
func requestID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(requestIDHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetString("request_id")); id != "" {
		return id
	}
	return uuid.NewString()
}

func logRequest(log *zap.Logger, route string, status int, errType string, fields []zap.Field) {
	if log == nil {
		return
	}
	if ce := log.Check(requestLevel(route, status, errType), "http_request"); ce != nil {
		ce.Write(fields...)
	}
}

// requestLevel demotes probes and rejected data-entry submissions to debug;
// both are routine and would drown the info stream.
func requestLevel(route string, status int, errType string) zapcore.Level {
	route = strings.ToLower(route)
	switch {
	case route == "/metrics" || route == "/health":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case errType == "validation_error" && (route == "/api/metrics" || route == "/api/metrics/batch"):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
