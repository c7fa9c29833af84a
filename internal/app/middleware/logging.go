package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kidpech/users_api/internal/app/diagnostics"
	"github.com/kidpech/users_api/internal/infrastructure/logging"
	"github.com/kidpech/users_api/internal/infrastructure/monitoring"
	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/response"
)

// RequestID propagates X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(response.RequestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs request info, records metrics and reports
// non-operational errors attached to the context.
func RequestLogger(logger *zap.Logger, buffer *diagnostics.LogBuffer) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		reqLogger := logging.WithRequestID(logger, c.GetString(response.RequestIDKey))
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID := response.UserIDFromContext(c); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		if last := c.Errors.Last(); last != nil {
			appErr := apperror.From(last.Err)
			monitoring.ObserveError(appErr.Kind.String())
			if !appErr.Operational {
				reqLogger.Error("request failed", append(fields, zap.Error(appErr.Unwrap()), zap.String("stack", appErr.Stack))...)
				monitoring.CaptureError(appErr.Unwrap(), map[string]string{
					"method":     c.Request.Method,
					"path":       path,
					"request_id": c.GetString(response.RequestIDKey),
				})
			}
		}

		switch {
		case status >= 500:
			reqLogger.Error("http_request", fields...)
		case status >= 400:
			reqLogger.Warn("http_request", fields...)
		default:
			reqLogger.Info("http_request", fields...)
		}

		statusText := strconv.Itoa(status)
		if buffer != nil {
			buffer.Append(time.Now().UTC().Format(time.RFC3339) + " " + c.Request.Method + " " + path + " -> " + statusText)
		}
		monitoring.ObserveRequest(path, c.Request.Method, statusText, latency.Seconds())
	}
}
