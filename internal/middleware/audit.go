package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/pkg/middleware/requestid"
)

// Audit logs a curriculum change after it succeeds.
func Audit(logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestid.Value(c)),
			zap.String("client_ip", c.ClientIP()),
		}
		if current := CurrentSession(c); current != nil {
			fields = append(fields, zap.Int64("user_id", current.UserID), zap.String("role", string(current.Role)))
		}
		logger.Info("audit", fields...)
	}
}
