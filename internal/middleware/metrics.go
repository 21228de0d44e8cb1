package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/service"
)

// unmatchedRoute labels requests no route claimed, so probing paths cannot grow the
// label set.
const unmatchedRoute = "unmatched"

// Metrics records every request by route template, and guard redirects by outcome.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		if outcome := GuardOutcome(c); outcome != "" {
			metricsSvc.RecordGuardRedirect(string(outcome), route)
		}
	}
}
