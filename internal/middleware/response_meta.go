package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/adaptive-learning-portal/internal/guard"
	"github.com/noah-isme/adaptive-learning-portal/pkg/middleware/requestid"
)

// Keys of the meta block every portal envelope carries.
const (
	metaContextKey = "portal_meta"

	MetaCacheHit       = "cache_hit"
	MetaGuard          = "guard"
	MetaRequestID      = "request_id"
	MetaProcessingTime = "processing_time_ms"
)

// WithResponseMeta gives each request a meta map. Pages add to it while rendering; the
// request id and timing are stamped here.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[MetaRequestID] = id
		}
		c.Set(metaContextKey, meta)
		c.Next()
		if _, exists := meta[MetaProcessingTime]; !exists {
			meta[MetaProcessingTime] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether the query cache served the page.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[MetaCacheHit] = hit
}

// SetGuardOutcome records why the guard turned a navigation away.
func SetGuardOutcome(c *gin.Context, outcome guard.Outcome) {
	ensureMeta(c)[MetaGuard] = string(outcome)
}

// GuardOutcome returns the outcome recorded by SetGuardOutcome, "" when the page rendered.
func GuardOutcome(c *gin.Context) guard.Outcome {
	outcome, _ := ExtractMeta(c)[MetaGuard].(string)
	return guard.Outcome(outcome)
}

// ExtractMeta returns the meta map of the request, nil outside WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := c.Value(metaContextKey).(map[string]interface{})
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	c.Set(metaContextKey, meta)
	return meta
}
