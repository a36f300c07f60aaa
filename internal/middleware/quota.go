package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nexusai-api/internal/metrics"
	"nexusai-api/internal/ratelimit"
)

// QuotaExceededResponse is returned with a 429 when the caller's tier quota
// is exhausted.
type QuotaExceededResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Tier      string    `json:"tier"`
	Limit     int       `json:"limit"`
	ResetTime time.Time `json:"reset_time"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// TierQuota enforces the sliding-window quota for scope. It runs after
// Identity, which guarantees user_id and user_tier are set.
func TierQuota(limiter *ratelimit.Limiter, scope ratelimit.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		tier := c.GetString("user_tier")

		decision := limiter.Allow(userID, tier, scope)
		if !decision.Allowed {
			metrics.Get().RateLimitHitsTotal.WithLabelValues(tier, string(scope)).Inc()
			c.JSON(http.StatusTooManyRequests, QuotaExceededResponse{
				Error:     "RATE_LIMIT: " + string(scope) + " quota exceeded for " + tier + " tier",
				Code:      "QUOTA_EXCEEDED",
				Tier:      tier,
				Limit:     decision.Limit,
				ResetTime: decision.ResetAt,
				Timestamp: time.Now().UTC(),
				RequestID: c.GetString("request_id"),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
