package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/ecare-e2e/internal/handler"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns a limiter shared by all clients. A zero Rate disables it.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate == 0 {
		return &RateLimiter{}
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(config.Rate, config.Burst),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter != nil && !rl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				handler.NewErrorResponse("TOO_MANY_REQUESTS", "rate limit exceeded"))
			return
		}
		c.Next()
	}
}
