package middlewares

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/gin-gonic/gin"
)

// Throttle limits requests per client IP and path to maxPerSecond.
// Idle counters expire after ttl.
func Throttle(maxPerSecond float64, ttl time.Duration) gin.HandlerFunc {
	lmt := tollbooth.NewLimiter(maxPerSecond, &limiter.ExpirableOptions{DefaultExpirationTTL: ttl})
	lmt.SetMessage("Too many requests. Please slow down.")

	return func(c *gin.Context) {
		if httpErr := tollbooth.LimitByRequest(lmt, c.Writer, c.Request); httpErr != nil {
			status := httpErr.StatusCode
			if status == 0 {
				status = http.StatusTooManyRequests
			}
			c.AbortWithStatusJSON(status, gin.H{"error": httpErr.Message})
			return
		}
		c.Next()
	}
}
