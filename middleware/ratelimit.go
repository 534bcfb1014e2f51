package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"membercrm/logger"
	"membercrm/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRateLimit throttles login attempts per client IP and submitted email.
// A limiter error lets the request through.
func LoginRateLimit(limiter services.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "login:" + c.ClientIP() + ":" + peekEmail(c)

		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			secs := int(res.RetryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, try again later"})
			return
		}
		c.Next()
	}
}

// peekEmail reads the email from a JSON body and restores the body for the handler.
func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(raw), c.Request.Body), c.Request.Body}
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

type readCloser struct {
	io.Reader
	io.Closer
}
