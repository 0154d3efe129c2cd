package middlewares

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/utils"
	"golang.org/x/time/rate"
)

// RateLimiter is a sliding window limiter keyed by client IP.
type RateLimiter struct {
	rate     int
	interval time.Duration
	ips      map[string][]time.Time
	mu       sync.Mutex
}

func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		rate:     rate,
		interval: interval,
		ips:      make(map[string][]time.Time),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rl.mu.Lock()
		cutoff := now.Add(-rl.interval)
		valid := rl.ips[ip][:0]
		for _, t := range rl.ips[ip] {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}

		if len(valid) >= rl.rate {
			rl.ips[ip] = valid
			rl.mu.Unlock()
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("too many requests"))
			c.Abort()
			return
		}

		rl.ips[ip] = append(valid, now)
		rl.mu.Unlock()
		c.Next()
	}
}

// StrictRateLimiter keeps one token bucket per client IP for sensitive
// endpoints such as login and OTP.
type StrictRateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

func NewStrictRateLimiter(every time.Duration, burst int) *StrictRateLimiter {
	return &StrictRateLimiter{
		limit:    rate.Every(every),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *StrictRateLimiter) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[ip] = limiter
	}
	return limiter
}

func (s *StrictRateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiterFor(c.ClientIP()).Allow() {
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("too many attempts, please wait a moment"))
			c.Abort()
			return
		}
		c.Next()
	}
}
