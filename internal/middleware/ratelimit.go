package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"
)

// CheckoutRateLimiter limits how many order submissions a client may attempt per window
type CheckoutRateLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewCheckoutRateLimiter creates a new checkout rate limiter
func NewCheckoutRateLimiter(maxAttempts int, window time.Duration) *CheckoutRateLimiter {
	return &CheckoutRateLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within the limit
func (rl *CheckoutRateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	valid := rl.prune(rl.attempts[key], now)
	if len(valid) >= rl.maxAttempts {
		rl.attempts[key] = valid
		return false
	}

	rl.attempts[key] = append(valid, now)
	return true
}

// TimeUntilAllowed returns the time until the next attempt for key is allowed
func (rl *CheckoutRateLimiter) TimeUntilAllowed(key string) time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	valid := rl.prune(rl.attempts[key], now)
	if len(valid) < rl.maxAttempts {
		return 0
	}
	// The oldest attempt in the window is the next to expire
	return valid[0].Add(rl.window).Sub(now)
}

// Cleanup removes keys with no attempts left in the window
func (rl *CheckoutRateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, attempts := range rl.attempts {
		if valid := rl.prune(attempts, now); len(valid) == 0 {
			delete(rl.attempts, key)
		} else {
			rl.attempts[key] = valid
		}
	}
}

func (rl *CheckoutRateLimiter) prune(attempts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	var valid []time.Time
	for _, attempt := range attempts {
		if attempt.After(cutoff) {
			valid = append(valid, attempt)
		}
	}
	return valid
}

// CheckoutRateLimit applies the limiter to POST requests, keyed by client IP
func CheckoutRateLimit(rateLimiter *CheckoutRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			if !rateLimiter.Allow(ip) {
				wait := rateLimiter.TimeUntilAllowed(ip)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, ErrorResponse{
					Error: "Too many order attempts. Please try again in " + wait.Round(time.Second).String() + ".",
					Code:  "rate_limited",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
