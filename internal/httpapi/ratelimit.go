package httpapi

import (
	"sync"

	"golang.org/x/time/rate"
)

// tokenLimiter keeps one rate.Limiter per bearer token. Limits are
// hot-reloadable; changing them resets the per-token buckets.
type tokenLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newTokenLimiter(perMin, burst int) *tokenLimiter {
	l := &tokenLimiter{limiters: make(map[string]*rate.Limiter)}
	l.setLimits(perMin, burst)
	return l
}

func (l *tokenLimiter) setLimits(perMin, burst int) {
	if perMin <= 0 {
		perMin = 60
	}
	if burst <= 0 {
		burst = 10
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = rate.Limit(float64(perMin) / 60.0)
	l.burst = burst
	l.limiters = make(map[string]*rate.Limiter)
}

func (l *tokenLimiter) allow(token string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[token]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[token] = lim
	}
	return lim.Allow()
}
