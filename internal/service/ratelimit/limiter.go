package ratelimit

import (
	"sync"
	"time"

	apphttp "StockInsight/pkg/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key (client IP). Buckets idle for
// longer than idleTTL are dropped on the next sweep.
type Limiter struct {
	mu      sync.Mutex
	m       map[string]*entry
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	sweepAt time.Time
	now     func() time.Time
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		m:       make(map[string]*entry),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether one request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.m[key] = e
	}
	e.seen = now
	l.sweep(now)
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) sweep(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	l.sweepAt = now.Add(l.idleTTL)
	for k, e := range l.m {
		if now.Sub(e.seen) > l.idleTTL {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the per-IP budget with 429. A zero or
// negative rps disables limiting. Paths in skip are never limited.
func Middleware(l *Limiter, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil || l.rps <= 0 {
				return next(c)
			}
			if _, ok := skipped[c.Path()]; ok {
				return next(c)
			}
			if !l.Allow(c.RealIP()) {
				return apphttp.TooManyRequestsError()
			}
			return next(c)
		}
	}
}
