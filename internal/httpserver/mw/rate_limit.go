package mw

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/utils"
)

// ErrTypeThrottled classifies rate-limited mutation calls.
const ErrTypeThrottled = "ThrottlingException"

// RateLimitConfig sizes the per-client token buckets guarding the mutation API.
type RateLimitConfig struct {
	Burst             int           // bucket capacity
	RefillPerIPPerMin int           // tokens added per minute
	MaxEntries        int           // sweep early once this many clients are tracked
	SweepInterval     time.Duration // default 1m
	IdleTTL           time.Duration // forget clients idle this long, default 15m
	TrustProxy        bool          // resolve IP from proxy headers when true
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 15 * time.Minute
	}
	c.Burst = max(c.Burst, 1)
	c.RefillPerIPPerMin = max(c.RefillPerIPPerMin, 1)
	return c
}

type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	seen     time.Time
}

// take consumes one token if available. It returns the tokens left and, when
// refused, how many seconds until the next token.
func (b *tokenBucket) take(now time.Time, capacity, perSec float64) (bool, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dt := now.Sub(b.refilled).Seconds(); dt > 0 {
		b.tokens = math.Min(capacity, b.tokens+dt*perSec)
		b.refilled = now
	}

	if b.tokens < 1 {
		wait := int(math.Ceil((1 - b.tokens) / perSec))
		return false, 0, max(wait, 1)
	}

	b.tokens--
	b.seen = now
	return true, int(b.tokens), 0
}

func (b *tokenBucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.seen)
}

type limiter struct {
	cfg      RateLimitConfig
	capacity float64
	perSec   float64

	mu        sync.Mutex
	clients   map[string]*tokenBucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg = cfg.withDefaults()
	return &limiter{
		cfg:       cfg,
		capacity:  float64(cfg.Burst),
		perSec:    float64(cfg.RefillPerIPPerMin) / 60,
		clients:   make(map[string]*tokenBucket),
		lastSweep: time.Now(),
	}
}

func (l *limiter) bucket(key string, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	full := l.cfg.MaxEntries > 0 && len(l.clients) >= l.cfg.MaxEntries
	if full || now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		l.sweepLocked(now)
	}

	b, ok := l.clients[key]
	if !ok {
		b = &tokenBucket{tokens: l.capacity, refilled: now, seen: now}
		l.clients[key] = b
	}
	return b
}

func (l *limiter) sweepLocked(now time.Time) {
	for key, b := range l.clients {
		if b.idleSince(now) > l.cfg.IdleTTL {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// RateLimit throttles requests per client IP with a token bucket. Refused
// calls get a 429 in the mutation error shape plus Retry-After.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			b := l.bucket(utils.ClientIP(r, l.cfg.TrustProxy), now)
			ok, remaining, retryAfter := b.take(now, l.capacity, l.perSec)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(events.Result{Error: &events.Error{
					Message:    "rate limit exceeded",
					Type:       ErrTypeThrottled,
					StatusCode: http.StatusTooManyRequests,
				}})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
