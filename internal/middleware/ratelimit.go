package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// TokenBucket implements token bucket rate limiting. Tokens refill
// continuously, so a rate of 1/s yields one token per elapsed second.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastSeen   time.Time
}

func NewTokenBucket(capacity, refillRate int, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(refillRate),
		lastSeen:   now,
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if elapsed := now.Sub(tb.lastSeen).Seconds(); elapsed > 0 {
		tb.tokens += elapsed * tb.refillRate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
	}
	tb.lastSeen = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RetryAfter is how long until the next token, rounded up to whole seconds.
func (tb *TokenBucket) RetryAfter() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.refillRate <= 0 {
		return time.Minute
	}
	missing := 1 - tb.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing/tb.refillRate)) * time.Second
}

// RateLimiter manages one bucket per device+IP key.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate int
	idleTTL    time.Duration
	now        func() time.Time
}

func NewRateLimiter(capacity, refillRate int) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		idleTTL:    10 * time.Minute,
		now:        time.Now,
	}
}

// Allow reports whether key may proceed, and if not, when to retry.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := rl.now()
	rl.mu.Lock()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = NewTokenBucket(rl.capacity, rl.refillRate, now)
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	if bucket.Allow(now) {
		return true, 0
	}
	return false, bucket.RetryAfter()
}

// Sweep drops buckets idle for longer than the TTL and returns how many went.
func (rl *RateLimiter) Sweep() int {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, b := range rl.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastSeen) > rl.idleTTL
		b.mu.Unlock()
		if idle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until stop is closed.
func (rl *RateLimiter) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-stop:
			return
		}
	}
}

// RateLimitMiddleware limits state-changing requests per device+IP.
// Clients without a device of their own share one bucket per IP.
// GET/HEAD and ops routes pass through.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isOpsPath(r.URL.Path) || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			key := GetDeviceFromContext(r.Context()) + ":" + clientIP(r)
			if ok, wait := limiter.Allow(key); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
				http.Error(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limitKey(r *http.Request) string {
	ip := clientIP(r)
	if DeviceMinted(r.Context()) {
		return "ip:" + ip
	}
	return GetDeviceFromContext(r.Context()) + ":" + ip
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
