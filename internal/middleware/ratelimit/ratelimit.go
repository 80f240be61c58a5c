// Package ratelimit counts requests in one-minute windows per bucket. A
// bucket is usually a client IP, with credential endpoints counted
// separately under a lower limit.
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window   = time.Minute
	staleAge = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration

	// AuthRequestsPerMinute applies to login, registration and password
	// reset, per client IP.
	AuthRequestsPerMinute int
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute:     60,
		AuthRequestsPerMinute: 10,
		CleanupInterval:       5 * time.Minute,
	}
}

type bucket struct {
	windowStart time.Time
	lastSeen    time.Time
	count       int
}

type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	limited atomic.Int64
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter starts the limiter's cleanup goroutine. Call Stop to release it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.AuthRequestsPerMinute <= 0 {
		cfg.AuthRequestsPerMinute = min(def.AuthRequestsPerMinute, cfg.RequestsPerMinute)
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow counts one request against key and reports whether it stays within
// limit for the current window.
func (l *Limiter) Allow(key string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		l.buckets[key] = &bucket{windowStart: now, lastSeen: now, count: 1}
		return limit >= 1
	}
	b.count++
	b.lastSeen = now
	if b.count > limit {
		l.limited.Add(1)
		return false
	}
	return true
}

// authPaths are the unauthenticated endpoints that check credentials.
var authPaths = []string{
	"/api/auth/token",
	"/api/auth/register",
	"/api/users/reset-password",
}

// Bucket returns the key and limit a request counts against.
func (l *Limiter) Bucket(r *http.Request, clientIP string) (string, int) {
	if r.Method == http.MethodPost {
		for _, p := range authPaths {
			if strings.TrimSuffix(r.URL.Path, "/") == p {
				return "auth:" + clientIP, l.cfg.AuthRequestsPerMinute
			}
		}
	}
	return "ip:" + clientIP, l.cfg.RequestsPerMinute
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.removeStale()
		case <-l.stop:
			return
		}
	}
}

// removeStale drops buckets idle for longer than staleAge.
func (l *Limiter) removeStale() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-staleAge)
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// ActiveClients is the number of live buckets.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.limited.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware rejects requests over their bucket's limit with 429 and a
// Retry-After header. onLimit writes the body; nil writes plain text.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, limit := l.Bucket(r, extractIP(r))
			if l.Allow(key, limit) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "60")
			if onLimit == nil {
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
