// Package ratelimit throttles write requests per client address.
package ratelimit

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window    = time.Minute
	staleTime = 10 * time.Minute
)

// Config selects the per-minute quota and which methods count against it.
// An empty Methods list counts every request.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	Methods           []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// RetryAfter is ResetIn rounded up to whole seconds, at least one.
func (d Decision) RetryAfter() int {
	return max(1, int(math.Ceil(d.ResetIn.Seconds())))
}

type bucket struct {
	start time.Time
	seen  time.Time
	count int
}

// Limiter counts requests per key in fixed one-minute windows.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	methods []string
	now     func() time.Time

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter and its sweeper goroutine. Call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   cfg.RequestsPerMinute,
		methods: cfg.Methods,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweepEvery(cfg.CleanupInterval)
	return l
}

// Allow records one request for key and reports whether it fits the quota.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		b = &bucket{start: now}
		l.buckets[key] = b
	}
	b.count++
	b.seen = now

	d := Decision{
		Allowed:   b.count <= l.limit,
		Limit:     l.limit,
		Remaining: max(0, l.limit-b.count),
		ResetIn:   b.start.Add(window).Sub(now),
	}
	if !d.Allowed {
		l.rejected.Add(1)
	}
	return d
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops keys idle for longer than staleTime.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-staleTime)
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics reports rejected requests and tracked clients.
func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.rejected.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware counts requests with a configured method against the client
// returned by keyFn. Counted responses carry X-RateLimit-* headers. Over the
// quota, onLimit answers the request; a nil onLimit sends a plain 429.
func (l *Limiter) Middleware(keyFn func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request, Decision)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(l.methods) > 0 && !slices.Contains(l.methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			d := l.Allow(keyFn(r))
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Retry-After", strconv.Itoa(d.RetryAfter()))
			if onLimit != nil {
				onLimit(w, r, d)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
