package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type peerKey struct{}

// PeerAddr records the socket peer address before chi's RealIP rewrites
// RemoteAddr from client-supplied headers. Install it ahead of RealIP.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter throttles POSTs per client IP. GETs pass untouched.
//
// Clients are keyed on the socket peer recorded by PeerAddr, so forwarded
// headers cannot be rotated to dodge the limit. Behind a proxy that
// overwrites X-Forwarded-For, call TrustProxy to key on the rewritten
// RemoteAddr instead.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientLimiter
	interval   time.Duration
	burst      int
	trustProxy bool
	lastSweep  time.Time
	now        func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters: map[string]*clientLimiter{},
		interval: time.Minute / time.Duration(perMinute),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (l *RateLimiter) TrustProxy() *RateLimiter {
	l.trustProxy = true
	return l
}

// idle is how long a bucket takes to refill. A limiter unused for that long
// is indistinguishable from a new one and can be dropped.
func (l *RateLimiter) idle() time.Duration {
	return l.interval * time.Duration(l.burst)
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle() {
		for k, c := range l.limiters {
			if now.Sub(c.seen) >= l.idle() {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.limiters[key]
	if !ok {
		c = &clientLimiter{lim: rate.NewLimiter(rate.Every(l.interval), l.burst)}
		l.limiters[key] = c
	}
	c.seen = now
	return c.lim
}

func (l *RateLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *RateLimiter) clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if !l.trustProxy {
		if peer, ok := r.Context().Value(peerKey{}).(string); ok && peer != "" {
			addr = peer
		}
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		if !l.limiter(l.clientIP(r)).AllowN(l.now(), 1) {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(l.interval.Seconds()))))
			http.Error(w, "Too many attempts, please try again later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
