package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware gives every client IP its own token bucket.
type RateLimitMiddleware struct {
	rps        rate.Limit
	burst      int
	trustProxy bool

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// RateLimitOption configures a RateLimitMiddleware.
type RateLimitOption func(*RateLimitMiddleware)

// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP. Enable it
// only behind a proxy that overwrites those headers; otherwise any client
// can pick its own bucket.
func TrustProxyHeaders(trust bool) RateLimitOption {
	return func(m *RateLimitMiddleware) { m.trustProxy = trust }
}

// NewRateLimitMiddleware allows rps requests per second per client with the
// given burst. Clients are keyed by the connection address unless
// TrustProxyHeaders is set.
func NewRateLimitMiddleware(rps rate.Limit, burst int, opts ...RateLimitOption) *RateLimitMiddleware {
	if burst < 1 {
		burst = 1
	}
	m := &RateLimitMiddleware{
		rps:     rps,
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RateLimitMiddleware) limiterFor(ip string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(m.rps, m.burst)}
		m.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Sweep forgets clients idle for longer than the TTL.
func (m *RateLimitMiddleware) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for ip, c := range m.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(m.clients, ip)
			removed++
		}
	}
	return removed
}

// RateLimit applies rate limiting based on IP address
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r, m.trustProxy)
		if !m.limiterFor(ip, time.Now()).Allow() {
			LoggerFromContext(r.Context()).WithField("ip", ip).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request. Proxy headers are
// only read when trustProxy is set.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
