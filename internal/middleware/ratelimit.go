package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/respond"
)

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	requests  map[string][]time.Time // IP -> timestamps
	lastSweep time.Time
	mu        sync.Mutex
	now       func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// RateLimit allows maxRequests per client IP within a sliding window.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ClientIP(r)
			if !m.allow(clientIP, maxRequests, window) {
				log.WithFields(log.Fields{"ip": clientIP, "path": r.URL.Path}).Warn("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				respond.Error(w, http.StatusTooManyRequests, "Demasiados intentos, espere un momento")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(ip string, maxRequests int, window time.Duration) bool {
	now := m.now()
	windowStart := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= window {
		m.sweep(windowStart)
		m.lastSweep = now
	}

	valid := m.requests[ip][:0]
	for _, ts := range m.requests[ip] {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	if len(valid) >= maxRequests {
		m.requests[ip] = valid
		return false
	}
	m.requests[ip] = append(valid, now)
	return true
}

// sweep drops clients with no request inside the window.
func (m *RateLimitMiddleware) sweep(windowStart time.Time) {
	for ip, stamps := range m.requests {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(windowStart) {
			delete(m.requests, ip)
		}
	}
}

// tracked reports how many clients currently hold rate limit state.
func (m *RateLimitMiddleware) tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// ClientIP returns the host of RemoteAddr. Proxy headers are not read
// here: chi's RealIP middleware has already applied them to RemoteAddr
// for trusted deployments.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
