package httpadmin

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/antigravity-dev/banking-platform/internal/logging"
)

// withCorrelationID stamps every request with a correlation ID (reusing an
// inbound X-Correlation-ID if present) and attaches it to the request
// context so every downstream log line carries it.
func (s *Server) withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logging.WithCorrelationID(r.Context(), id)
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withSecurityHeaders attaches the standard hardening headers to every response.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

// withCORS allows only the configured origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.Settings.CORSOrigins))
	for _, o := range s.Settings.CORSOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Correlation-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth requires Authorization: Bearer <key> or X-API-Key: <key>
// for any path under /api/admin/*, when BANKING_API_KEY is configured.
func (s *Server) withAPIKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Settings.APIKey == "" || isPublicPath(r.URL.Path) || !isAdminPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if key != s.Settings.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid or missing API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a sliding-window-per-IP limit to /api/admin/* only.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdminPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		if ok, retryAfter := s.rateLimiter.allow(ip); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return host
}

// ipRateLimiter hands out a golang.org/x/time/rate token-bucket limiter per
// client IP, refilled at limit/window and bursting up to limit — the
// token-bucket equivalent of a 60s sliding window at the configured rate.
type ipRateLimiter struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newIPRateLimiter(limit int, window time.Duration) *ipRateLimiter {
	return &ipRateLimiter{limit: limit, window: window, limiters: make(map[string]*rate.Limiter)}
}

// allow reports whether the request is within the limit, and if not, how
// many seconds the caller should wait before retrying.
func (l *ipRateLimiter) allow(ip string) (bool, int) {
	if l.limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		perSecond := rate.Limit(float64(l.limit) / l.window.Seconds())
		lim = rate.NewLimiter(perSecond, l.limit)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()

	if lim.Allow() {
		return true, 0
	}
	retryAfter := int(l.window.Seconds()/float64(l.limit)) + 1
	return false, retryAfter
}
