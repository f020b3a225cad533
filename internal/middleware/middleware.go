package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/metrics"
)

// Logging provides structured logging for HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Add request ID to context
		requestID := middleware.GetReqID(r.Context())
		ctx := context.WithValue(r.Context(), "request_id", requestID) //nolint:staticcheck // string context key used intentionally for cross-package simplicity
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			duration := time.Since(start)

			logger.WithContext(ctx).Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", duration.Milliseconds(),
				"bytes", ww.BytesWritten(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Metrics records HTTP metrics
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			duration := time.Since(start)
			metrics.RecordHTTPRequest(
				r.Method,
				routePattern(r),
				ww.Status(),
				duration,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern prefers the matched chi pattern so path parameters do not
// explode label cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// Security adds security headers
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// write429 writes Too Many Requests
func write429(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
}

// RateLimit caps requests per client IP over a sliding minute. It guards the
// manual check triggers, which each start a full feed poll.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	limiter := newSlidingWindow(requestsPerMinute, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestsPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				clientIP = host
			}

			if !limiter.allow(clientIP, time.Now()) {
				write429(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// slidingWindow counts requests per key over the trailing window. Keys with
// no request inside the window are dropped once per window.
type slidingWindow struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	clients   map[string][]time.Time
	lastSweep time.Time
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
	}
}

func (sw *slidingWindow) allow(key string, now time.Time) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if now.Sub(sw.lastSweep) >= sw.window {
		sw.sweep(now)
	}

	valid := sw.recent(sw.clients[key], now)
	if len(valid) >= sw.limit {
		sw.clients[key] = valid
		return false
	}
	sw.clients[key] = append(valid, now)
	return true
}

// sweep must be called with mu held.
func (sw *slidingWindow) sweep(now time.Time) {
	for key, stamps := range sw.clients {
		if valid := sw.recent(stamps, now); len(valid) == 0 {
			delete(sw.clients, key)
		} else {
			sw.clients[key] = valid
		}
	}
	sw.lastSweep = now
}

func (sw *slidingWindow) recent(stamps []time.Time, now time.Time) []time.Time {
	valid := stamps[:0]
	for _, ts := range stamps {
		if now.Sub(ts) < sw.window {
			valid = append(valid, ts)
		}
	}
	return valid
}

func (sw *slidingWindow) size() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(sw.clients)
}

// CORS handles CORS headers
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
