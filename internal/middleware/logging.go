package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"voteflow-backend/internal/logger"
)

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// RequestLogger logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	log := logger.For("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		entry := log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        sanitizePath(r.URL.Path),
			"status":      wrapped.statusCode,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes":       wrapped.bytesWritten,
			"ip":          getClientIP(r),
		})
		if claims, ok := ClaimsFrom(r.Context()); ok {
			entry = entry.WithField("user", claims.UserID)
		}
		switch {
		case wrapped.statusCode >= 500:
			entry.Error("request")
		case wrapped.statusCode >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	})
}

func shouldSkipLogging(path string) bool {
	for _, skip := range []string{"/health", "/metrics", "/ws/", "/favicon.ico"} {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// sanitizePath drops any query string and truncates very long paths.
func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// getClientIP prefers proxy headers over RemoteAddr. It is for log lines
// only; the rate limiter does not trust these headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
