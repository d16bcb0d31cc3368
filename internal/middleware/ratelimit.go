package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"voteflow-backend/pkg/utils"
)

// RateLimiter throttles a route per client IP.
type RateLimiter struct {
	every time.Duration
	burst int

	// proxies whose X-Forwarded-For and X-Real-IP headers are believed
	trusted []*net.IPNet

	mu       sync.Mutex
	limiters map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows burst requests, refilling one every interval.
// Requests are keyed on the connection's address; forwarding headers count
// only when that address is one of trustedProxies (IPs or CIDRs).
func NewRateLimiter(every time.Duration, burst int, trustedProxies ...string) *RateLimiter {
	rl := &RateLimiter{every: every, burst: burst, limiters: make(map[string]*visitor)}
	for _, p := range trustedProxies {
		if n := parseNet(strings.TrimSpace(p)); n != nil {
			rl.trusted = append(rl.trusted, n)
		}
	}
	return rl
}

func parseNet(s string) *net.IPNet {
	if s == "" {
		return nil
	}
	if _, n, err := net.ParseCIDR(s); err == nil {
		return n
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	bits := 8 * len(ip)
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

func (rl *RateLimiter) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range rl.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientKey is the peer address, or, behind a trusted proxy, the nearest
// forwarded address that is not itself a trusted proxy.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !rl.isTrusted(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !rl.isTrusted(hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	v, ok := rl.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(rl.every), rl.burst)}
		rl.limiters[ip] = v
	}
	v.lastSeen = now
	// forget visitors idle for an hour
	for k, other := range rl.limiters {
		if now.Sub(other.lastSeen) > time.Hour {
			delete(rl.limiters, k)
		}
	}
	return v.limiter
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(rl.clientKey(r)).Allow() {
			w.Header().Set("Retry-After", "60")
			utils.Error(w, http.StatusTooManyRequests, "Too many attempts, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
