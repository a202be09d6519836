package ingress

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/aetherproxy/aether-ingress/pkg/log"
)

// RateLimit configures the per-client token-bucket guard a Dispatcher
// may apply before routing a request. A nil *RateLimit disables it.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// rateLimiters tracks one token bucket per client IP, trimmed from the
// teacher's broader Middleware type down to the single guard the
// dispatcher needs; header manipulation beyond X-Forwarded-For, path
// rewriting, and CIDR access control were not named by any routing or
// certificate component and are not carried forward.
type rateLimiters struct {
	config *RateLimit
	mu     sync.Mutex
	byIP   map[string]*rate.Limiter
}

func newRateLimiters(config *RateLimit) *rateLimiters {
	return &rateLimiters{config: config, byIP: make(map[string]*rate.Limiter)}
}

func (rl *rateLimiters) allow(clientIP string) bool {
	rl.mu.Lock()
	limiter, ok := rl.byIP[clientIP]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)
		rl.byIP[clientIP] = limiter
	}
	rl.mu.Unlock()

	allowed := limiter.Allow()
	if !allowed {
		log.WithComponent("dispatcher").Warn().Str("client", clientIP).Msg("rate limit exceeded")
	}
	return allowed
}

// appendForwardedFor appends clientIP to any existing X-Forwarded-For
// chain on r, per spec.md §4.7.
func appendForwardedFor(r *http.Request, clientIP string) {
	if prior := r.Header.Get("X-Forwarded-For"); prior != "" {
		r.Header.Set("X-Forwarded-For", prior+", "+clientIP)
	} else {
		r.Header.Set("X-Forwarded-For", clientIP)
	}
}

// clientIP extracts the connecting peer's address, ignoring any
// forwarding headers a client may have spoofed.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
