package ingress

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/aetherproxy/aether-ingress/pkg/log"
	"github.com/aetherproxy/aether-ingress/pkg/metrics"
)

// hopByHopHeaders are stripped from the upstream response before it is
// written back to the client; httputil.ReverseProxy would do this, but
// this dispatcher calls the Transport directly, which leaves them in
// the response header, so it must do the stripping itself.
var hopByHopHeaders = []string{"Connection", "Keep-Alive", "Upgrade", "Transfer-Encoding"}

// Dispatcher is C7: it resolves a routing decision via a Store and
// forwards the request to the chosen upstream over plain HTTP, copying
// the full body in both directions. Request headers are forwarded as
// received plus X-Forwarded-For; response headers are copied back except
// the hop-by-hop set.
type Dispatcher struct {
	store     *Store
	transport http.RoundTripper
	limiters  *rateLimiters // nil disables the guard
}

// NewDispatcher returns a Dispatcher backed by store. If limit is
// non-nil, requests are additionally subject to a per-client-IP token
// bucket before being routed.
func NewDispatcher(store *Store, limit *RateLimit) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		transport: http.DefaultTransport,
	}
	if limit != nil {
		d.limiters = newRateLimiters(limit)
	}
	return d
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	status := d.serve(w, r)
	metrics.RequestsTotal.WithLabelValues(statusClass(status)).Inc()
	timer.ObserveDuration(metrics.RequestDuration)

	log.WithComponent("dispatcher").Debug().
		Str("method", r.Method).
		Str("host", r.Host).
		Str("path", r.URL.Path).
		Int("status", status).
		Dur("duration", timer.Duration()).
		Msg("dispatched request")
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request) int {
	ip := clientIP(r)

	if d.limiters != nil && !d.limiters.allow(ip) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return http.StatusTooManyRequests
	}

	host := stripPort(r.Host)

	upstreamHost, port, err := d.store.Lookup(host, r.URL.Path)
	if err != nil {
		if errors.Is(err, ErrNoIngress) || errors.Is(err, ErrNoBackend) {
			http.Error(w, "no route matches this request", http.StatusBadGateway)
			return http.StatusBadGateway
		}
		http.Error(w, "internal routing error", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	outReq := r.Clone(r.Context())
	outReq.RequestURI = ""
	outReq.URL.Scheme = "http"
	outReq.URL.Host = net.JoinHostPort(upstreamHost, strconv.FormatUint(uint64(port), 10))
	outReq.URL.Path = r.URL.Path
	outReq.URL.RawQuery = r.URL.RawQuery
	outReq.Host = r.Host
	appendForwardedFor(outReq, ip)

	resp, err := d.transport.RoundTrip(outReq)
	if err != nil {
		log.WithComponent("dispatcher").Warn().
			Err(err).
			Str("upstream", outReq.URL.Host).
			Msg("upstream round trip failed")
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return http.StatusBadGateway
	}
	defer resp.Body.Close()

	dst := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	for _, h := range hopByHopHeaders {
		dst.Del(h)
	}

	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
	return resp.StatusCode
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return strings.TrimSpace(strconv.Itoa(status))
	}
}
