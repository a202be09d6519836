package ingress

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/aetherproxy/aether-ingress/pkg/log"
)

// Proxy is C6: it terminates TLS on a single listener, resolving the
// server certificate per handshake via a CertificateResolver, and hands
// accepted connections to a Dispatcher.
type Proxy struct {
	addr       string
	dispatcher *Dispatcher
	resolver   *CertificateResolver
	server     *http.Server
}

// NewProxy returns a Proxy that will listen on addr once Start is
// called.
func NewProxy(addr string, dispatcher *Dispatcher, resolver *CertificateResolver) *Proxy {
	return &Proxy{
		addr:       addr,
		dispatcher: dispatcher,
		resolver:   resolver,
	}
}

// Start opens the TLS listener and serves until ctx is canceled, at
// which point it gracefully drains in-flight connections and returns.
// It is meant to be registered with a lifecycle.Group via AddContext.
func (p *Proxy) Start(ctx context.Context) {
	tlsConfig := &tls.Config{
		GetCertificate: p.resolver.GetCertificate,
		MinVersion:     tls.VersionTLS12,
		NextProtos:     []string{"h2", "http/1.1"},
	}

	p.server = &http.Server{
		Addr:         p.addr,
		Handler:      p.dispatcher,
		TLSConfig:    tlsConfig,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", p.addr)
	if err != nil {
		log.WithComponent("acceptor").Error().Err(err).Str("addr", p.addr).Msg("failed to bind listener")
		return
	}
	tlsListener := tls.NewListener(listener, tlsConfig)

	log.WithComponent("acceptor").Info().Str("addr", p.addr).Msg("accepting TLS connections")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- p.server.Serve(tlsListener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.WithComponent("acceptor").Error().Err(err).Msg("listener exited unexpectedly")
		}
	case <-ctx.Done():
		log.WithComponent("acceptor").Info().Msg("shutting down TLS listener")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.server.Shutdown(shutdownCtx); err != nil {
			log.WithComponent("acceptor").Error().Err(err).Msg("graceful shutdown failed")
		}
		<-serveErr
	}
}

// Addr returns the configured listen address, for logging and tests.
func (p *Proxy) Addr() string {
	return p.addr
}
