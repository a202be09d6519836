package ingress

import (
	"crypto/tls"
	"errors"

	"github.com/aetherproxy/aether-ingress/pkg/log"
)

// ErrNoSNI is returned when a ClientHello carries no server name, which
// this proxy cannot route: there is no wildcard or default certificate.
var ErrNoSNI = errors.New("resolver: client hello carries no server name")

// ErrCertificateNotFound is returned when no certificate is currently
// bound to the requested SNI host.
var ErrCertificateNotFound = errors.New("resolver: no certificate bound to requested host")

// CertificateResolver is C5: it bridges the synchronous
// tls.Config.GetCertificate callback to a CertStore lookup.
type CertificateResolver struct {
	certs *CertStore
}

// NewCertificateResolver returns a resolver backed by certs.
func NewCertificateResolver(certs *CertStore) *CertificateResolver {
	return &CertificateResolver{certs: certs}
}

// GetCertificate implements the tls.Config.GetCertificate signature. It
// never blocks: CertStore.Get is a lock-free read of an atomically
// swapped map, so handshakes never wait on watcher activity.
func (r *CertificateResolver) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if hello.ServerName == "" {
		log.WithComponent("resolver").Warn().
			Str("remote", hello.Conn.RemoteAddr().String()).
			Msg("rejecting handshake with no SNI server name")
		return nil, ErrNoSNI
	}

	entry, ok := r.certs.Get(hello.ServerName)
	if !ok {
		log.WithComponent("resolver").Warn().
			Str("host", hello.ServerName).
			Msg("rejecting handshake: no certificate bound to host")
		return nil, ErrCertificateNotFound
	}

	return entry.Parsed, nil
}
