package types

import (
	"crypto"
	"crypto/tls"
)

// RoutingSnapshot is an immutable, atomically-installed view of the routing
// table derived from a single accepted Ingress object. A nil
// *RoutingSnapshot means no Ingress is currently installed.
type RoutingSnapshot struct {
	// Namespace qualifies backend hostnames: upstream authority is built
	// as "{Backend.Name}.{Namespace}".
	Namespace string

	// DefaultRoute is used when no rule matches the request. Nil means
	// there is no default.
	DefaultRoute *Backend

	// Rules is evaluated in order; see Rule for match semantics.
	Rules []Rule
}

// Rule binds an optional host to an ordered list of path rules.
type Rule struct {
	// Host is the virtual host this rule applies to. An empty string
	// means "match any host".
	Host string

	Paths []Path
}

// Path is a literal path prefix bound to a backend.
type Path struct {
	// Path is matched as a byte prefix against the request path.
	Path string

	Backend Backend
}

// Backend identifies an upstream service within the snapshot's namespace.
type Backend struct {
	Name string
	Port uint32
}

// CertificateEntry is the parsed result of a kubernetes.io/tls Secret: a
// certificate chain (leaf first) and its matching private key, ready to
// hand to crypto/tls.
type CertificateEntry struct {
	// Chain holds DER-encoded certificates, leaf first.
	Chain [][]byte

	// PrivateKey is the parsed RSA key matching Chain[0].
	PrivateKey crypto.Signer

	// Parsed is a ready-to-use tls.Certificate built from Chain and
	// PrivateKey, cached so repeated handshakes don't re-marshal it.
	Parsed *tls.Certificate
}
