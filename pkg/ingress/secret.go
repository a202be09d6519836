package ingress

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"

	"github.com/aetherproxy/aether-ingress/pkg/types"
)

// Named parse-error kinds for secret handling.
var (
	ErrNoSecretData       = errors.New("secret: missing tls.crt or tls.key")
	ErrInvalidCertificate = errors.New("secret: could not parse certificate chain")
	ErrInvalidPrivateKey  = errors.New("secret: could not parse private key")
)

// HostsAnnotation is the annotation key carrying the comma-separated list
// of SNI hosts a TLS secret binds.
const HostsAnnotation = "aether.rs/hosts"

// ParseCertificateEntry parses the tls.crt/tls.key data of a
// kubernetes.io/tls Secret into a CertificateEntry. The caller must have
// already checked secret.Type == corev1.SecretTypeTLS.
func ParseCertificateEntry(secret *corev1.Secret) (*types.CertificateEntry, error) {
	certPEM, ok := secret.Data[corev1.TLSCertKey]
	if !ok {
		return nil, fmt.Errorf("%w: secret %s/%s", ErrNoSecretData, secret.Namespace, secret.Name)
	}
	keyPEM, ok := secret.Data[corev1.TLSPrivateKeyKey]
	if !ok {
		return nil, fmt.Errorf("%w: secret %s/%s", ErrNoSecretData, secret.Namespace, secret.Name)
	}

	chain, err := parseCertificateChain(certPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: secret %s/%s: %v", ErrInvalidCertificate, secret.Namespace, secret.Name, err)
	}

	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: secret %s/%s: %v", ErrInvalidPrivateKey, secret.Namespace, secret.Name, err)
	}

	tlsCert := &tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
	}
	if leaf, err := x509.ParseCertificate(chain[0]); err == nil {
		tlsCert.Leaf = leaf
	}

	return &types.CertificateEntry{
		Chain:      chain,
		PrivateKey: key,
		Parsed:     tlsCert,
	}, nil
}

func parseCertificateChain(data []byte) ([][]byte, error) {
	var chain [][]byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		return nil, errors.New("no CERTIFICATE blocks found")
	}
	return chain, nil
}

// parsePrivateKey accepts only RSA keys in PKCS#1 or PKCS#8 PEM form, per
// spec.md §3/§4.4. A "PRIVATE KEY" block is PKCS#8 and may wrap any key
// algorithm, so its parsed contents are type-asserted to *rsa.PrivateKey
// rather than accepted as any crypto.Signer.
func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("not a valid PKCS#8 key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS#8 key is not RSA")
		}
		return rsaKey, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block type %q, want RSA PRIVATE KEY or PRIVATE KEY", block.Type)
	}
}

// SplitHosts splits the comma-separated hosts annotation into individual
// host keys, trimming surrounding whitespace and dropping empty entries
// (spec.md §9 open question 3).
func SplitHosts(annotation string) []string {
	var hosts []string
	for _, piece := range strings.Split(annotation, ",") {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			hosts = append(hosts, piece)
		}
	}
	return hosts
}
