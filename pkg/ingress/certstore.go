package ingress

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aetherproxy/aether-ingress/pkg/types"
)

// CertStore maps a lowercased SNI host name to the CertificateEntry that
// should be served for it. Reads (Get) never block: the current map is
// held behind an atomically-swapped pointer, so the TLS handshake's
// synchronous GetCertificate callback can call Get without awaiting any
// lock. Writes (Put, Remove) take an internal mutex to serialize
// read-modify-write of the map and install a fresh copy.
//
// Keys are compared exactly after lowercasing; no wildcard expansion is
// performed.
type CertStore struct {
	mu      sync.Mutex // serializes writers; readers never take it
	current atomic.Pointer[map[string]*types.CertificateEntry]
}

// NewCertStore returns an empty CertStore.
func NewCertStore() *CertStore {
	c := &CertStore{}
	empty := map[string]*types.CertificateEntry{}
	c.current.Store(&empty)
	return c
}

// Put inserts or replaces the binding for host. Per spec, only one
// secret may bind a given host at a time; a later Put for the same host
// overwrites the earlier binding (last-writer-wins).
func (c *CertStore) Put(host string, entry *types.CertificateEntry) {
	host = normalizeHost(host)
	c.mu.Lock()
	defer c.mu.Unlock()

	old := *c.current.Load()
	next := make(map[string]*types.CertificateEntry, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[host] = entry
	c.current.Store(&next)
}

// Remove deletes the binding for host, if present. Silent if absent.
func (c *CertStore) Remove(host string) {
	host = normalizeHost(host)
	c.mu.Lock()
	defer c.mu.Unlock()

	old := *c.current.Load()
	if _, ok := old[host]; !ok {
		return
	}
	next := make(map[string]*types.CertificateEntry, len(old))
	for k, v := range old {
		if k != host {
			next[k] = v
		}
	}
	c.current.Store(&next)
}

// Get performs a lock-free point lookup keyed by the lowercased SNI string.
func (c *CertStore) Get(host string) (*types.CertificateEntry, bool) {
	m := *c.current.Load()
	entry, ok := m[normalizeHost(host)]
	return entry, ok
}

// Len returns the number of hosts currently bound to a certificate.
func (c *CertStore) Len() int {
	return len(*c.current.Load())
}

// normalizeHost lowercases the host so SNI comparisons are
// case-insensitive per RFC 6066 (spec.md §9 open question 4).
func normalizeHost(host string) string {
	return strings.ToLower(host)
}
