package ingress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aetherproxy/aether-ingress/pkg/types"
)

// Errors returned by Store.Lookup.
var (
	ErrNoIngress = errors.New("ingress: no routing snapshot installed")
	ErrNoBackend = errors.New("ingress: no backend matched request")
)

// Store holds at most one current RoutingSnapshot and serves point
// queries against it. Replace installs a new snapshot atomically with
// respect to concurrent Lookup calls; a lookup in flight always observes
// exactly one snapshot version, never a mix of two.
type Store struct {
	mu       sync.RWMutex
	snapshot *types.RoutingSnapshot
}

// NewStore returns an empty Store (no snapshot installed).
func NewStore() *Store {
	return &Store{}
}

// Replace atomically installs snapshot as the current routing table,
// dropping whatever was previously installed.
func (s *Store) Replace(snapshot *types.RoutingSnapshot) {
	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
}

// Clear atomically installs "no snapshot".
func (s *Store) Clear() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

// Lookup resolves host and path against the current snapshot. host may be
// empty, meaning the caller has no virtual-host information.
//
// Algorithm: start from the snapshot's default route, then walk rules in
// order. A rule matches if it has no host, or the caller supplied no
// host, or the hosts compare equal (case-sensitive). Within a matching
// rule, every path whose Path is a byte-prefix of the request path
// updates the chosen backend — later matches win over earlier ones, so
// the last prefix match within the rule decides, not the longest one.
func (s *Store) Lookup(host, path string) (upstreamHost string, port uint32, err error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if snap == nil {
		return "", 0, ErrNoIngress
	}

	var chosen *types.Backend
	if snap.DefaultRoute != nil {
		b := *snap.DefaultRoute
		chosen = &b
	}

	for _, rule := range snap.Rules {
		if !hostMatches(rule.Host, host) {
			continue
		}
		for i := range rule.Paths {
			p := rule.Paths[i]
			if hasPrefix(path, p.Path) {
				b := p.Backend
				chosen = &b
			}
		}
	}

	if chosen == nil {
		return "", 0, ErrNoBackend
	}
	return fmt.Sprintf("%s.%s", chosen.Name, snap.Namespace), chosen.Port, nil
}

func hostMatches(ruleHost, requestHost string) bool {
	if ruleHost == "" || requestHost == "" {
		return true
	}
	return ruleHost == requestHost
}

func hasPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}
