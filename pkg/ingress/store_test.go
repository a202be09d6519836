package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aetherproxy/aether-ingress/pkg/types"
)

func TestStoreLookup_NoSnapshot(t *testing.T) {
	s := NewStore()

	_, _, err := s.Lookup("example.com", "/")
	assert.ErrorIs(t, err, ErrNoIngress)
}

func TestStoreLookup_LastPrefixWithinRuleWins(t *testing.T) {
	s := NewStore()
	s.Replace(&types.RoutingSnapshot{
		Namespace: "default",
		Rules: []types.Rule{
			{
				Host: "example.com",
				Paths: []types.Path{
					{Path: "/", Backend: types.Backend{Name: "root-svc", Port: 80}},
					{Path: "/api", Backend: types.Backend{Name: "api-svc", Port: 8080}},
				},
			},
		},
	})

	tests := []struct {
		name     string
		path     string
		wantHost string
		wantPort uint32
	}{
		{name: "matches the later path in the rule", path: "/api/v1/things", wantHost: "api-svc.default", wantPort: 8080},
		{name: "falls back to the catch-all path", path: "/about", wantHost: "root-svc.default", wantPort: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := s.Lookup("example.com", tt.path)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestStoreLookup_HostMismatchFallsBackToDefault(t *testing.T) {
	s := NewStore()
	s.Replace(&types.RoutingSnapshot{
		Namespace:    "default",
		DefaultRoute: &types.Backend{Name: "fallback", Port: 80},
		Rules: []types.Rule{
			{Host: "other.example.com", Paths: []types.Path{{Path: "/", Backend: types.Backend{Name: "other-svc", Port: 80}}}},
		},
	})

	host, port, err := s.Lookup("example.com", "/")
	assert.NoError(t, err)
	assert.Equal(t, "fallback.default", host)
	assert.Equal(t, uint32(80), port)
}

func TestStoreLookup_NoMatchAndNoDefault(t *testing.T) {
	s := NewStore()
	s.Replace(&types.RoutingSnapshot{
		Namespace: "default",
		Rules: []types.Rule{
			{Host: "other.example.com", Paths: []types.Path{{Path: "/", Backend: types.Backend{Name: "other-svc", Port: 80}}}},
		},
	})

	_, _, err := s.Lookup("example.com", "/")
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.Replace(&types.RoutingSnapshot{
		Namespace:    "default",
		DefaultRoute: &types.Backend{Name: "svc", Port: 80},
	})
	s.Clear()

	_, _, err := s.Lookup("example.com", "/")
	assert.ErrorIs(t, err, ErrNoIngress)
}

func TestStoreLookup_EmptyRuleHostMatchesAnyRequestHost(t *testing.T) {
	s := NewStore()
	s.Replace(&types.RoutingSnapshot{
		Namespace: "default",
		Rules: []types.Rule{
			{Host: "", Paths: []types.Path{{Path: "/", Backend: types.Backend{Name: "wildcard-svc", Port: 80}}}},
		},
	})

	host, port, err := s.Lookup("anything.example.com", "/")
	assert.NoError(t, err)
	assert.Equal(t, "wildcard-svc.default", host)
	assert.Equal(t, uint32(80), port)
}
