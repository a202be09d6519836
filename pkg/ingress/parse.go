package ingress

import (
	"errors"
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"

	"github.com/aetherproxy/aether-ingress/pkg/types"
)

// Named parse-error kinds, returned wrapped with context via fmt.Errorf.
// Checked with errors.Is against these sentinels.
var (
	ErrMissingNamespace = errors.New("ingress: metadata.namespace is required")
	ErrMissingSpec      = errors.New("ingress: spec is required")
	ErrMissingHTTPRule  = errors.New("ingress: rule is missing an http block")
	ErrMissingPath      = errors.New("ingress: path is missing its path string")
	ErrNoBackendService = errors.New("ingress: path backend is missing a service")
	ErrNoServicePort    = errors.New("ingress: backend service is missing port.number")
)

// IngressClassAnnotation is the annotation key used to filter ingresses
// belonging to other controllers.
const IngressClassAnnotation = "kubernetes.io/ingress.class"

// ParseRoutingSnapshot converts a Kubernetes Ingress object into a
// RoutingSnapshot. Rule and path order from the source object is
// preserved. The object's own ingress-class annotation is not checked
// here — that filtering happens in the watcher before Parse is called.
func ParseRoutingSnapshot(obj *networkingv1.Ingress) (*types.RoutingSnapshot, error) {
	if obj.Namespace == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingNamespace, obj.Name)
	}

	snap := &types.RoutingSnapshot{Namespace: obj.Namespace}

	if obj.Spec.DefaultBackend != nil {
		backend, err := parseBackend(obj.Spec.DefaultBackend)
		if err != nil {
			return nil, fmt.Errorf("ingress %s/%s: default backend: %w", obj.Namespace, obj.Name, err)
		}
		snap.DefaultRoute = &backend
	}

	if len(obj.Spec.Rules) == 0 && snap.DefaultRoute == nil {
		return nil, fmt.Errorf("%w: ingress %s/%s has no rules and no default backend", ErrMissingSpec, obj.Namespace, obj.Name)
	}

	for _, r := range obj.Spec.Rules {
		if r.HTTP == nil {
			return nil, fmt.Errorf("%w: ingress %s/%s, host %q", ErrMissingHTTPRule, obj.Namespace, obj.Name, r.Host)
		}

		rule := types.Rule{Host: r.Host}
		for _, p := range r.HTTP.Paths {
			if p.Path == "" {
				return nil, fmt.Errorf("%w: ingress %s/%s, host %q", ErrMissingPath, obj.Namespace, obj.Name, r.Host)
			}
			backend, err := parseBackend(&p.Backend)
			if err != nil {
				return nil, fmt.Errorf("ingress %s/%s: path %q: %w", obj.Namespace, obj.Name, p.Path, err)
			}
			rule.Paths = append(rule.Paths, types.Path{Path: p.Path, Backend: backend})
		}
		snap.Rules = append(snap.Rules, rule)
	}

	return snap, nil
}

func parseBackend(b *networkingv1.IngressBackend) (types.Backend, error) {
	if b.Service == nil {
		return types.Backend{}, ErrNoBackendService
	}
	if b.Service.Port.Number == 0 {
		return types.Backend{}, fmt.Errorf("%w: service %q", ErrNoServicePort, b.Service.Name)
	}
	return types.Backend{
		Name: b.Service.Name,
		Port: uint32(b.Service.Port.Number),
	}, nil
}
