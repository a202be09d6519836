package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func newTestIngress(namespace, name, class string) *networkingv1.Ingress {
	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Namespace:   namespace,
			Name:        name,
			Annotations: map[string]string{IngressClassAnnotation: class},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					Host: "example.com",
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{{Path: "/", Backend: serviceBackend("web", 80)}},
						},
					},
				},
			},
		},
	}
}

func TestIngressWatcher_AcceptsMatchingClass(t *testing.T) {
	store := NewStore()
	w := NewIngressWatcher(fake.NewSimpleClientset(), store, "aether")

	w.onAddOrUpdate(newTestIngress("web", "site", "aether"))

	_, _, err := store.Lookup("example.com", "/")
	assert.NoError(t, err)
}

func TestIngressWatcher_IgnoresOtherClass(t *testing.T) {
	store := NewStore()
	w := NewIngressWatcher(fake.NewSimpleClientset(), store, "aether")

	w.onAddOrUpdate(newTestIngress("web", "site", "nginx"))

	_, _, err := store.Lookup("example.com", "/")
	assert.ErrorIs(t, err, ErrNoIngress)
}

func TestIngressWatcher_DeleteClearsStore(t *testing.T) {
	store := NewStore()
	w := NewIngressWatcher(fake.NewSimpleClientset(), store, "aether")

	ing := newTestIngress("web", "site", "aether")
	w.onAddOrUpdate(ing)
	w.onDelete(ing)

	_, _, err := store.Lookup("example.com", "/")
	assert.ErrorIs(t, err, ErrNoIngress)
}
