package ingress

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"

	"github.com/aetherproxy/aether-ingress/pkg/log"
	"github.com/aetherproxy/aether-ingress/pkg/metrics"
)

// SecretWatcher is C4: it consumes Secret add/modify/delete events,
// filters to kubernetes.io/tls secrets carrying the hosts annotation,
// and keeps a CertStore's host bindings in sync.
type SecretWatcher struct {
	certs      *CertStore
	annotation string
	informer   cache.SharedIndexInformer
}

// NewSecretWatcher builds a watcher over v1 Secret objects in every
// namespace, publishing parsed certificate material to certs. hostsAnnotation
// names the annotation key carrying the comma-separated SNI host list;
// pass HostsAnnotation for the default.
func NewSecretWatcher(client kubernetes.Interface, certs *CertStore, hostsAnnotation string) *SecretWatcher {
	lw := cache.NewListWatchFromClient(
		client.CoreV1().RESTClient(),
		"secrets",
		metav1.NamespaceAll,
		fields.Everything(),
	)

	w := &SecretWatcher{
		certs:      certs,
		annotation: hostsAnnotation,
		informer:   cache.NewSharedIndexInformer(lw, &corev1.Secret{}, resyncPeriod, cache.Indexers{}),
	}

	w.informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc:    w.onAddOrUpdate,
		UpdateFunc: func(_, newObj interface{}) { w.onAddOrUpdate(newObj) },
		DeleteFunc: w.onDelete,
	})

	return w
}

// Run blocks serving the informer until stop is closed.
func (w *SecretWatcher) Run(stop <-chan struct{}) error {
	log.Info("secret watcher started")
	defer log.Info("secret watcher stopped")
	w.informer.Run(stop)
	return nil
}

// HasSynced reports whether the initial list has completed.
func (w *SecretWatcher) HasSynced() bool {
	return w.informer.HasSynced()
}

func (w *SecretWatcher) onAddOrUpdate(obj interface{}) {
	secret, ok := obj.(*corev1.Secret)
	if !ok {
		return
	}
	if secret.Type != corev1.SecretTypeTLS {
		return
	}

	raw, ok := secret.Annotations[w.annotation]
	if !ok {
		log.Debug("tls secret has no hosts annotation, ignoring")
		return
	}
	hosts := SplitHosts(raw)
	if len(hosts) == 0 {
		return
	}

	entry, err := ParseCertificateEntry(secret)
	if err != nil {
		metrics.WatchErrorsTotal.WithLabelValues("secret").Inc()
		log.WithComponent("secret-watcher").Warn().
			Err(err).
			Str("namespace", secret.Namespace).
			Str("name", secret.Name).
			Msg("dropping tls secret: failed to parse")
		return
	}

	for _, host := range hosts {
		w.certs.Put(host, entry)
	}
	metrics.CertificatesTotal.Set(float64(w.certs.Len()))
	log.WithComponent("secret-watcher").Info().
		Str("namespace", secret.Namespace).
		Str("name", secret.Name).
		Strs("hosts", hosts).
		Msg("installed certificate bindings")
}

func (w *SecretWatcher) onDelete(obj interface{}) {
	secret, ok := obj.(*corev1.Secret)
	if !ok {
		if tomb, ok := obj.(cache.DeletedFinalStateUnknown); ok {
			secret, ok = tomb.Obj.(*corev1.Secret)
			if !ok {
				return
			}
		} else {
			return
		}
	}

	raw, ok := secret.Annotations[w.annotation]
	if !ok {
		return
	}
	hosts := SplitHosts(raw)
	for _, host := range hosts {
		w.certs.Remove(host)
	}
	metrics.CertificatesTotal.Set(float64(w.certs.Len()))
	log.WithComponent("secret-watcher").Info().
		Str("namespace", secret.Namespace).
		Str("name", secret.Name).
		Strs("hosts", hosts).
		Msg("removed certificate bindings")
}
