package ingress

import (
	"time"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"

	"github.com/aetherproxy/aether-ingress/pkg/log"
	"github.com/aetherproxy/aether-ingress/pkg/metrics"
	"github.com/aetherproxy/aether-ingress/pkg/types"
)

// resyncPeriod controls how often the informer replays its local cache
// through the event handlers even without a control-plane change; this
// is also what bounds how quickly a missed watch event self-heals.
const resyncPeriod = 30 * time.Minute

// IngressWatcher is C3: it consumes Ingress add/modify/delete events from
// the cluster, applies the ingress-class filter, and publishes accepted
// objects to a Store.
type IngressWatcher struct {
	store    *Store
	class    string
	informer cache.SharedIndexInformer
}

// NewIngressWatcher builds a watcher over networking.k8s.io/v1 Ingress
// objects in every namespace, filtered to ingressClass, publishing
// accepted snapshots to store.
func NewIngressWatcher(client kubernetes.Interface, store *Store, ingressClass string) *IngressWatcher {
	lw := cache.NewListWatchFromClient(
		client.NetworkingV1().RESTClient(),
		"ingresses",
		metav1.NamespaceAll,
		fields.Everything(),
	)

	w := &IngressWatcher{
		store:    store,
		class:    ingressClass,
		informer: cache.NewSharedIndexInformer(lw, &networkingv1.Ingress{}, resyncPeriod, cache.Indexers{}),
	}

	w.informer.AddEventHandler(cache.ResourceEventHandlerFuncs{
		AddFunc:    w.onAddOrUpdate,
		UpdateFunc: func(_, newObj interface{}) { w.onAddOrUpdate(newObj) },
		DeleteFunc: w.onDelete,
	})

	return w
}

// Run blocks serving the informer until stop is closed. It is meant to
// be registered with a lifecycle.Group via Add.
func (w *IngressWatcher) Run(stop <-chan struct{}) error {
	log.Info("ingress watcher started")
	defer log.Info("ingress watcher stopped")
	w.informer.Run(stop)
	return nil
}

// HasSynced reports whether the initial list has completed, i.e. the
// watcher has replayed at least once.
func (w *IngressWatcher) HasSynced() bool {
	return w.informer.HasSynced()
}

func (w *IngressWatcher) onAddOrUpdate(obj interface{}) {
	ing, ok := obj.(*networkingv1.Ingress)
	if !ok {
		return
	}

	class := ing.Annotations[IngressClassAnnotation]
	if class != w.class {
		log.Debug("ignoring ingress with non-matching class")
		return
	}

	snapshot, err := ParseRoutingSnapshot(ing)
	if err != nil {
		metrics.WatchErrorsTotal.WithLabelValues("ingress").Inc()
		log.WithComponent("ingress-watcher").Warn().
			Err(err).
			Str("namespace", ing.Namespace).
			Str("name", ing.Name).
			Msg("dropping ingress: failed to parse")
		return
	}

	w.store.Replace(snapshot)
	metrics.RoutesTotal.Set(float64(countPaths(snapshot)))
	log.WithComponent("ingress-watcher").Info().
		Str("namespace", ing.Namespace).
		Str("name", ing.Name).
		Int("rules", len(snapshot.Rules)).
		Msg("installed routing snapshot")
}

func countPaths(snap *types.RoutingSnapshot) int {
	n := 0
	if snap.DefaultRoute != nil {
		n++
	}
	for _, rule := range snap.Rules {
		n += len(rule.Paths)
	}
	return n
}

func (w *IngressWatcher) onDelete(obj interface{}) {
	ing, ok := obj.(*networkingv1.Ingress)
	if !ok {
		if tomb, ok := obj.(cache.DeletedFinalStateUnknown); ok {
			ing, ok = tomb.Obj.(*networkingv1.Ingress)
			if !ok {
				return
			}
		} else {
			return
		}
	}

	class := ing.Annotations[IngressClassAnnotation]
	if class != w.class {
		return
	}

	w.store.Clear()
	metrics.RoutesTotal.Set(0)
	log.WithComponent("ingress-watcher").Info().
		Str("namespace", ing.Namespace).
		Str("name", ing.Name).
		Msg("cleared routing snapshot")
}
