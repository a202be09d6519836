package main

import (
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// newKubernetesClient builds a clientset from kubeconfig if given,
// falling back to in-cluster configuration, the same precedence order
// Contour's cmd/contour/clients.go uses.
func newKubernetesClient(kubeconfig string) (kubernetes.Interface, error) {
	config, err := newRestConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(config)
}

func newRestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	return rest.InClusterConfig()
}
