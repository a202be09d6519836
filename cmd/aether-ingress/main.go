package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aetherproxy/aether-ingress/pkg/ingress"
	"github.com/aetherproxy/aether-ingress/pkg/lifecycle"
	"github.com/aetherproxy/aether-ingress/pkg/log"
	"github.com/aetherproxy/aether-ingress/pkg/metrics"
)

var (
	// Version information, set via ldflags during build.
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "aether-ingress",
	Short:   "A TLS-terminating HTTP reverse proxy driven by a Kubernetes Ingress/Secret control plane",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"aether-ingress version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingress proxy",
	Long: `Serve watches Ingress and Secret objects in a Kubernetes cluster,
terminates TLS using the certificates those Secrets carry, and forwards
matching requests to the backend named by the Ingress.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen-addr", ":8443", "Address the TLS listener binds")
	serveCmd.Flags().String("metrics-addr", ":9090", "Address the Prometheus metrics server binds")
	serveCmd.Flags().String("health-addr", ":8081", "Address the health/readiness server binds")
	serveCmd.Flags().String("kubeconfig", "", "Path to a kubeconfig file; defaults to in-cluster configuration")
	serveCmd.Flags().String("ingress-class", "aether", "Only Ingress objects annotated with this class are served")
	serveCmd.Flags().String("hosts-annotation", ingress.HostsAnnotation, "Secret annotation carrying the comma-separated SNI host list")
	serveCmd.Flags().Float64("rate-limit-rps", 0, "Per-client requests/second; 0 disables the limiter")
	serveCmd.Flags().Int("rate-limit-burst", 20, "Per-client token bucket burst size")
}

func runServe(cmd *cobra.Command, _ []string) error {
	listenAddr, _ := cmd.Flags().GetString("listen-addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	healthAddr, _ := cmd.Flags().GetString("health-addr")
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	ingressClass, _ := cmd.Flags().GetString("ingress-class")
	hostsAnnotation, _ := cmd.Flags().GetString("hosts-annotation")
	rateLimitRPS, _ := cmd.Flags().GetFloat64("rate-limit-rps")
	rateLimitBurst, _ := cmd.Flags().GetInt("rate-limit-burst")

	client, err := newKubernetesClient(kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to build kubernetes client: %w", err)
	}

	store := ingress.NewStore()
	certs := ingress.NewCertStore()

	ingressWatcher := ingress.NewIngressWatcher(client, store, ingressClass)
	secretWatcher := ingress.NewSecretWatcher(client, certs, hostsAnnotation)

	var rateLimit *ingress.RateLimit
	if rateLimitRPS > 0 {
		rateLimit = &ingress.RateLimit{RequestsPerSecond: rateLimitRPS, Burst: rateLimitBurst}
	}
	dispatcher := ingress.NewDispatcher(store, rateLimit)
	resolver := ingress.NewCertificateResolver(certs)
	proxy := ingress.NewProxy(listenAddr, dispatcher, resolver)

	var group lifecycle.Group
	group.Add("ingress-watcher", ingressWatcher.Run)
	group.Add("secret-watcher", secretWatcher.Run)
	group.AddContext("acceptor", proxy.Start)
	group.Add("metrics", runHTTPServer("metrics", metricsAddr, metrics.Handler()))
	group.Add("health", runHTTPServer("health", healthAddr, healthMux()))
	group.AddContext("signal", waitForSignal)

	metrics.RegisterComponent("ingress-watcher", false, "waiting for initial sync")
	metrics.RegisterComponent("secret-watcher", false, "waiting for initial sync")
	metrics.RegisterComponent("acceptor", true, "")
	go watchSyncStatus(ingressWatcher, secretWatcher)

	log.Info(fmt.Sprintf("aether-ingress %s starting, listen=%s metrics=%s health=%s class=%s", Version, listenAddr, metricsAddr, healthAddr, ingressClass))
	return group.Run()
}

// watchSyncStatus polls HasSynced and marks each watcher's health
// component ready once that watcher has completed its initial list.
func watchSyncStatus(iw *ingress.IngressWatcher, sw *ingress.SecretWatcher) {
	for {
		if iw.HasSynced() {
			metrics.UpdateComponent("ingress-watcher", true, "")
		}
		if sw.HasSynced() {
			metrics.UpdateComponent("secret-watcher", true, "")
		}
		if iw.HasSynced() && sw.HasSynced() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func healthMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	return mux
}

// runHTTPServer returns a lifecycle.Group member serving handler on addr
// until stop is closed.
func runHTTPServer(name, addr string, handler http.Handler) func(stop <-chan struct{}) error {
	return func(stop <-chan struct{}) error {
		server := &http.Server{Addr: addr, Handler: handler}

		errCh := make(chan error, 1)
		go func() { errCh <- server.ListenAndServe() }()

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				log.WithComponent(name).Error().Err(err).Msg("server exited unexpectedly")
				return err
			}
			return nil
		case <-stop:
			return server.Close()
		}
	}
}

func waitForSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		log.Info("received shutdown signal")
	case <-ctx.Done():
	}
}
