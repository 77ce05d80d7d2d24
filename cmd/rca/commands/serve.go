package commands

import (
	"context"
	"fmt"
	"net/http"

	//nolint:gosec // We are using pprof for debugging
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Chandanbam/openstack-rca-system/internal/analysis"
	"github.com/Chandanbam/openstack-rca-system/internal/api"
	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/embedding"
	"github.com/Chandanbam/openstack-rca-system/internal/lifecycle"
	"github.com/Chandanbam/openstack-rca-system/internal/llm"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/metrics"
	"github.com/Chandanbam/openstack-rca-system/internal/report"
	"github.com/Chandanbam/openstack-rca-system/internal/scoring/importance"
	"github.com/Chandanbam/openstack-rca-system/internal/scoring/lexical"
	"github.com/Chandanbam/openstack-rca-system/internal/semindex"
	"github.com/Chandanbam/openstack-rca-system/internal/tracing"
	"github.com/Chandanbam/openstack-rca-system/internal/watcher"
)

var (
	serveConfigPath       string
	apiPort               int
	logDir                string
	dataDir               string
	maxConcurrentRequests int
	watchLogs             bool
	watchConfig           bool
	pprofEnabled          bool
	pprofPort             int
	tracingEnabled        bool
	tracingEndpoint       string
	tracingTLSCAPath      string
	tracingTLSInsecure    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RCA API server",
	Long: `Start the RCA API server which loads OpenStack logs, keeps the
semantic index current, and serves analysis requests over HTTP.`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to the YAML config file (optional, defaults apply without one)")
	serveCmd.Flags().IntVar(&apiPort, "api-port", 8080, "Port the API server listens on")
	serveCmd.Flags().StringVar(&logDir, "log-dir", "./logs", "Directory containing OpenStack log files")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for the index snapshot and other state")
	serveCmd.Flags().IntVar(&maxConcurrentRequests, "max-concurrent-requests", 16, "Maximum number of concurrent analysis requests")
	serveCmd.Flags().BoolVar(&watchLogs, "watch-logs", true, "Reload the corpus when files in the log directory change")
	serveCmd.Flags().BoolVar(&watchConfig, "watch-config", true, "Hot-reload tunables when the config file changes (requires --config)")
	serveCmd.Flags().BoolVar(&pprofEnabled, "pprof-enabled", false, "Enable pprof profiling server (default: false)")
	serveCmd.Flags().IntVar(&pprofPort, "pprof-port", 9999, "Port the pprof server listens on (default: 9999)")
	serveCmd.Flags().BoolVar(&tracingEnabled, "tracing-enabled", false, "Enable OpenTelemetry tracing (default: false)")
	serveCmd.Flags().StringVar(&tracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint for traces (e.g., otel-collector:4317)")
	serveCmd.Flags().StringVar(&tracingTLSCAPath, "tracing-tls-ca", "", "Path to CA certificate for TLS verification (optional)")
	serveCmd.Flags().BoolVar(&tracingTLSInsecure, "tracing-tls-insecure", false, "Skip TLS certificate verification (insecure, use only for testing)")
}

func runServe(cmd *cobra.Command, args []string) {
	// Load configuration, then let explicitly set flags override the file
	cfg, err := config.LoadOrDefault(serveConfigPath)
	if err != nil {
		HandleError(err, "Configuration error")
	}
	flags := cmd.Flags()
	if flags.Changed("api-port") {
		cfg.APIPort = apiPort
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = logDir
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("max-concurrent-requests") {
		cfg.MaxConcurrentRequests = maxConcurrentRequests
	}
	if flags.Changed("tracing-enabled") {
		cfg.TracingEnabled = tracingEnabled
	}
	if flags.Changed("tracing-endpoint") {
		cfg.TracingEndpoint = tracingEndpoint
	}
	if err := cfg.Validate(); err != nil {
		HandleError(err, "Configuration error")
	}

	// Setup logging
	if err := setupLog(logLevelFlags, cfg); err != nil {
		HandleError(err, "Failed to setup logging")
	}
	logger := logging.GetLogger("serve")

	logger.Info("Starting OpenStack RCA server v%s", Version)
	logger.Debug("Configuration loaded: APIPort=%d LogDir=%s", cfg.APIPort, cfg.LogDir)

	manager := lifecycle.NewManager()

	// Initialize tracing provider
	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:        cfg.TracingEnabled,
		Endpoint:       cfg.TracingEndpoint,
		ServiceVersion: Version,
		TLSCAPath:      tracingTLSCAPath,
		TLSInsecure:    tracingTLSInsecure,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracing (continuing without tracing): %v", err)
		tracingProvider = nil
	}
	if tracingProvider != nil {
		if err := manager.Register(tracingProvider); err != nil {
			HandleError(err, "Tracing registration error")
		}
	}

	// Start pprof server if enabled
	if pprofEnabled {
		go func() {
			pprofAddr := fmt.Sprintf(":%d", pprofPort)
			logger.Info("Starting pprof server on %s", pprofAddr)
			if err := http.ListenAndServe(pprofAddr, nil); err != nil { //nolint:gosec // We are using pprof for debugging
				logger.Error("pprof server failed: %v", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, "server")

	// Scoring signals. The importance classifier is optional: a missing or
	// broken model degrades the signal, not the server.
	deps := analysis.Deps{Lexical: lexical.NewScorer()}
	if imp, err := importance.New(cfg.Importance); err != nil {
		logger.Warn("Importance classifier unavailable, continuing without it: %v", err)
	} else {
		deps.Importance = imp
	}

	embedClient := embedding.NewClient(cfg.Embedding, time.Duration(cfg.Timeouts.EmbeddingMS)*time.Millisecond)
	cache, err := embedding.NewCacheStore(cfg.Embedding.CacheSize, cfg.Embedding.Model)
	if err != nil {
		HandleError(err, "Embedding cache error")
	}
	semIndex := semindex.New(embedClient, cache, semindex.Options{
		SnapshotPath:   cfg.IndexSnapshotPath(),
		BatchSize:      cfg.Embedding.BatchSize,
		MaxConcurrency: cfg.Embedding.MaxConcurrency,
	})
	if err := semIndex.LoadSnapshot(); err != nil {
		logger.Warn("Failed to load index snapshot, starting with an empty index: %v", err)
	} else if semIndex.Ready() {
		logger.Info("Semantic index restored from snapshot: %d vectors", semIndex.Size())
	}
	deps.Semantic = semIndex

	provider, err := llm.New(context.Background(), cfg.LLM)
	if err != nil {
		HandleError(err, "LLM provider error")
	}
	composer := report.NewComposer(provider, cfg.Scoring, cfg.Timeouts).WithMetrics(m)
	deps.Composer = composer

	engine := analysis.NewEngine(deps, cfg).WithMetrics(m)
	if tracingProvider != nil {
		engine = engine.WithTracer(tracingProvider.GetTracer("analysis"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Corpus store and the log directory watcher that keeps it current
	store := corpus.NewStore(cfg.LogDir)
	if watchLogs {
		logWatcher := watcher.New(store, engine, watcher.Options{})
		if err := manager.Register(logWatcher); err != nil {
			HandleError(err, "Log watcher registration error")
		}
	} else {
		logger.Info("Log watching disabled, loading the corpus once at startup")
		if _, err := store.Reload(ctx); err != nil {
			logger.Warn("Initial corpus load failed, starting with an empty corpus: %v", err)
		} else {
			go func() {
				rctx, rcancel := context.WithTimeout(ctx, 5*time.Minute)
				defer rcancel()
				if err := engine.RefreshIndex(rctx, store.Snapshot()); err != nil {
					logger.Warn("Semantic index warmup failed: %v", err)
				}
			}()
		}
	}

	apiServer := api.NewServer(engine, store, api.Options{
		Port:                  cfg.APIPort,
		DefaultWindowMinutes:  cfg.Window.DefaultMinutes,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		Gatherer:              registry,
	})
	if err := manager.Register(apiServer); err != nil {
		HandleError(err, "API server registration error")
	}

	// Hot-reload tunables on config file changes. The watcher validates
	// each reload; a broken file keeps the previous tunables in effect.
	var cfgWatcher *config.Watcher
	if watchConfig && serveConfigPath != "" {
		cfgWatcher, err = config.NewWatcher(config.WatcherOptions{FilePath: serveConfigPath}, func(next *config.Config) error {
			engine.UpdateTunables(next.Scoring, next.Timeouts, next.Index.TopK)
			composer.UpdateTunables(next.Scoring, next.Timeouts)
			return nil
		})
		if err != nil {
			HandleError(err, "Config watcher error")
		}
	}

	logger.Info("All components registered")
	if err := manager.Start(ctx); err != nil {
		HandleError(err, "Startup error")
	}

	if cfgWatcher != nil {
		if err := cfgWatcher.Start(ctx); err != nil {
			logger.Warn("Config watcher failed to start, tunables are fixed for this run: %v", err)
			cfgWatcher = nil
		}
	}

	logger.Info("Application started successfully")
	logger.Info("Serving analysis requests on port %d", cfg.APIPort)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received, gracefully shutting down...")
	cancel()

	if cfgWatcher != nil {
		cfgWatcher.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown: %v", err)
	}

	logger.Info("Shutdown complete")
}
