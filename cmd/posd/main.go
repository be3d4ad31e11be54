package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudpos/possync/internal/api"
	"github.com/cloudpos/possync/internal/catalog"
	"github.com/cloudpos/possync/internal/checkout"
	"github.com/cloudpos/possync/internal/config"
	"github.com/cloudpos/possync/internal/connectivity"
	"github.com/cloudpos/possync/internal/remote"
	"github.com/cloudpos/possync/internal/store"
	"github.com/cloudpos/possync/internal/sync"
	"github.com/cloudpos/possync/pkg/infra"
	"github.com/cloudpos/possync/pkg/metrics"
)

func main() {
	cfg := config.Load()
	logger := infra.SetupLogger(cfg)
	slog.SetDefault(logger)
	defer infra.CloseLogger()

	if cfg.StoreID == "" {
		logger.Error("CRITICAL: STORE_ID environment variable is missing")
		os.Exit(1)
	}

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("🔧 Initializing POS daemon...", "store_id", cfg.StoreID)

	// Backend database (remote commit endpoint + product source)
	backend, err := remote.NewPostgresBackend(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("FATAL: Failed to connect to backend database", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	// Local durable queue. Open failure degrades the session to online-only
	// operation instead of killing the daemon.
	localStore, err := store.Open(cfg.LocalStorePath, logger)
	if err != nil {
		logger.Warn("⚠️ Local store unavailable: offline checkout disabled for this session", "error", err)
		localStore = nil
	} else {
		defer localStore.Close()
	}

	monitor := connectivity.NewMonitor(logger)
	metrics.OnlineStatus.Set(1)

	var engine *sync.Engine
	if localStore != nil {
		engine = sync.NewEngine(localStore, backend, monitor, cfg.CommitTimeout, cfg.SyncContinueOnFailure, logger)
	}

	monitor.OnChange(func(online bool) {
		if online {
			metrics.OnlineStatus.Set(1)
			if engine != nil {
				go runSync(ctx, engine, logger)
			}
		} else {
			metrics.OnlineStatus.Set(0)
		}
	})

	// Leave these interfaces nil when the store is absent; assigning a nil
	// *BoltStore would make them non-nil.
	var queue checkout.Queue
	var cache catalog.Cache
	var backlog api.BacklogCounter
	if localStore != nil {
		queue = localStore
		cache = localStore
		backlog = localStore
	}

	orchestrator := checkout.NewOrchestrator(queue, backend, monitor, cfg.StoreID, cfg.TaxRate, cfg.CommitTimeout, logger)
	catalogSvc := catalog.NewService(backend, cache, monitor, logger)
	cart := checkout.NewCart()

	if localStore != nil {
		refresher := sync.NewRefresher(backend, localStore, monitor, cfg.StoreID, cfg.ProductRefreshInterval, logger)
		go refresher.Run(ctx)

		// The device starts out assumed online: replay anything left over
		// from the previous session.
		go runSync(ctx, engine, logger)
	}

	go startObservabilityServer(cfg.MetricsPort, logger)

	handler := api.NewHandler(cart, orchestrator, catalogSvc, engine, monitor, backlog, cfg.TaxRate, logger)
	router := gin.Default()
	api.InitRoutes(router, handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("🚀 POS daemon listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("FATAL: API server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("👋 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
	}

	logger.Info("✅ Shutdown complete")
}

func runSync(ctx context.Context, engine *sync.Engine, logger *slog.Logger) {
	if err := engine.Sync(ctx); err != nil && !errors.Is(err, sync.ErrSyncInProgress) {
		logger.Error("Sync drain failed", "error", err)
	}
}

func startObservabilityServer(port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("POSD ALIVE"))
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("📊 Observability server online", "url", "http://localhost:"+port+"/metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Observability server failed", "error", err)
	}
}
