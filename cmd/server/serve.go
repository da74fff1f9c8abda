package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"agency-sync-server/internal/cache"
	"agency-sync-server/internal/handler"
	"agency-sync-server/internal/logger"
	"agency-sync-server/internal/metrics"
	"agency-sync-server/internal/service"
	"agency-sync-server/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.For("main")

	if cfg.WindowsDiverge() {
		log.Warnw("cache TTL and rollup throttle window differ",
			"cache_ttl", cfg.Cache.TTL, "throttle_window", cfg.Sync.ThrottleWindow)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	tree, err := openTree(ctx, cfg.Remote, log)
	if err != nil {
		return err
	}
	docStore := newStore(tree, cfg, m)
	defer docStore.Close()

	backend, closeBackend, err := openCacheBackend(cfg.Cache)
	if err != nil {
		return err
	}
	defer closeBackend()

	wsManager := websocket.NewManager(
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
		cfg.WebSocket.MaxMessageSize,
		logger.For("websocket"),
		m,
	)
	go wsManager.Run(ctx)

	docCache := cache.New(backend, docStore,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(logger.For("cache")),
		cache.WithMetrics(m),
	)
	defer docCache.AttachTo(docStore)()
	defer handler.BroadcastDocumentUpdates(docStore, wsManager)()

	syncService := service.NewSyncService(docStore,
		service.WithWindow(cfg.Sync.ThrottleWindow),
		service.WithLogger(logger.For("sync")),
		service.WithMetrics(m),
		service.WithOnPersist(handler.BroadcastRollup(wsManager)),
	)
	matchService := service.NewMatchService(docStore)

	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(syncService, docCache))

	r := handler.NewRouter(handler.Handlers{
		Document:    handler.NewDocumentHandler(docStore),
		Collections: handler.NewCollectionHandler(docCache, docStore),
		Sync:        handler.NewSyncHandler(syncService),
		Match:       handler.NewMatchHandler(matchService),
		Health:      handler.NewHealthHandler(docStore),
		WebSocket: handler.NewWebSocketHandler(wsManager,
			cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, logger.For("websocket")),
	}, cfg.CORS, logger.For("http"), promhttp.Handler())

	// The server answers /health with "starting" until the first document
	// arrives.
	go func() {
		if err := docStore.Initialize(ctx); err != nil {
			log.Warnw("store initialization interrupted", "error", err)
			return
		}
		log.Infow("document ready", "revision", docStore.Revision(), "degraded", docStore.Degraded())
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("starting agency sync server", "addr", addr, "env", cfg.Server.Env, "remote", cfg.Remote.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Infow("server stopped gracefully")
	return nil
}
