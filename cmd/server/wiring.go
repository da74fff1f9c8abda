package main

import (
	"context"
	"fmt"

	"agency-sync-server/internal/cache"
	"agency-sync-server/internal/config"
	"agency-sync-server/internal/logger"
	"agency-sync-server/internal/metrics"
	"agency-sync-server/internal/remote"
	"agency-sync-server/internal/store"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"go.uber.org/zap"
)

// openTree connects to the configured remote backend and creates the
// CouchDB database on first use.
func openTree(ctx context.Context, cfg config.RemoteConfig, log *zap.SugaredLogger) (remote.Tree, error) {
	if cfg.Backend == "memory" {
		log.Warnw("using in-process remote tree; data is lost on exit")
		return remote.NewMemoryTree(), nil
	}

	client, err := kivik.New("couch", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("connect to CouchDB: %w", err)
	}

	exists, err := client.DBExists(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("check database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Name); err != nil {
			return nil, fmt.Errorf("create database: %w", err)
		}
		log.Infow("created database", "name", cfg.Name)
	}

	return remote.NewCouchTree(client, cfg.Name, cfg.DocID, logger.For("remote")), nil
}

func openCacheBackend(cfg config.CacheConfig) (cache.Backend, func(), error) {
	if cfg.Backend == "redis" {
		backend, err := cache.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	}
	return cache.NewMemoryBackend(), func() {}, nil
}

// openStore builds the sync store and waits for its first document.
func openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*store.Store, error) {
	tree, err := openTree(ctx, cfg.Remote, logger.For("main"))
	if err != nil {
		return nil, err
	}

	s := newStore(tree, cfg, m)
	if err := s.Initialize(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newStore(tree remote.Tree, cfg *config.Config, m *metrics.Metrics) *store.Store {
	return store.New(tree,
		store.WithLogger(logger.For("store")),
		store.WithMetrics(m),
		store.WithWriteMode(store.WriteMode(cfg.Remote.WriteMode)),
		store.WithInitTimeout(cfg.Remote.InitTimeout),
	)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}
