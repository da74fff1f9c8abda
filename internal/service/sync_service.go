package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultThrottleWindow = 5 * time.Minute

// Store is the slice of the sync store the rollup needs.
type Store interface {
	Snapshot() *domain.Document
	Save(ctx context.Context, doc *domain.Document) error
}

// SyncService recomputes the dashboard rollup and persists it inside the
// document, at most once per throttle window unless forced.
type SyncService struct {
	store     Store
	window    time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics
	onPersist func(*domain.Rollup)

	group singleflight.Group
	// syncMu makes check, recompute and save one unit for forced and
	// unforced callers alike.
	syncMu sync.Mutex

	goodMu   sync.RWMutex
	lastGood *domain.Rollup
}

type SyncOption func(*SyncService)

func WithWindow(window time.Duration) SyncOption {
	return func(s *SyncService) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithClock(now func() time.Time) SyncOption {
	return func(s *SyncService) { s.now = now }
}

func WithLogger(log *zap.SugaredLogger) SyncOption {
	return func(s *SyncService) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) SyncOption {
	return func(s *SyncService) { s.metrics = m }
}

// WithOnPersist registers fn to run after every persisted rollup.
func WithOnPersist(fn func(*domain.Rollup)) SyncOption {
	return func(s *SyncService) { s.onPersist = fn }
}

func NewSyncService(store Store, opts ...SyncOption) *SyncService {
	s := &SyncService{
		store:  store,
		window: DefaultThrottleWindow,
		now:    time.Now,
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SyncService) Window() time.Duration {
	return s.window
}

// Fresh reports whether doc carries a rollup computed less than window
// before now. A lastSync in the future is treated as stale.
func Fresh(doc *domain.Document, now time.Time, window time.Duration) bool {
	if doc == nil || doc.SyncMetadata == nil || doc.SyncMetadata.Data == nil {
		return false
	}
	if doc.SyncMetadata.LastSync <= 0 {
		return false
	}
	elapsed := now.Sub(time.UnixMilli(doc.SyncMetadata.LastSync))
	return elapsed >= 0 && elapsed < window
}

// SyncAllData returns the current rollup. Without force, a rollup persisted
// within the window is returned as is. Concurrent unforced callers share a
// single pass.
func (s *SyncService) SyncAllData(ctx context.Context, force bool) (*domain.Rollup, error) {
	if force {
		return s.sync(ctx, true)
	}

	type result struct {
		rollup *domain.Rollup
		err    error
	}
	v, _, _ := s.group.Do("sync", func() (any, error) {
		rollup, err := s.sync(ctx, false)
		return result{rollup, err}, nil
	})
	r := v.(result)
	return r.rollup, r.err
}

func (s *SyncService) sync(ctx context.Context, force bool) (*domain.Rollup, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	doc := s.store.Snapshot()
	if doc == nil {
		return s.lastKnownGood(nil), domain.ErrNotInitialized
	}

	now := s.now()
	if !force && Fresh(doc, now, s.window) {
		s.metrics.Aggregation(metrics.AggregationThrottled, 0)
		return doc.SyncMetadata.Data, nil
	}

	started := time.Now()
	rollup, err := ComputeRollup(doc, now)
	if err != nil {
		s.metrics.Aggregation(metrics.AggregationFailed, 0)
		s.log.Errorw("rollup failed, serving last known good", "error", err)
		return s.lastKnownGood(doc), err
	}
	s.metrics.Aggregation(metrics.AggregationRecomputed, time.Since(started))

	next := doc.Clone()
	version := 1
	if doc.SyncMetadata != nil {
		version = doc.SyncMetadata.Version + 1
	}
	next.SyncMetadata = &domain.SyncMetadata{
		LastSync: now.UnixMilli(),
		Data:     rollup,
		Version:  version,
	}

	if err := s.store.Save(ctx, next); err != nil {
		s.log.Errorw("persist rollup failed", "error", err)
		var writeErr *domain.WriteError
		if !errors.As(err, &writeErr) {
			err = &domain.WriteError{Err: err}
		}
		return rollup, err
	}

	s.goodMu.Lock()
	s.lastGood = rollup
	s.goodMu.Unlock()

	s.log.Infow("rollup persisted", "version", version, "forced", force)
	if s.onPersist != nil {
		s.onPersist(rollup)
	}
	return rollup, nil
}

func (s *SyncService) lastKnownGood(doc *domain.Document) *domain.Rollup {
	s.goodMu.RLock()
	good := s.lastGood
	s.goodMu.RUnlock()
	if good != nil {
		return good
	}
	if doc != nil && doc.SyncMetadata != nil && doc.SyncMetadata.Data != nil {
		return doc.SyncMetadata.Data
	}
	return domain.ZeroRollup()
}

// Current returns the persisted rollup without recomputing.
func (s *SyncService) Current() *domain.Rollup {
	return s.lastKnownGood(s.store.Snapshot())
}
