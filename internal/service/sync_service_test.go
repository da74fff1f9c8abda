package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/metrics"
	"agency-sync-server/internal/seed"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu      sync.Mutex
	doc     *domain.Document
	saves   int
	saveErr error
}

func newMockStore(doc *domain.Document) *mockStore {
	return &mockStore{doc: doc}
}

func (m *mockStore) Snapshot() *domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}

func (m *mockStore) Save(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return &domain.WriteError{Err: m.saveErr}
	}
	m.doc = doc.Clone()
	m.saves++
	return nil
}

func (m *mockStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSyncService(store Store, opts ...SyncOption) (*SyncService, *clock, *metrics.Metrics) {
	clk := &clock{now: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	opts = append([]SyncOption{WithClock(clk.Now), WithMetrics(m)}, opts...)
	return NewSyncService(store, opts...), clk, m
}

func recomputations(m *metrics.Metrics) float64 {
	return testutil.ToFloat64(m.Aggregations.WithLabelValues(metrics.AggregationRecomputed))
}

func TestSyncAllData_ThrottlesWithinWindow(t *testing.T) {
	store := newMockStore(seed.Document())
	svc, clk, m := newTestSyncService(store)
	ctx := context.Background()

	first, err := svc.SyncAllData(ctx, false)
	require.NoError(t, err)

	clk.Advance(4 * time.Minute)
	second, err := svc.SyncAllData(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, float64(1), recomputations(m))
	assert.Equal(t, 1, store.saveCount())
	assert.Equal(t, first, second)
}

func TestSyncAllData_ForceAlwaysRecomputes(t *testing.T) {
	store := newMockStore(seed.Document())
	svc, _, m := newTestSyncService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.SyncAllData(ctx, true)
		require.NoError(t, err)
	}

	assert.Equal(t, float64(3), recomputations(m))
	assert.Equal(t, 3, store.Snapshot().SyncMetadata.Version)
}

func TestSyncAllData_RecomputesAfterWindow(t *testing.T) {
	store := newMockStore(seed.Document())
	svc, clk, m := newTestSyncService(store, WithWindow(time.Minute))
	ctx := context.Background()

	_, err := svc.SyncAllData(ctx, false)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.SyncAllData(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, float64(2), recomputations(m))
}

func TestSyncAllData_PersistsMetadata(t *testing.T) {
	store := newMockStore(seed.Document())
	var persisted *domain.Rollup
	svc, clk, _ := newTestSyncService(store, WithOnPersist(func(r *domain.Rollup) { persisted = r }))

	rollup, err := svc.SyncAllData(context.Background(), false)
	require.NoError(t, err)

	meta := store.Snapshot().SyncMetadata
	require.NotNil(t, meta)
	assert.Equal(t, clk.Now().UnixMilli(), meta.LastSync)
	assert.Equal(t, 1, meta.Version)
	assert.Equal(t, rollup, meta.Data)
	assert.Same(t, rollup, persisted)
	assert.Nil(t, seed.Document().SyncMetadata)
}

func TestSyncAllData_FutureLastSyncIsStale(t *testing.T) {
	doc := seed.Document()
	doc.SyncMetadata = &domain.SyncMetadata{
		LastSync: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Data:     domain.ZeroRollup(),
		Version:  4,
	}
	store := newMockStore(doc)
	svc, _, m := newTestSyncService(store)

	_, err := svc.SyncAllData(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, float64(1), recomputations(m))
	assert.Equal(t, 5, store.Snapshot().SyncMetadata.Version)
}

func TestSyncAllData_ConcurrentCallersRecomputeOnce(t *testing.T) {
	store := newMockStore(seed.Document())
	svc, _, m := newTestSyncService(store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SyncAllData(context.Background(), false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(1), recomputations(m))
	assert.Equal(t, 1, store.saveCount())
}

func TestSyncAllData_SectionFailurePersistsNothing(t *testing.T) {
	store := newMockStore(seed.Document())
	svc, clk, _ := newTestSyncService(store)
	ctx := context.Background()

	good, err := svc.SyncAllData(ctx, true)
	require.NoError(t, err)

	broken := store.Snapshot().Clone()
	broken.AccountingTransactions = append(broken.AccountingTransactions, domain.AccountingTransaction{
		ID: "bad", Type: domain.TransactionExpense, Amount: math.NaN(),
	})
	store.doc = broken
	clk.Advance(time.Hour)

	rollup, err := svc.SyncAllData(ctx, false)

	var aggErr *domain.AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, "financial", aggErr.Section)
	assert.Same(t, good, rollup)
	assert.Equal(t, 1, store.saveCount())
}

func TestSyncAllData_SectionFailureWithoutHistoryReturnsZero(t *testing.T) {
	doc := seed.Document()
	doc.AccountingTransactions[0].Amount = math.Inf(1)
	svc, _, m := newTestSyncService(newMockStore(doc))

	rollup, err := svc.SyncAllData(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, domain.ZeroRollup(), rollup)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Aggregations.WithLabelValues(metrics.AggregationFailed)))
}

func TestSyncAllData_SectionFailureFallsBackToMetadata(t *testing.T) {
	persisted := domain.ZeroRollup()
	persisted.Population.TotalModels = 42

	doc := seed.Document()
	doc.SyncMetadata = &domain.SyncMetadata{LastSync: 1, Data: persisted, Version: 1}
	doc.AccountingTransactions[0].Amount = math.NaN()
	svc, _, _ := newTestSyncService(newMockStore(doc))

	rollup, err := svc.SyncAllData(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, 42, rollup.Population.TotalModels)
}

func TestSyncAllData_SaveFailureIsReported(t *testing.T) {
	store := newMockStore(seed.Document())
	boom := errors.New("remote unreachable")
	store.saveErr = boom
	svc, _, _ := newTestSyncService(store)

	rollup, err := svc.SyncAllData(context.Background(), false)

	var writeErr *domain.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, rollup)
	assert.Equal(t, 3, rollup.Population.TotalModels)
	assert.Nil(t, store.Snapshot().SyncMetadata)
	assert.Equal(t, domain.ZeroRollup(), svc.Current())
}

func TestSyncAllData_NotInitialized(t *testing.T) {
	svc, _, _ := newTestSyncService(newMockStore(nil))

	rollup, err := svc.SyncAllData(context.Background(), false)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.NotNil(t, rollup)
}

func TestFresh(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	withSync := func(lastSync time.Time, data *domain.Rollup) *domain.Document {
		return &domain.Document{SyncMetadata: &domain.SyncMetadata{LastSync: lastSync.UnixMilli(), Data: data}}
	}

	tests := []struct {
		name string
		doc  *domain.Document
		want bool
	}{
		{"nil document", nil, false},
		{"no metadata", &domain.Document{}, false},
		{"no data", withSync(now.Add(-time.Minute), nil), false},
		{"zero lastSync", &domain.Document{SyncMetadata: &domain.SyncMetadata{Data: domain.ZeroRollup()}}, false},
		{"within window", withSync(now.Add(-time.Minute), domain.ZeroRollup()), true},
		{"at window", withSync(now.Add(-5*time.Minute), domain.ZeroRollup()), false},
		{"in the future", withSync(now.Add(time.Minute), domain.ZeroRollup()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fresh(tt.doc, now, DefaultThrottleWindow))
		})
	}
}
