package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/remote"
	"agency-sync-server/internal/seed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInitializedStore(t *testing.T, tree remote.Tree, opts ...Option) *Store {
	t.Helper()
	s := New(tree, opts...)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(s.Close)
	return s
}

func remoteDocument(t *testing.T, tree *remote.MemoryTree) *domain.Document {
	t.Helper()
	data, _ := tree.Contents()
	require.NotNil(t, data)
	var doc domain.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return &doc
}

func TestInitialize_EmptyRemoteIsSeeded(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree)

	assert.True(t, s.Initialized())
	assert.False(t, s.Degraded())
	assert.Equal(t, seed.Document(), s.Snapshot())
	assert.Equal(t, seed.Document(), remoteDocument(t, tree))
	assert.Equal(t, 1, tree.Writes())
	assert.Equal(t, int64(1), remote.Generation(s.Revision()))
}

func TestInitialize_SeedingTwiceYieldsSameDocument(t *testing.T) {
	first := newInitializedStore(t, remote.NewMemoryTree())
	second := newInitializedStore(t, remote.NewMemoryTree())

	assert.Equal(t, first.Snapshot(), second.Snapshot())
}

func TestInitialize_NonEmptyRemoteIsMergedNotSeeded(t *testing.T) {
	tree := remote.NewMemoryTree()
	_, err := tree.Create(context.Background(), json.RawMessage(`{
		"models": {"a": {"id": "m-remote", "name": "Remote Model"}},
		"siteConfig": {"agencyName": "Remote"}
	}`))
	require.NoError(t, err)

	s := newInitializedStore(t, tree)
	doc := s.Snapshot()

	require.Len(t, doc.Models, 1)
	assert.Equal(t, "m-remote", doc.Models[0].ID)
	assert.Equal(t, "Remote", doc.SiteConfig.AgencyName)
	assert.Equal(t, seed.Document().Articles, doc.Articles)
	assert.Equal(t, 1, tree.Writes(), "a non-empty remote must never be seeded")
}

func TestInitialize_SubscriptionFailureFallsBackToSeed(t *testing.T) {
	tree := remote.NewMemoryTree()
	tree.FailSubscribe(errors.New("permission denied"))

	s := newInitializedStore(t, tree, WithRetryInterval(time.Hour))

	assert.True(t, s.Initialized())
	assert.True(t, s.Degraded())
	assert.Equal(t, seed.Document(), s.Snapshot())
	assert.Equal(t, 0, tree.Writes())
}

func TestInitialize_SeedWriteFailureFallsBackToSeed(t *testing.T) {
	tree := remote.NewMemoryTree()
	tree.FailWrites(errors.New("read-only"))

	s := newInitializedStore(t, tree, WithRetryInterval(time.Hour))

	assert.True(t, s.Degraded())
	assert.Equal(t, seed.Document(), s.Snapshot())
}

type silentTree struct{ remote.MemoryTree }

func (t *silentTree) Subscribe(ctx context.Context, onChange func(remote.Snapshot), onError func(error)) (func(), error) {
	return func() {}, nil
}

func TestInitialize_TimeoutFallsBackToSeed(t *testing.T) {
	s := New(&silentTree{}, WithInitTimeout(20*time.Millisecond), WithRetryInterval(time.Hour))
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(s.Close)

	assert.True(t, s.Degraded())
	assert.NotNil(t, s.Snapshot())
}

func TestSave_ReplacesLocalAndRemote(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree)

	next := s.Clone()
	next.SiteConfig.AgencyName = "Renamed"
	require.NoError(t, s.Save(context.Background(), next))

	assert.Equal(t, "Renamed", s.Snapshot().SiteConfig.AgencyName)
	assert.Equal(t, "Renamed", remoteDocument(t, tree).SiteConfig.AgencyName)

	next.SiteConfig.AgencyName = "mutated after save"
	assert.Equal(t, "Renamed", s.Snapshot().SiteConfig.AgencyName, "store must not alias the caller's copy")
}

func TestSave_FailureLeavesLocalStateUntouched(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree)
	before := s.Snapshot()
	revision := s.Revision()

	boom := errors.New("network unreachable")
	tree.FailWrites(boom)

	next := s.Clone()
	next.Models = append(next.Models, domain.Model{ID: "new", Name: "New"})
	err := s.Save(context.Background(), next)

	var writeErr *domain.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.ErrorIs(t, err, boom)
	assert.Same(t, before, s.Snapshot())
	assert.Equal(t, revision, s.Revision())
}

func TestSave_WritesBackRemoteRecordsOutsideEditRules(t *testing.T) {
	tree := remote.NewMemoryTree()
	_, err := tree.Create(context.Background(), json.RawMessage(`{
		"juryEvaluations": [{"id": "e1", "candidateId": "m1", "score": 12}]
	}`))
	require.NoError(t, err)
	s := newInitializedStore(t, tree)

	next := s.Clone()
	next.SiteConfig.Tagline = "edited"
	require.NoError(t, s.Save(context.Background(), next))

	written := remoteDocument(t, tree)
	assert.Equal(t, "edited", written.SiteConfig.Tagline)
	require.Len(t, written.JuryEvaluations, 1)
	assert.Equal(t, 12.0, written.JuryEvaluations[0].Score)
}

func TestSave_KeepsRemoteElementsThatDoNotDecode(t *testing.T) {
	tree := remote.NewMemoryTree()
	_, err := tree.Create(context.Background(), json.RawMessage(`{"models": [
		{"id": "remote-1", "name": "One", "height": 180},
		{"id": "remote-2", "name": "Two", "height": "175"}
	]}`))
	require.NoError(t, err)
	s := newInitializedStore(t, tree)

	require.Len(t, s.Snapshot().Models, 1)
	assert.Equal(t, "remote-1", s.Snapshot().Models[0].ID)

	next := s.Clone()
	next.SiteConfig.Tagline = "edited"
	require.NoError(t, s.Save(context.Background(), next))

	data, _ := tree.Contents()
	var written struct {
		Models []struct {
			ID     string          `json:"id"`
			Height json.RawMessage `json:"height"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(data, &written))
	require.Len(t, written.Models, 2)
	assert.Equal(t, "remote-1", written.Models[0].ID)
	assert.Equal(t, "remote-2", written.Models[1].ID)
	assert.Equal(t, `"175"`, string(written.Models[1].Height))
}

func TestSave_RefusedWhileServingSeedData(t *testing.T) {
	tree := remote.NewMemoryTree()
	_, err := tree.Create(context.Background(), json.RawMessage(`{"models": [{"id": "real", "name": "Real"}]}`))
	require.NoError(t, err)
	tree.FailSubscribe(errors.New("stats: connection refused"))

	s := newInitializedStore(t, tree, WithRetryInterval(time.Hour))
	require.True(t, s.Degraded())

	next := s.Clone()
	next.SiteConfig.Tagline = "edited"
	err = s.Save(context.Background(), next)

	var writeErr *domain.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.ErrorIs(t, err, domain.ErrDegraded)
	assert.Equal(t, "real", remoteDocument(t, tree).Models[0].ID)
	assert.Equal(t, 1, tree.Writes())
}

func TestInitialize_RecoversWhenSubscriptionSucceedsLater(t *testing.T) {
	tree := remote.NewMemoryTree()
	_, err := tree.Create(context.Background(), json.RawMessage(`{"models": [{"id": "real", "name": "Real"}]}`))
	require.NoError(t, err)
	tree.FailSubscribe(errors.New("stats: connection refused"))

	s := newInitializedStore(t, tree, WithRetryInterval(5*time.Millisecond))
	require.True(t, s.Degraded())

	tree.FailSubscribe(nil)
	require.Eventually(t, func() bool { return !s.Degraded() }, 2*time.Second, 5*time.Millisecond)

	require.Len(t, s.Snapshot().Models, 1)
	assert.Equal(t, "real", s.Snapshot().Models[0].ID)

	next := s.Clone()
	next.SiteConfig.Tagline = "edited"
	require.NoError(t, s.Save(context.Background(), next))
	assert.Equal(t, "real", remoteDocument(t, tree).Models[0].ID)
}

func TestInitialize_RecoversFromFailedSeedWrite(t *testing.T) {
	tree := remote.NewMemoryTree()
	tree.FailWrites(errors.New("read-only"))

	s := newInitializedStore(t, tree, WithRetryInterval(5*time.Millisecond))
	require.True(t, s.Degraded())

	tree.FailWrites(nil)
	require.Eventually(t, func() bool { return !s.Degraded() }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, seed.Document(), remoteDocument(t, tree))
}

func TestSave_BeforeInitializeFails(t *testing.T) {
	s := New(remote.NewMemoryTree())
	err := s.Save(context.Background(), seed.Document())
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestSave_SelfNotificationIsIgnored(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree)

	var adopted atomic.Int32
	s.Subscribe(func(*domain.Document) { adopted.Add(1) })

	next := s.Clone()
	next.SiteConfig.Tagline = "new tagline"
	require.NoError(t, s.Save(context.Background(), next))
	saved := s.Snapshot()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), adopted.Load())
	assert.Same(t, saved, s.Snapshot())
}

func TestRemoteWritesFromOtherWritersAreAdopted(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree)

	other := newInitializedStore(t, tree)
	next := other.Clone()
	next.SiteConfig.AgencyName = "Written elsewhere"
	require.NoError(t, other.Save(context.Background(), next))

	require.Eventually(t, func() bool {
		return s.Snapshot().SiteConfig.AgencyName == "Written elsewhere"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, other.Revision(), s.Revision())
}

func TestSave_OptimisticModeRejectsStaleWrite(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree, WithWriteMode(Optimistic))
	stale := s.Clone()
	stale.SiteConfig.AgencyName = "stale"

	// the store believes it holds a revision the remote has since replaced
	s.mu.Lock()
	s.revision = "1-stale"
	s.mu.Unlock()

	err := s.Save(context.Background(), stale)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, tree.Writes())
}

func TestSave_OptimisticModeAcceptsCurrentRevision(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree, WithWriteMode(Optimistic))

	next := s.Clone()
	next.SiteConfig.AgencyName = "fresh"
	require.NoError(t, s.Save(context.Background(), next))
	assert.Equal(t, int64(2), remote.Generation(s.Revision()))
}

func TestSubscribe_ObserverSeesAdoptedDocuments(t *testing.T) {
	tree := remote.NewMemoryTree()
	s := newInitializedStore(t, tree)

	seen := make(chan *domain.Document, 1)
	unsubscribe := s.Subscribe(func(doc *domain.Document) { seen <- doc })

	next := s.Clone()
	next.Testimonials = append(next.Testimonials, domain.Testimonial{ID: "t1", Name: "Client"})
	require.NoError(t, s.Save(context.Background(), next))

	select {
	case doc := <-seen:
		require.Len(t, doc.Testimonials, 1)
	case <-time.After(time.Second):
		t.Fatal("observer was not notified")
	}

	unsubscribe()
}

func TestEndToEnd_SaveIsVisibleToFreshStore(t *testing.T) {
	tree := remote.NewMemoryTree()
	ctx := context.Background()

	s := newInitializedStore(t, tree)
	assert.Equal(t, seed.Document(), s.Snapshot())

	before := len(s.Snapshot().Models)
	next := s.Clone()
	next.Models = append(next.Models, domain.Model{ID: "new-model", Name: "New Model", Gender: domain.GenderFemale, Height: 174})
	require.NoError(t, s.Save(ctx, next))

	assert.Len(t, s.Snapshot().Models, before+1)

	fresh := newInitializedStore(t, tree)
	require.Len(t, fresh.Snapshot().Models, before+1)
	assert.Equal(t, "new-model", fresh.Snapshot().Models[before].ID)
}
