package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"agency-sync-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	errs      []error
}

func (r *recorder) onChange(s Snapshot) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, s)
	r.mu.Unlock()
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) at(i int) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[i]
}

func TestGeneration(t *testing.T) {
	assert.Equal(t, int64(3), Generation("3-abc"))
	assert.Equal(t, int64(12), Generation("12-967a00dff5e02add41819138abb3284d"))
	assert.Equal(t, int64(0), Generation(""))
	assert.Equal(t, int64(0), Generation("abc"))
	assert.Equal(t, int64(0), Generation("-1-x"))
}

func TestSnapshot_Exists(t *testing.T) {
	assert.False(t, Snapshot{}.Exists())
	assert.False(t, Snapshot{Data: json.RawMessage(" null ")}.Exists())
	assert.True(t, Snapshot{Data: json.RawMessage(`{}`)}.Exists())
}

func TestMemoryTree_SubscribeFiresOnAttach(t *testing.T) {
	tree := NewMemoryTree()
	rec := &recorder{}

	unsubscribe, err := tree.Subscribe(context.Background(), rec.onChange, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, rec.at(0).Exists())
}

func TestMemoryTree_NotificationsInWriteOrder(t *testing.T) {
	tree := NewMemoryTree()
	rec := &recorder{}
	ctx := context.Background()

	unsubscribe, err := tree.Subscribe(ctx, rec.onChange, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	_, err = tree.Create(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	_, err = tree.Overwrite(ctx, json.RawMessage(`{"n":2}`), "")
	require.NoError(t, err)
	_, err = tree.Overwrite(ctx, json.RawMessage(`{"n":3}`), "")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() == 4 }, time.Second, 5*time.Millisecond)
	for i := 1; i < 4; i++ {
		assert.Equal(t, int64(i), Generation(rec.at(i).Revision))
	}
	assert.JSONEq(t, `{"n":3}`, string(rec.at(3).Data))
}

func TestMemoryTree_CreateOnlyWhenEmpty(t *testing.T) {
	tree := NewMemoryTree()
	ctx := context.Background()

	_, err := tree.Create(ctx, json.RawMessage(`{"a":1}`))
	require.NoError(t, err)

	_, err = tree.Create(ctx, json.RawMessage(`{"a":2}`))
	assert.ErrorIs(t, err, ErrExists)

	data, _ := tree.Contents()
	assert.JSONEq(t, `{"a":1}`, string(data))
	assert.Equal(t, 1, tree.Writes())
}

func TestMemoryTree_IfMatchRejectsStaleWrite(t *testing.T) {
	tree := NewMemoryTree()
	ctx := context.Background()

	first, err := tree.Create(ctx, json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	_, err = tree.Overwrite(ctx, json.RawMessage(`{"a":2}`), first)
	require.NoError(t, err)

	_, err = tree.Overwrite(ctx, json.RawMessage(`{"a":3}`), first)
	assert.ErrorIs(t, err, domain.ErrConflict)

	data, _ := tree.Contents()
	assert.JSONEq(t, `{"a":2}`, string(data))
}

func TestMemoryTree_FailWrites(t *testing.T) {
	tree := NewMemoryTree()
	boom := errors.New("permission denied")
	tree.FailWrites(boom)

	_, err := tree.Overwrite(context.Background(), json.RawMessage(`{}`), "")
	assert.ErrorIs(t, err, boom)

	data, rev := tree.Contents()
	assert.Nil(t, data)
	assert.Empty(t, rev)
}

func TestMemoryTree_UnsubscribeStopsDelivery(t *testing.T) {
	tree := NewMemoryTree()
	rec := &recorder{}
	ctx := context.Background()

	unsubscribe, err := tree.Subscribe(ctx, rec.onChange, rec.onError)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	_, err = tree.Create(ctx, json.RawMessage(`{}`))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestSnapshotFromDoc_StripsBookkeeping(t *testing.T) {
	doc := map[string]json.RawMessage{
		"_id":    json.RawMessage(`"agency"`),
		"_rev":   json.RawMessage(`"4-abc"`),
		"models": json.RawMessage(`[]`),
	}

	snapshot, err := snapshotFromDoc(doc)
	require.NoError(t, err)

	assert.Equal(t, "4-abc", snapshot.Revision)
	assert.JSONEq(t, `{"models":[]}`, string(snapshot.Data))
}

func TestSnapshotFromDoc_DeletedIsAbsent(t *testing.T) {
	snapshot, err := snapshotFromDoc(map[string]json.RawMessage{
		"_rev":     json.RawMessage(`"5-abc"`),
		"_deleted": json.RawMessage(`true`),
	})
	require.NoError(t, err)
	assert.False(t, snapshot.Exists())
}
