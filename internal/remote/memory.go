package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"agency-sync-server/internal/domain"

	"github.com/google/uuid"
)

// MemoryTree is an in-process Tree used for local development and tests.
// Notifications are queued per subscriber and delivered on that
// subscriber's own goroutine, so a listener may write back to the tree.
type MemoryTree struct {
	mu          sync.Mutex
	data        json.RawMessage
	revision    string
	generation  int64
	subscribers map[int]*memorySubscriber
	nextID      int
	writes      int

	writeErr     error
	subscribeErr error
}

func NewMemoryTree() *MemoryTree {
	return &MemoryTree{subscribers: make(map[int]*memorySubscriber)}
}

func (t *MemoryTree) Subscribe(ctx context.Context, onChange func(Snapshot), onError func(error)) (func(), error) {
	t.mu.Lock()
	if t.subscribeErr != nil {
		err := t.subscribeErr
		t.mu.Unlock()
		return nil, err
	}

	id := t.nextID
	t.nextID++
	sub := newMemorySubscriber(onChange, onError)
	t.subscribers[id] = sub
	sub.push(event{snapshot: t.snapshotLocked()})
	t.mu.Unlock()

	go sub.run()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subscribers, id)
			t.mu.Unlock()
			sub.stop()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.done:
		}
	}()

	return unsubscribe, nil
}

func (t *MemoryTree) Overwrite(ctx context.Context, data json.RawMessage, ifMatch string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writeErr != nil {
		return "", t.writeErr
	}
	if ifMatch != "" && ifMatch != t.revision {
		return "", fmt.Errorf("%w: expected %s, current %s", domain.ErrConflict, ifMatch, t.revision)
	}
	return t.writeLocked(data), nil
}

func (t *MemoryTree) Create(ctx context.Context, data json.RawMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writeErr != nil {
		return "", t.writeErr
	}
	if t.data != nil {
		return "", ErrExists
	}
	return t.writeLocked(data), nil
}

func (t *MemoryTree) writeLocked(data json.RawMessage) string {
	t.generation++
	t.revision = fmt.Sprintf("%d-%s", t.generation, strings.ReplaceAll(uuid.NewString(), "-", ""))
	t.data = append(json.RawMessage(nil), data...)
	t.writes++

	snapshot := t.snapshotLocked()
	for _, sub := range t.subscribers {
		sub.push(event{snapshot: snapshot})
	}
	return t.revision
}

func (t *MemoryTree) snapshotLocked() Snapshot {
	if t.data == nil {
		return Snapshot{}
	}
	return Snapshot{Data: append(json.RawMessage(nil), t.data...), Revision: t.revision}
}

// Contents returns the stored document and its revision.
func (t *MemoryTree) Contents() (json.RawMessage, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := t.snapshotLocked()
	return snapshot.Data, snapshot.Revision
}

// Writes counts successful Overwrite and Create calls.
func (t *MemoryTree) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// FailWrites makes every write fail with err until called again with nil.
func (t *MemoryTree) FailWrites(err error) {
	t.mu.Lock()
	t.writeErr = err
	t.mu.Unlock()
}

// FailSubscribe makes new subscriptions fail with err.
func (t *MemoryTree) FailSubscribe(err error) {
	t.mu.Lock()
	t.subscribeErr = err
	t.mu.Unlock()
}

// EmitError delivers err to every open subscription.
func (t *MemoryTree) EmitError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sub := range t.subscribers {
		sub.push(event{err: err})
	}
}

type event struct {
	snapshot Snapshot
	err      error
}

type memorySubscriber struct {
	onChange func(Snapshot)
	onError  func(error)

	mu    sync.Mutex
	queue []event
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newMemorySubscriber(onChange func(Snapshot), onError func(error)) *memorySubscriber {
	return &memorySubscriber{
		onChange: onChange,
		onError:  onError,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (s *memorySubscriber) push(e event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySubscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *memorySubscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}

			if e.err != nil {
				if s.onError != nil {
					s.onError(e.err)
				}
				continue
			}
			s.onChange(e.snapshot)
		}
	}
}
