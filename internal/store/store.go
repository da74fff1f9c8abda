// Package store owns the canonical in-memory Document and keeps it in step
// with the remote tree.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/metrics"
	"agency-sync-server/internal/normalize"
	"agency-sync-server/internal/remote"
	"agency-sync-server/internal/seed"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

type WriteMode string

const (
	LastWriteWins WriteMode = "last-write-wins"
	Optimistic    WriteMode = "optimistic"
)

const (
	DefaultInitTimeout   = 10 * time.Second
	DefaultRetryInterval = time.Second
)

// Store is the only writer of the remote tree. Readers get the current
// Document from Snapshot and must treat it as immutable; writers Clone,
// mutate the copy and Save it.
type Store struct {
	tree        remote.Tree
	log         *zap.SugaredLogger
	metrics       *metrics.Metrics
	seed          func() *domain.Document
	mode          WriteMode
	initTimeout   time.Duration
	retryInterval time.Duration

	mu         sync.RWMutex
	doc        *domain.Document
	revision   string
	generation int64
	degraded   bool

	// writeMu serializes Save so two local writes never race each other.
	writeMu sync.Mutex

	observersMu sync.Mutex
	observers   map[int]func(*domain.Document)
	nextObs     int

	initOnce    sync.Once
	readyOnce   sync.Once
	reconnectOnce sync.Once
	ready       chan struct{}

	// life bounds the subscription and the recovery loop; Close cancels it.
	life        context.Context
	cancel      context.CancelFunc
	subMu       sync.Mutex
	unsubscribe func()
}

type Option func(*Store)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithWriteMode(mode WriteMode) Option {
	return func(s *Store) { s.mode = mode }
}

func WithSeed(fn func() *domain.Document) Option {
	return func(s *Store) { s.seed = fn }
}

func WithInitTimeout(d time.Duration) Option {
	return func(s *Store) { s.initTimeout = d }
}

// WithRetryInterval sets the first wait between attempts to reach the
// remote tree while serving seed data.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Store) { s.retryInterval = d }
}

func New(tree remote.Tree, opts ...Option) *Store {
	s := &Store{
		tree:          tree,
		log:           zap.NewNop().Sugar(),
		seed:          seed.Document,
		mode:          LastWriteWins,
		initTimeout:   DefaultInitTimeout,
		retryInterval: DefaultRetryInterval,
		observers:     make(map[int]func(*domain.Document)),
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.life, s.cancel = context.WithCancel(context.Background())
	return s
}

// Initialize opens the subscription and waits for the first document. A
// subscription failure or a first notification that never arrives within
// the init timeout leaves the store serving seed data while it keeps
// retrying in the background.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		if err := s.subscribe(); err != nil {
			s.fallback(&domain.SubscriptionError{Err: err})
		}
	})

	timer := time.NewTimer(s.initTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		return nil
	case <-timer.C:
		s.fallback(&domain.SubscriptionError{Err: fmt.Errorf("no snapshot within %s", s.initTimeout)})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down the remote subscription and stops any recovery loop.
func (s *Store) Close() {
	s.cancel()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// subscribe replaces the current subscription with a fresh one, whose first
// notification is the current remote snapshot.
func (s *Store) subscribe() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.life.Err() != nil {
		return s.life.Err()
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	unsubscribe, err := s.tree.Subscribe(s.life,
		func(snapshot remote.Snapshot) { s.handleChange(s.life, snapshot) },
		s.handleError,
	)
	if err != nil {
		return err
	}
	s.unsubscribe = unsubscribe
	return nil
}

var errStillDegraded = errors.New("remote document still unavailable")

// reconnect resubscribes with exponential backoff until a remote document is
// adopted or the store is closed.
func (s *Store) reconnect() {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = s.retryInterval
	retry.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		if !s.Degraded() {
			return nil
		}
		if err := s.subscribe(); err != nil {
			return err
		}
		return errStillDegraded
	}, backoff.WithContext(retry, s.life), func(err error, wait time.Duration) {
		s.log.Debugw("remote still unavailable, retrying", "error", err, "wait", wait)
	})
	if err != nil {
		return
	}
	s.log.Infow("remote document recovered", "revision", s.Revision())
}

func (s *Store) handleChange(ctx context.Context, snapshot remote.Snapshot) {
	if !snapshot.Exists() {
		s.seedRemote(ctx)
		return
	}

	merged, err := normalize.Merge(s.seed(), snapshot.Data)
	if err != nil {
		s.handleError(err)
		return
	}
	if len(merged.Unparsed) > 0 {
		s.log.Warnw("remote elements do not match the schema, keeping them verbatim",
			"collections", merged.UnparsedCollections(), "revision", snapshot.Revision)
	}

	if s.adopt(merged, snapshot.Revision) {
		s.metrics.Notification(metrics.NotificationAdopted)
		s.log.Debugw("adopted remote document", "revision", snapshot.Revision)
		return
	}
	s.metrics.Notification(metrics.NotificationIgnored)
}

// seedRemote writes the catalog only when the root is still empty; Create
// refuses to clobber a root another writer seeded first.
func (s *Store) seedRemote(ctx context.Context) {
	doc := s.seed()
	payload, err := json.Marshal(doc)
	if err != nil {
		s.fallback(fmt.Errorf("encode seed document: %w", err))
		return
	}

	revision, err := s.tree.Create(ctx, payload)
	switch {
	case errors.Is(err, remote.ErrExists):
		s.log.Debugw("remote already seeded by another writer")
		return
	case err != nil:
		s.fallback(&domain.WriteError{Err: err})
		return
	}

	s.adopt(doc, revision)
	s.metrics.Notification(metrics.NotificationSeeded)
	s.log.Infow("seeded empty remote document", "revision", revision, "catalog", seed.Version)
}

func (s *Store) handleError(err error) {
	s.metrics.Notification(metrics.NotificationError)
	s.log.Warnw("remote subscription error", "error", err)
	if !s.Initialized() {
		s.fallback(&domain.SubscriptionError{Err: err})
	}
}

// fallback serves seed data when nothing better is known. A store that has
// already adopted a document keeps it.
func (s *Store) fallback(err error) {
	s.mu.Lock()
	if s.doc != nil {
		s.mu.Unlock()
		s.log.Warnw("remote unavailable, keeping last known document", "error", err)
		return
	}
	doc := s.seed()
	s.doc = doc
	s.degraded = true
	s.mu.Unlock()

	s.metrics.Notification(metrics.NotificationFallback)
	s.log.Warnw("remote unavailable, serving seed document", "error", err)
	s.markReady()
	s.notify(doc)
	s.reconnectOnce.Do(func() { go s.reconnect() })
}

// adopt swaps in doc unless a document at the same or a newer revision is
// already held. Self-notifications and delayed passes fall out here.
func (s *Store) adopt(doc *domain.Document, revision string) bool {
	generation := remote.Generation(revision)

	s.mu.Lock()
	if !s.degraded && s.doc != nil && generation <= s.generation {
		s.mu.Unlock()
		return false
	}
	s.doc = doc
	s.revision = revision
	s.generation = generation
	s.degraded = false
	s.mu.Unlock()

	s.markReady()
	s.notify(doc)
	return true
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Save overwrites the whole remote tree with doc. The local document is
// replaced only after the write is acknowledged; on failure a
// *domain.WriteError is returned and local state is unchanged. Saves are
// refused while the store serves seed data, since the remote holds a
// document this process has never read.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return &domain.WriteError{Err: fmt.Errorf("%w: nil document", domain.ErrValidation)}
	}
	if !s.Initialized() {
		return &domain.WriteError{Err: domain.ErrNotInitialized}
	}
	if s.Degraded() {
		return &domain.WriteError{Err: domain.ErrDegraded}
	}

	stored := doc.Clone()
	payload, err := json.Marshal(stored)
	if err != nil {
		return &domain.WriteError{Err: fmt.Errorf("encode document: %w", err)}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var ifMatch string
	if s.mode == Optimistic {
		ifMatch = s.Revision()
	}

	revision, err := s.tree.Overwrite(ctx, payload, ifMatch)
	s.metrics.SaveResult(err)
	if err != nil {
		s.log.Errorw("save failed", "error", err, "if_match", ifMatch)
		return &domain.WriteError{Revision: ifMatch, Err: err}
	}

	s.adopt(stored, revision)
	s.log.Debugw("saved document", "revision", revision)
	return nil
}

// Snapshot returns the current document, or nil before initialization.
// The value is shared and must not be mutated.
func (s *Store) Snapshot() *domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Clone returns a private copy of the current document to edit and Save.
func (s *Store) Clone() *domain.Document {
	return s.Snapshot().Clone()
}

func (s *Store) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Degraded reports whether the store is serving seed data because the
// remote tree could not be read.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Store) Initialized() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Ready is closed once a document is available.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Subscribe registers fn for every adopted document. fn runs on the
// goroutine that adopted the document and must not block for long.
func (s *Store) Subscribe(fn func(*domain.Document)) (unsubscribe func()) {
	s.observersMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.observersMu.Unlock()

	return func() {
		s.observersMu.Lock()
		delete(s.observers, id)
		s.observersMu.Unlock()
	}
}

func (s *Store) notify(doc *domain.Document) {
	s.observersMu.Lock()
	fns := make([]func(*domain.Document), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.observersMu.Unlock()

	for _, fn := range fns {
		fn(doc)
	}
}
