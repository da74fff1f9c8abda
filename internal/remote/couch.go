package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"agency-sync-server/internal/domain"

	"github.com/cenkalti/backoff"
	"github.com/go-kivik/kivik/v4"
	"go.uber.org/zap"
)

const maxOverwriteAttempts = 3

// CouchTree stores the root as a single CouchDB document and watches it
// through the database changes feed.
type CouchTree struct {
	db    *kivik.DB
	docID string
	log   *zap.SugaredLogger
}

func NewCouchTree(client *kivik.Client, dbName, docID string, log *zap.SugaredLogger) *CouchTree {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CouchTree{
		db:    client.DB(dbName),
		docID: docID,
		log:   log,
	}
}

func (t *CouchTree) Subscribe(ctx context.Context, onChange func(Snapshot), onError func(error)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	// Read the sequence before the document so no change between the two
	// reads is lost; a duplicate delivery is harmless.
	stats, err := t.db.Stats(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to read database stats: %w", err)
	}

	initial, err := t.fetch(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		onChange(initial)
		t.follow(ctx, stats.UpdateSeq, onChange, onError)
	}()

	return cancel, nil
}

func (t *CouchTree) follow(ctx context.Context, since string, onChange func(Snapshot), onError func(error)) {
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 0

	for ctx.Err() == nil {
		last, err := t.consume(ctx, since, onChange)
		if last != "" {
			since = last
			retry.Reset()
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil && onError != nil {
			onError(err)
		}

		wait := retry.NextBackOff()
		t.log.Debugw("changes feed closed, reconnecting", "since", since, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (t *CouchTree) consume(ctx context.Context, since string, onChange func(Snapshot)) (string, error) {
	changes := t.db.Changes(ctx, kivik.Params(map[string]interface{}{
		"feed":         "continuous",
		"since":        since,
		"include_docs": true,
		"heartbeat":    30000,
		"filter":       "_doc_ids",
		"doc_ids":      []string{t.docID},
	}))
	defer changes.Close()

	var last string
	for changes.Next() {
		last = changes.Seq()
		if changes.ID() != t.docID {
			continue
		}
		if changes.Deleted() {
			onChange(Snapshot{})
			continue
		}

		var doc map[string]json.RawMessage
		if err := changes.ScanDoc(&doc); err != nil {
			return last, fmt.Errorf("failed to decode change: %w", err)
		}
		snapshot, err := snapshotFromDoc(doc)
		if err != nil {
			return last, err
		}
		onChange(snapshot)
	}

	if err := changes.Err(); err != nil {
		return last, fmt.Errorf("changes feed: %w", err)
	}
	return last, nil
}

func (t *CouchTree) fetch(ctx context.Context) (Snapshot, error) {
	var doc map[string]json.RawMessage
	if err := t.db.Get(ctx, t.docID).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("failed to fetch document: %w", err)
	}
	return snapshotFromDoc(doc)
}

func (t *CouchTree) currentRevision(ctx context.Context) (string, error) {
	var meta struct {
		Rev string `json:"_rev"`
	}
	if err := t.db.Get(ctx, t.docID).ScanDoc(&meta); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to read current revision: %w", err)
	}
	return meta.Rev, nil
}

func (t *CouchTree) Overwrite(ctx context.Context, data json.RawMessage, ifMatch string) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("document is not an object: %w", err)
	}

	if ifMatch != "" {
		rev, err := t.put(ctx, doc, ifMatch)
		if err != nil {
			if kivik.HTTPStatus(err) == http.StatusConflict {
				return "", fmt.Errorf("%w: %v", domain.ErrConflict, err)
			}
			return "", fmt.Errorf("failed to write document: %w", err)
		}
		return rev, nil
	}

	// Last write wins: if another writer slips in between reading the
	// revision and writing, read it again.
	var lastErr error
	for attempt := 0; attempt < maxOverwriteAttempts; attempt++ {
		current, err := t.currentRevision(ctx)
		if err != nil {
			return "", err
		}
		rev, err := t.put(ctx, doc, current)
		if err == nil {
			return rev, nil
		}
		if kivik.HTTPStatus(err) != http.StatusConflict {
			return "", fmt.Errorf("failed to write document: %w", err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("failed to overwrite after %d attempts: %w", maxOverwriteAttempts, lastErr)
}

func (t *CouchTree) Create(ctx context.Context, data json.RawMessage) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("document is not an object: %w", err)
	}

	rev, err := t.put(ctx, doc, "")
	if err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return "", ErrExists
		}
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	return rev, nil
}

func (t *CouchTree) put(ctx context.Context, doc map[string]json.RawMessage, rev string) (string, error) {
	delete(doc, "_rev")
	if rev != "" {
		encoded, err := json.Marshal(rev)
		if err != nil {
			return "", err
		}
		doc["_rev"] = encoded
	}

	return t.db.Put(ctx, t.docID, doc)
}

// snapshotFromDoc strips CouchDB bookkeeping fields from a stored document.
func snapshotFromDoc(doc map[string]json.RawMessage) (Snapshot, error) {
	var rev string
	if raw, ok := doc["_rev"]; ok {
		if err := json.Unmarshal(raw, &rev); err != nil {
			return Snapshot{}, fmt.Errorf("invalid _rev: %w", err)
		}
	}

	var deleted bool
	if raw, ok := doc["_deleted"]; ok {
		_ = json.Unmarshal(raw, &deleted)
	}
	if deleted {
		return Snapshot{}, nil
	}

	for _, key := range []string{"_id", "_rev", "_revisions", "_conflicts", "_attachments"} {
		delete(doc, key)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return Snapshot{Data: data, Revision: rev}, nil
}
