// Package remote is the boundary to the multi-writer document store: one
// JSON document at a fixed root that can be watched and overwritten whole.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrExists is returned by Create when the root already holds data.
var ErrExists = errors.New("remote root already exists")

// Snapshot is one notification of the root. Data is nil when nothing is
// stored there.
type Snapshot struct {
	Data     json.RawMessage
	Revision string
}

func (s Snapshot) Exists() bool {
	trimmed := bytes.TrimSpace(s.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Tree is the subscribe/overwrite contract of the remote store.
//
// Subscribe fires onChange at least once with the current state and again
// after every mutation, self-originated ones included, in the order the
// store emits them. Read-side failures go to onError; the subscription
// stays open until unsubscribe is called or ctx ends.
//
// Overwrite replaces the whole root. An empty ifMatch overwrites whatever
// revision is current (last write wins); a non-empty one is rejected with
// domain.ErrConflict when the root has moved on.
type Tree interface {
	Subscribe(ctx context.Context, onChange func(Snapshot), onError func(error)) (unsubscribe func(), err error)
	Overwrite(ctx context.Context, data json.RawMessage, ifMatch string) (revision string, err error)
	Create(ctx context.Context, data json.RawMessage) (revision string, err error)
}

// Generation extracts the monotonically increasing prefix of a "N-hash"
// revision. Malformed revisions are generation 0.
func Generation(revision string) int64 {
	prefix, _, _ := strings.Cut(revision, "-")
	n, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
