package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConflict          = errors.New("stale revision")
	ErrNotInitialized    = errors.New("store not initialized")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrDegraded          = errors.New("remote document unavailable")
)

// SubscriptionError is a read-side failure of the remote tree. It is logged
// and masked with seed data, never returned to consumers.
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription failed: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// WriteError is a failed Save. Local state is unchanged when it is returned.
type WriteError struct {
	Revision string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// AggregationError names the rollup section that failed to reduce.
type AggregationError struct {
	Section string
	Err     error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation section %q failed: %v", e.Section, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
