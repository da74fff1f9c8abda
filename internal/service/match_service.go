package service

import (
	"fmt"
	"time"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/matching"
)

// Snapshotter hands out the current document.
type Snapshotter interface {
	Snapshot() *domain.Document
}

type MatchService struct {
	store Snapshotter
}

func NewMatchService(store Snapshotter) *MatchService {
	return &MatchService{store: store}
}

// MatchBooking ranks the active models for the booking request with the
// given ID.
func (s *MatchService) MatchBooking(bookingID string, now time.Time) ([]matching.Result, error) {
	doc := s.store.Snapshot()
	if doc == nil {
		return nil, domain.ErrNotInitialized
	}

	for _, req := range doc.BookingRequests {
		if req.ID == bookingID {
			return matching.Rank(req, matching.CandidatesFromDocument(doc), matching.Options{Now: now}), nil
		}
	}
	return nil, fmt.Errorf("booking request %s: %w", bookingID, domain.ErrNotFound)
}
