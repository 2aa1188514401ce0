package services

import (
	"context"
	"fmt"
	"time"

	"auction_tracker/models"
)

// ListingStore is the persistence contract for reconciled listings. Both the
// SQLite and Postgres stores satisfy it.
type ListingStore interface {
	// UpsertListing inserts the listing or refreshes last_seen, price and
	// matched models on an existing record. It reports whether it inserted.
	UpsertListing(ctx context.Context, l *models.Listing, now time.Time) (bool, error)
	AllListings(ctx context.Context) ([]models.ListingRecord, error)
	SetBookmark(ctx context.Context, id string, bookmarked bool) (bool, error)
	ToggleBookmark(ctx context.Context, id string) (bookmarked, found bool, err error)
}

// ReconcileService merges filtered candidates into the listing store.
type ReconcileService struct {
	store ListingStore
	now   func() time.Time
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(store ListingStore) *ReconcileService {
	return &ReconcileService{store: store, now: time.Now}
}

// MergeResult partitions the merged candidates.
type MergeResult struct {
	New     []models.Listing
	Updated []models.Listing
}

// Merge upserts each candidate in order. Every record is written atomically on
// its own; a failure stops the merge and reports what was already applied.
func (s *ReconcileService) Merge(ctx context.Context, candidates []models.Listing) (*MergeResult, error) {
	result := &MergeResult{}
	now := s.now()

	for i := range candidates {
		l := &candidates[i]
		inserted, err := s.store.UpsertListing(ctx, l, now)
		if err != nil {
			return result, fmt.Errorf("upsert listing %s: %w", l.ID, err)
		}
		if inserted {
			result.New = append(result.New, *l)
		} else {
			result.Updated = append(result.Updated, *l)
		}
	}
	return result, nil
}

// Display returns bookmarked records by title and all others newest first, as
// two separate sequences.
func (s *ReconcileService) Display(ctx context.Context) (bookmarked, recent []models.ListingRecord, err error) {
	records, err := s.store.AllListings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load listings: %w", err)
	}
	for _, r := range records {
		if r.Bookmarked {
			bookmarked = append(bookmarked, r)
		} else {
			recent = append(recent, r)
		}
	}
	models.SortBookmarked(bookmarked)
	models.SortRecent(recent)
	return bookmarked, recent, nil
}

// Bookmark sets the flag when value is non-nil and toggles it otherwise. It
// returns the resulting value; found is false for unknown ids.
func (s *ReconcileService) Bookmark(ctx context.Context, id string, value *bool) (bookmarked, found bool, err error) {
	if value == nil {
		return s.store.ToggleBookmark(ctx, id)
	}
	found, err = s.store.SetBookmark(ctx, id, *value)
	if err != nil {
		return false, false, err
	}
	return *value, found, nil
}
