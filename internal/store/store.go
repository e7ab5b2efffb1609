// Package store defines the persistence contract for the lifecycle engine.
//
// A Store hands out transactional Sessions; the coordinator opens exactly one
// Session per policy run, the policy reads and mutates through it, and the
// coordinator commits on success or rolls back on error. Implementations:
// postgres.Store (durable, pgx-backed) and Memory (tests and offline mode).
package store

import (
	"context"
	"errors"
	"time"

	"flipflow/pkg/types"
)

// ErrDuplicate is returned when an insert or update would violate the
// uniqueness of listings.sku or listings.ebay_item_id.
var ErrDuplicate = errors.New("store: duplicate key")

// ErrNotFound is returned by updates targeting a row that does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is a factory for transactional sessions.
type Store interface {
	Begin(ctx context.Context) (Session, error)
	Close()
}

// Session is one transaction. Reads and writes within a session are
// serialized; Commit is atomic over every mutation that reached it.
// Rollback after Commit is a no-op, so `defer sess.Rollback(ctx)` is safe.
type Session interface {
	// Listings
	GetListing(ctx context.Context, id int64) (*types.Listing, error) // nil, nil when absent
	GetListingBySKU(ctx context.Context, sku string) (*types.Listing, error)
	ListingsByStatus(ctx context.Context, status types.ListingStatus) ([]*types.Listing, error)
	InsertListing(ctx context.Context, l *types.Listing) error // assigns l.ID
	UpdateListing(ctx context.Context, l *types.Listing) error

	// SmartQueue
	InsertQueueEntry(ctx context.Context, e *types.QueueEntry) error
	UpdateQueueEntry(ctx context.Context, e *types.QueueEntry) error
	PendingQueueEntries(ctx context.Context, limit int) ([]*types.QueueEntry, error) // priority desc, created_at asc
	QueueCounts(ctx context.Context) (map[types.QueueStatus]int, error)
	ReleasedSince(ctx context.Context, since time.Time) (int, error)

	// Audit records
	InsertZombieRecord(ctx context.Context, r *types.ZombieRecord) error
	InsertOfferRecord(ctx context.Context, r *types.OfferRecord) error
	OfferSentSince(ctx context.Context, listingID int64, buyerID string, since time.Time) (bool, error)
	InsertProfitRecord(ctx context.Context, r *types.ProfitRecord) error

	// Campaigns
	InsertCampaign(ctx context.Context, c *types.Campaign) error
	UpdateCampaign(ctx context.Context, c *types.Campaign) error
	ActiveCampaign(ctx context.Context, listingID int64) (*types.Campaign, error) // nil, nil when absent
	ExpiredCampaigns(ctx context.Context, now time.Time) ([]*types.Campaign, error)

	// Job logs
	InsertJobLog(ctx context.Context, j *types.JobLog) error
	UpdateJobLog(ctx context.Context, j *types.JobLog) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
