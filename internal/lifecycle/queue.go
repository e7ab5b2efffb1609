package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// SmartQueue holds draft listings and releases them in batches during the
// weekly surge window, when conversion peaks. The window predicate is
// informational: callers may release a batch at any time.
type SmartQueue struct {
	gw        gateway.Gateway
	batchSize int
	surgeDay  time.Weekday
	surgeFrom int
	surgeTo   int
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

// NewSmartQueue builds the queue from the configured surge window.
func NewSmartQueue(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) (*SmartQueue, error) {
	loc, err := time.LoadLocation(cfg.Queue.SurgeTimezone)
	if err != nil {
		return nil, fmt.Errorf("load surge timezone: %w", err)
	}
	day, ok := weekdays[strings.ToLower(cfg.Queue.SurgeDay)]
	if !ok {
		return nil, fmt.Errorf("unknown surge day %q", cfg.Queue.SurgeDay)
	}
	return &SmartQueue{
		gw:        gw,
		batchSize: cfg.Queue.BatchSize,
		surgeDay:  day,
		surgeFrom: cfg.Queue.SurgeStartHour,
		surgeTo:   cfg.Queue.SurgeEndHour,
		loc:       loc,
		logger:    logger.With("component", "smart-queue"),
		now:       time.Now,
	}, nil
}

// Enqueue adds a listing to the release queue and moves it to queued status.
func (sq *SmartQueue) Enqueue(ctx context.Context, sess store.Session, listingID int64, priority int, window string) (*types.QueueEntry, error) {
	l, err := sess.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, &ErrListingNotFound{ListingID: listingID}
	}
	if !l.Status.CanTransitionTo(types.StatusQueued) {
		return nil, &StateTransitionError{ListingID: l.ID, From: l.Status, To: types.StatusQueued}
	}

	if window == "" {
		window = "sunday_surge"
	}
	entry := &types.QueueEntry{
		ListingID:       listingID,
		Priority:        priority,
		ScheduledWindow: window,
		Status:          types.QueuePending,
	}
	if err := sess.InsertQueueEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert queue entry: %w", err)
	}

	l.Status = types.StatusQueued
	if err := sess.UpdateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
	}
	return entry, nil
}

// ReleaseBatch publishes up to batch_size pending entries, highest priority
// first. With dryRun it returns the selection without mutating anything.
// A gateway failure marks the entry failed and the batch continues.
func (sq *SmartQueue) ReleaseBatch(ctx context.Context, sess store.Session, dryRun bool) ([]*types.QueueEntry, error) {
	entries, err := sess.PendingQueueEntries(ctx, sq.batchSize)
	if err != nil {
		return nil, fmt.Errorf("query pending entries: %w", err)
	}
	if dryRun {
		return entries, nil
	}

	batchID := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	now := sq.now().UTC()
	var released []*types.QueueEntry

	for _, entry := range entries {
		l, err := sess.GetListing(ctx, entry.ListingID)
		if err != nil {
			return nil, err
		}
		if l == nil {
			entry.Status = types.QueueFailed
			entry.ErrorMessage = "listing not found"
			if err := sess.UpdateQueueEntry(ctx, entry); err != nil {
				return nil, err
			}
			continue
		}

		offer, err := sq.gw.CreateOffer(ctx, gateway.OfferRequest{
			SKU:           l.SKU,
			MarketplaceID: "EBAY_US",
			Format:        "FIXED_PRICE",
			Price:         l.ListPrice,
			Currency:      "USD",
		})
		if err != nil {
			sq.failEntry(ctx, sess, entry, err)
			continue
		}
		published, err := sq.gw.PublishOffer(ctx, offer.OfferID)
		if err != nil {
			sq.failEntry(ctx, sess, entry, err)
			continue
		}

		l.EbayItemID = published.ListingID
		l.OfferID = offer.OfferID
		l.Status = types.StatusActive
		l.ListedAt = now
		l.DaysActive = 0
		if err := sess.UpdateListing(ctx, l); err != nil {
			return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
		}

		entry.Status = types.QueueReleased
		entry.ReleasedAt = now
		entry.BatchID = batchID
		if err := sess.UpdateQueueEntry(ctx, entry); err != nil {
			return nil, err
		}
		released = append(released, entry)
	}

	sq.logger.Info("batch released",
		"batch_id", batchID,
		"selected", len(entries),
		"released", len(released),
	)
	return released, nil
}

func (sq *SmartQueue) failEntry(ctx context.Context, sess store.Session, entry *types.QueueEntry, cause error) {
	entry.Status = types.QueueFailed
	entry.ErrorMessage = cause.Error()
	if err := sess.UpdateQueueEntry(ctx, entry); err != nil {
		sq.logger.Error("failed to mark queue entry failed", "entry_id", entry.ID, "error", err)
	}
}

// IsSurgeWindowActive reports whether t, converted to the surge timezone,
// falls on the configured weekday with hour in [start, end).
func (sq *SmartQueue) IsSurgeWindowActive(t time.Time) bool {
	local := t.In(sq.loc)
	return local.Weekday() == sq.surgeDay &&
		local.Hour() >= sq.surgeFrom &&
		local.Hour() < sq.surgeTo
}

// Status summarizes the queue for the dashboard.
func (sq *SmartQueue) Status(ctx context.Context, sess store.Session) (*types.QueueStatusSummary, error) {
	counts, err := sess.QueueCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue counts: %w", err)
	}
	now := sq.now()
	midnight := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	releasedToday, err := sess.ReleasedSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("released today: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return &types.QueueStatusSummary{
		Pending:           counts[types.QueuePending],
		ReleasedToday:     releasedToday,
		Failed:            counts[types.QueueFailed],
		Total:             total,
		SurgeWindowActive: sq.IsSurgeWindowActive(now),
	}, nil
}
