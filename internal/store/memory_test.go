package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flipflow/pkg/types"
)

func newListing(sku string) *types.Listing {
	return &types.Listing{
		SKU:           sku,
		Title:         "Test " + sku,
		Status:        types.StatusDraft,
		PurchasePrice: decimal.NewFromInt(10),
		ListPrice:     decimal.NewFromInt(30),
	}
}

func TestInsertAssignsIDAndTimestamps(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	sess, _ := m.Begin(ctx)
	l := newListing("SKU-1")
	if err := sess.InsertListing(ctx, l); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if l.ID == 0 {
		t.Error("insert should assign an id")
	}
	if l.CreatedAt.IsZero() || l.UpdatedAt.IsZero() {
		t.Error("insert should stamp created/updated")
	}
	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestSKUUniqueness(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	sess, _ := m.Begin(ctx)
	if err := sess.InsertListing(ctx, newListing("DUP")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := sess.InsertListing(ctx, newListing("DUP"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("second insert err = %v, want ErrDuplicate", err)
	}
	sess.Commit(ctx)
}

func TestItemIDUniqueness(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	sess, _ := m.Begin(ctx)
	a := newListing("A")
	a.EbayItemID = "ITEM-1"
	if err := sess.InsertListing(ctx, a); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	b := newListing("B")
	b.EbayItemID = "ITEM-1"
	if err := sess.InsertListing(ctx, b); !errors.Is(err, ErrDuplicate) {
		t.Errorf("insert b err = %v, want ErrDuplicate", err)
	}
	// Empty item ids never collide.
	c := newListing("C")
	d := newListing("D")
	if err := sess.InsertListing(ctx, c); err != nil {
		t.Fatalf("insert c: %v", err)
	}
	if err := sess.InsertListing(ctx, d); err != nil {
		t.Errorf("insert d: %v", err)
	}
	sess.Commit(ctx)
}

func TestRollbackRestoresState(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	sess, _ := m.Begin(ctx)
	l := newListing("KEEP")
	if err := sess.InsertListing(ctx, l); err != nil {
		t.Fatalf("insert: %v", err)
	}
	sess.Commit(ctx)

	sess, _ = m.Begin(ctx)
	got, _ := sess.GetListing(ctx, l.ID)
	got.Status = types.StatusActive
	if err := sess.UpdateListing(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := sess.InsertListing(ctx, newListing("GONE")); err != nil {
		t.Fatalf("insert gone: %v", err)
	}
	sess.Rollback(ctx)

	sess, _ = m.Begin(ctx)
	defer sess.Rollback(ctx)
	restored, _ := sess.GetListing(ctx, l.ID)
	if restored.Status != types.StatusDraft {
		t.Errorf("status = %s, want draft after rollback", restored.Status)
	}
	if gone, _ := sess.GetListingBySKU(ctx, "GONE"); gone != nil {
		t.Error("rolled-back insert should not be visible")
	}
}

func TestGetReturnsCopies(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	sess, _ := m.Begin(ctx)
	l := newListing("COPY")
	l.PhotoURLs = []string{"a", "b"}
	sess.InsertListing(ctx, l)

	got, _ := sess.GetListing(ctx, l.ID)
	got.PhotoURLs[0] = "mutated"
	got.Title = "mutated"

	again, _ := sess.GetListing(ctx, l.ID)
	if again.Title != "Test COPY" || again.PhotoURLs[0] != "a" {
		t.Error("mutating a fetched listing should not affect the store")
	}
	sess.Commit(ctx)
}

func TestPendingQueueOrdering(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	sess, _ := m.Begin(ctx)
	lo := &types.QueueEntry{ListingID: 1, Priority: 0, Status: types.QueuePending}
	hi := &types.QueueEntry{ListingID: 2, Priority: 5, Status: types.QueuePending}
	mid := &types.QueueEntry{ListingID: 3, Priority: 3, Status: types.QueuePending}
	done := &types.QueueEntry{ListingID: 4, Priority: 9, Status: types.QueueReleased}
	for _, e := range []*types.QueueEntry{lo, hi, mid, done} {
		if err := sess.InsertQueueEntry(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	entries, _ := sess.PendingQueueEntries(ctx, 2)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].ListingID != 2 || entries[1].ListingID != 3 {
		t.Errorf("order = %d, %d; want 2, 3", entries[0].ListingID, entries[1].ListingID)
	}
	sess.Commit(ctx)
}

func TestOfferSentSince(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	sess, _ := m.Begin(ctx)
	rec := &types.OfferRecord{
		ListingID: 7, BuyerID: "BUYER-1",
		OfferPrice: decimal.NewFromInt(45),
		SentAt:     now.Add(-2 * time.Hour),
		Status:     types.OfferSent,
	}
	sess.InsertOfferRecord(ctx, rec)

	sent, _ := sess.OfferSentSince(ctx, 7, "BUYER-1", now.Add(-24*time.Hour))
	if !sent {
		t.Error("offer within window should be found")
	}
	sent, _ = sess.OfferSentSince(ctx, 7, "BUYER-1", now.Add(-time.Hour))
	if sent {
		t.Error("offer outside window should not be found")
	}
	sent, _ = sess.OfferSentSince(ctx, 7, "BUYER-2", now.Add(-24*time.Hour))
	if sent {
		t.Error("cooldown is per buyer")
	}
	sess.Commit(ctx)
}

func TestActiveAndExpiredCampaigns(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	sess, _ := m.Begin(ctx)
	live := &types.Campaign{ListingID: 1, Status: types.CampaignActive, EndsAt: now.Add(24 * time.Hour)}
	expired := &types.Campaign{ListingID: 2, Status: types.CampaignActive, EndsAt: now.Add(-time.Hour)}
	ended := &types.Campaign{ListingID: 3, Status: types.CampaignEnded, EndsAt: now.Add(-time.Hour)}
	for _, c := range []*types.Campaign{live, expired, ended} {
		sess.InsertCampaign(ctx, c)
	}

	got, _ := sess.ActiveCampaign(ctx, 1)
	if got == nil || got.ID != live.ID {
		t.Errorf("ActiveCampaign(1) = %v", got)
	}
	if got, _ := sess.ActiveCampaign(ctx, 3); got != nil {
		t.Error("ended campaign should not be active")
	}

	exp, _ := sess.ExpiredCampaigns(ctx, now)
	if len(exp) != 1 || exp[0].ListingID != 2 {
		t.Errorf("expired = %v, want listing 2 only", exp)
	}
	sess.Commit(ctx)
}
