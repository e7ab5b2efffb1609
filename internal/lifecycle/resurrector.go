package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

var resurrectionSuffixRe = regexp.MustCompile(`_R\d+$`)

// Resurrector runs the kill-and-clone pipeline for a single listing:
// withdraw the stale offer, wait out the marketplace cooldown, rotate the
// photos, create a fresh inventory item under a resurrection SKU, publish a
// new offer, and rewrite the listing around the new identity.
//
// The withdraw strictly precedes the create/publish, separated by the
// cooldown, and a gateway failure at any step aborts the pipeline without
// reversing the withdraw.
type Resurrector struct {
	gw       gateway.Gateway
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewResurrector builds the pipeline from the configured cooldown.
func NewResurrector(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) *Resurrector {
	return &Resurrector{
		gw:       gw,
		cooldown: time.Duration(cfg.Zombie.ResurrectionDelaySeconds) * time.Second,
		logger:   logger.With("component", "resurrector"),
		now:      time.Now,
	}
}

// ResurrectionSKU derives the next-cycle SKU: the trailing _R<n> suffix is
// stripped and _R<cycle> appended, so NIKE-001 → NIKE-001_R1 → NIKE-001_R2.
func ResurrectionSKU(sku string, cycle int) string {
	base := resurrectionSuffixRe.ReplaceAllString(sku, "")
	return fmt.Sprintf("%s_R%d", base, cycle)
}

// Resurrect executes the full pipeline. On failure it returns a structured
// result with Success=false; listing fields already committed by earlier
// steps stay as they are (the withdraw is not reversed).
func (rs *Resurrector) Resurrect(ctx context.Context, sess store.Session, listingID int64) (*types.ResurrectionResult, error) {
	l, err := sess.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return &types.ResurrectionResult{
			ListingID: listingID,
			Success:   false,
			Error:     fmt.Sprintf("listing %d not found", listingID),
		}, nil
	}

	oldItemID := l.EbayItemID
	cycle := l.ZombieCycleCount + 1
	newSKU := ResurrectionSKU(l.SKU, cycle)
	daysAtDetection := l.DaysActive
	viewsAtDetection := l.TotalViews

	rs.logger.Info("resurrecting listing", "listing_id", l.ID, "sku", l.SKU, "cycle", cycle)

	// Step 1: withdraw the stale offer so the marketplace ends the listing.
	if l.OfferID != "" {
		if err := rs.gw.WithdrawOffer(ctx, l.OfferID); err != nil {
			return rs.fail(l, cycle, oldItemID, fmt.Sprintf("withdraw offer: %v", err)), nil
		}
	}

	// Step 2: the marketplace needs time to clear the listing's active flag.
	if rs.cooldown > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rs.cooldown):
		}
	}

	// Step 3: lead with a different main photo.
	rotated := rotatePhotos(l.PhotoURLs)

	// Step 4: fresh inventory item under the resurrection SKU.
	title := l.TitleSanitized
	if title == "" {
		title = l.Title
	}
	description := l.DescriptionMobile
	if description == "" {
		description = l.Description
	}
	item := gateway.Item{
		SKU:         newSKU,
		Title:       title,
		Description: description,
		Brand:       l.Brand,
		Model:       l.Model,
		CategoryID:  l.CategoryID,
		ConditionID: l.ConditionID,
		PhotoURLs:   rotated,
		Price:       l.ListPrice,
		Quantity:    1,
	}
	if err := rs.gw.CreateInventoryItem(ctx, newSKU, item); err != nil {
		return rs.fail(l, cycle, oldItemID, fmt.Sprintf("create inventory item: %v", err)), nil
	}

	// Step 5: create and publish the new fixed-price offer.
	offer, err := rs.gw.CreateOffer(ctx, gateway.OfferRequest{
		SKU:           newSKU,
		MarketplaceID: "EBAY_US",
		Format:        "FIXED_PRICE",
		Price:         l.ListPrice,
		Currency:      "USD",
	})
	if err != nil {
		return rs.fail(l, cycle, oldItemID, fmt.Sprintf("create offer: %v", err)), nil
	}
	published, err := rs.gw.PublishOffer(ctx, offer.OfferID)
	if err != nil {
		return rs.fail(l, cycle, oldItemID, fmt.Sprintf("publish offer: %v", err)), nil
	}

	// Step 6: rewrite the listing around its new identity.
	now := rs.now().UTC()
	l.SKU = newSKU
	l.EbayItemID = published.ListingID
	l.OfferID = offer.OfferID
	l.Status = types.StatusActive
	l.ZombieCycleCount = cycle
	l.DaysActive = 0
	l.TotalViews = 0
	l.Watchers = 0
	l.PhotoURLs = rotated
	l.MainPhotoIndex = 0
	l.ListedAt = now
	if err := sess.UpdateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
	}

	// Step 7: audit trail.
	record := &types.ZombieRecord{
		ListingID:             l.ID,
		DetectedAt:            now,
		DaysActiveAtDetection: daysAtDetection,
		ViewsAtDetection:      viewsAtDetection,
		Action:                types.ZombieResurrected,
		ResurrectedAt:         now,
		OldItemID:             oldItemID,
		NewItemID:             published.ListingID,
		CycleNumber:           cycle,
	}
	if err := sess.InsertZombieRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("insert zombie record: %w", err)
	}

	return &types.ResurrectionResult{
		ListingID:     l.ID,
		SKU:           newSKU,
		OldItemID:     oldItemID,
		NewItemID:     published.ListingID,
		NewOfferID:    offer.OfferID,
		CycleNumber:   cycle,
		Success:       true,
		ResurrectedAt: now,
	}, nil
}

func (rs *Resurrector) fail(l *types.Listing, cycle int, oldItemID, msg string) *types.ResurrectionResult {
	rs.logger.Error("resurrection failed", "listing_id", l.ID, "sku", l.SKU, "error", msg)
	return &types.ResurrectionResult{
		ListingID:   l.ID,
		SKU:         l.SKU,
		OldItemID:   oldItemID,
		CycleNumber: cycle,
		Success:     false,
		Error:       msg,
	}
}
