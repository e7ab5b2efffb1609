package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// ZombieKiller detects stale listings that search no longer surfaces.
//
// A listing is a zombie when days_active ≥ the days threshold AND views <
// the views threshold. A zombie that has already been resurrected max_cycles
// times is a purgatory candidate. Detection is read-only; FlagZombie applies
// the state change and writes the audit record.
type ZombieKiller struct {
	gw             gateway.Gateway
	daysThreshold  int
	viewsThreshold int
	maxCycles      int
	logger         *slog.Logger
	now            func() time.Time
}

// NewZombieKiller builds the detector from the configured thresholds.
func NewZombieKiller(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) *ZombieKiller {
	return &ZombieKiller{
		gw:             gw,
		daysThreshold:  cfg.Zombie.DaysThreshold,
		viewsThreshold: cfg.Zombie.ViewsThreshold,
		maxCycles:      cfg.Zombie.MaxCycles,
		logger:         logger.With("component", "zombie-killer"),
		now:            time.Now,
	}
}

// IsZombie applies the detection predicate to one listing's age and views.
func (zk *ZombieKiller) IsZombie(daysActive, views int) bool {
	return daysActive >= zk.daysThreshold && views < zk.viewsThreshold
}

// Scan enumerates active listings, refreshes their view counts from a
// batched traffic report, and returns the zombies found. View counts are
// synced back onto the listing rows; a concurrent snapshot writer would race
// this sync last-writer-wins, which is tolerable because every scan
// re-derives views from the traffic report.
func (zk *ZombieKiller) Scan(ctx context.Context, sess store.Session) (*types.ZombieScanResult, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}
	if len(active) == 0 {
		return &types.ZombieScanResult{}, nil
	}

	var itemIDs []string
	for _, l := range active {
		if l.EbayItemID != "" {
			itemIDs = append(itemIDs, l.EbayItemID)
		}
	}

	traffic := make(map[string]int)
	if len(itemIDs) > 0 {
		records, err := zk.gw.GetTrafficReport(ctx, itemIDs, "LAST_90_DAYS", []string{"views"})
		if err != nil {
			return nil, fmt.Errorf("traffic report: %w", err)
		}
		for _, rec := range records {
			traffic[rec.ListingID] = rec.Views
		}
	}

	result := &types.ZombieScanResult{TotalScanned: len(active)}
	for _, l := range active {
		views := l.TotalViews
		if v, ok := traffic[l.EbayItemID]; ok && l.EbayItemID != "" {
			views = v
			if views != l.TotalViews {
				l.TotalViews = views
				if err := sess.UpdateListing(ctx, l); err != nil {
					return nil, fmt.Errorf("sync views for listing %d: %w", l.ID, err)
				}
			}
		}

		if !zk.IsZombie(l.DaysActive, views) {
			continue
		}

		shouldPurgatory := l.ZombieCycleCount >= zk.maxCycles
		if shouldPurgatory {
			result.PurgatoryCandidates++
		}
		result.Zombies = append(result.Zombies, types.ZombieReport{
			ListingID:        l.ID,
			SKU:              l.SKU,
			Title:            l.Title,
			EbayItemID:       l.EbayItemID,
			DaysActive:       l.DaysActive,
			TotalViews:       views,
			Watchers:         l.Watchers,
			ZombieCycleCount: l.ZombieCycleCount,
			ShouldPurgatory:  shouldPurgatory,
			CurrentPrice:     l.EffectivePrice(),
		})
	}
	result.ZombiesFound = len(result.Zombies)

	zk.logger.Info("zombie scan complete",
		"scanned", result.TotalScanned,
		"zombies", result.ZombiesFound,
		"purgatory_candidates", result.PurgatoryCandidates,
	)
	return result, nil
}

// FlagZombie transitions a listing to zombie status and appends the audit
// record. Listings past the cycle limit go straight to purgatory status with
// action "purgatored".
func (zk *ZombieKiller) FlagZombie(ctx context.Context, sess store.Session, listingID int64) (*types.ZombieRecord, error) {
	l, err := sess.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, &ErrListingNotFound{ListingID: listingID}
	}

	next := types.StatusZombie
	action := types.ZombieFlagged
	if l.ZombieCycleCount >= zk.maxCycles {
		next = types.StatusPurgatory
		action = types.ZombiePurgatored
	}
	// A listing past the cycle limit passes through zombie on its way to
	// purgatory, so an active listing qualifies when both legs are legal.
	legal := l.Status.CanTransitionTo(next)
	if !legal && next == types.StatusPurgatory {
		legal = l.Status.CanTransitionTo(types.StatusZombie) && types.StatusZombie.CanTransitionTo(next)
	}
	if !legal {
		return nil, &StateTransitionError{ListingID: l.ID, From: l.Status, To: next}
	}

	l.Status = next
	now := zk.now().UTC()
	if next == types.StatusPurgatory {
		l.EnteredPurgatoryAt = now
	}
	if err := sess.UpdateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
	}

	record := &types.ZombieRecord{
		ListingID:             l.ID,
		DetectedAt:            now,
		DaysActiveAtDetection: l.DaysActive,
		ViewsAtDetection:      l.TotalViews,
		Action:                action,
		CycleNumber:           l.ZombieCycleCount + 1,
	}
	if err := sess.InsertZombieRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("insert zombie record: %w", err)
	}

	zk.logger.Info("flagged zombie", "listing_id", l.ID, "sku", l.SKU, "action", action)
	return record, nil
}
