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

// AutoRelister preventively relists low-traffic active listings before they
// decay into zombies. It reuses the Resurrector pipeline but restores the
// original zombie cycle count afterward: a preventive relist is maintenance,
// not a decay event.
type AutoRelister struct {
	cadenceDays    int
	viewsThreshold int
	resurrector    *Resurrector
	logger         *slog.Logger
	now            func() time.Time
}

// NewAutoRelister builds the relister over a fresh Resurrector.
func NewAutoRelister(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) *AutoRelister {
	return &AutoRelister{
		cadenceDays:    cfg.Relist.CadenceDays,
		viewsThreshold: cfg.Relist.ViewsThreshold,
		resurrector:    NewResurrector(gw, cfg, logger),
		logger:         logger.With("component", "auto-relister"),
		now:            time.Now,
	}
}

// isDue reports whether a listing has aged past the cadence with too few
// views and still has an offer to recycle.
func (ar *AutoRelister) isDue(l *types.Listing) bool {
	return l.Status == types.StatusActive &&
		l.DaysActive >= ar.cadenceDays &&
		l.TotalViews < ar.viewsThreshold &&
		l.OfferID != ""
}

// ScanForRelists returns the candidates without touching anything.
func (ar *AutoRelister) ScanForRelists(ctx context.Context, sess store.Session) ([]types.RelistCandidate, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}
	var candidates []types.RelistCandidate
	for _, l := range active {
		if ar.isDue(l) {
			candidates = append(candidates, types.RelistCandidate{
				ListingID:    l.ID,
				SKU:          l.SKU,
				Title:        l.Title,
				DaysActive:   l.DaysActive,
				TotalViews:   l.TotalViews,
				CurrentPrice: l.EffectivePrice(),
			})
		}
	}
	return candidates, nil
}

// AutoRelist runs the pipeline for every due listing. Per-listing failures
// are counted, not propagated.
func (ar *AutoRelister) AutoRelist(ctx context.Context, sess store.Session) (*types.RelistReport, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}

	report := &types.RelistReport{TotalScanned: len(active)}
	now := ar.now().UTC()

	for _, l := range active {
		if !ar.isDue(l) {
			report.Skipped++
			continue
		}

		oldItemID := l.EbayItemID
		oldCycle := l.ZombieCycleCount
		daysAtDetection := l.DaysActive
		viewsAtDetection := l.TotalViews

		res, err := ar.resurrector.Resurrect(ctx, sess, l.ID)
		if err != nil {
			return nil, err
		}
		if !res.Success {
			report.Errors++
			continue
		}

		// The resurrection bumped the cycle count; put it back.
		relisted, err := sess.GetListing(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		relisted.ZombieCycleCount = oldCycle
		if err := sess.UpdateListing(ctx, relisted); err != nil {
			return nil, fmt.Errorf("restore cycle count for listing %d: %w", l.ID, err)
		}

		record := &types.ZombieRecord{
			ListingID:             l.ID,
			DetectedAt:            now,
			DaysActiveAtDetection: daysAtDetection,
			ViewsAtDetection:      viewsAtDetection,
			Action:                types.ZombiePreventiveRelist,
			ResurrectedAt:         now,
			OldItemID:             oldItemID,
			NewItemID:             res.NewItemID,
			CycleNumber:           0,
		}
		if err := sess.InsertZombieRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("insert relist record: %w", err)
		}

		report.Relisted++
		report.Details = append(report.Details, types.RelistDetail{
			ListingID: l.ID,
			SKU:       l.SKU,
			OldItemID: oldItemID,
			NewItemID: res.NewItemID,
		})
	}

	ar.logger.Info("auto relist complete",
		"scanned", report.TotalScanned,
		"relisted", report.Relisted,
		"skipped", report.Skipped,
		"errors", report.Errors,
	)
	return report, nil
}
