package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// StorePulse forces the marketplace to re-index the whole store by toggling
// the handling time on the shared fulfillment policy. Changing handling time
// recomputes delivery estimates for every listing, which refreshes their
// search placement. The scheduler runs the toggle monthly and the revert
// 24 hours later.
type StorePulse struct {
	gw       gateway.Gateway
	policyID string
	logger   *slog.Logger
}

// NewStorePulse builds the policy over the configured fulfillment policy id.
func NewStorePulse(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) *StorePulse {
	return &StorePulse{
		gw:       gw,
		policyID: cfg.Ebay.FulfillmentPolicyID,
		logger:   logger.With("component", "store-pulse"),
	}
}

// ToggleHandlingTime sets the fulfillment policy's handling time to
// targetDays, covering every active listing that carries a marketplace item
// id. The report counts those listings as updated on success and as errors
// on failure.
func (sp *StorePulse) ToggleHandlingTime(ctx context.Context, sess store.Session, targetDays int) (*types.PulseReport, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}

	eligible := 0
	for _, l := range active {
		if l.EbayItemID != "" {
			eligible++
		}
	}
	report := &types.PulseReport{
		TotalActive:        len(active),
		TargetHandlingDays: targetDays,
	}
	if eligible == 0 {
		return report, nil
	}

	if err := sp.gw.UpdateHandlingTime(ctx, sp.policyID, targetDays); err != nil {
		if gateway.IsAuth(err) {
			return nil, err
		}
		report.Errors = eligible
		sp.logger.Error("handling time update failed", "target_days", targetDays, "error", err)
		return report, nil
	}

	report.Updated = eligible
	sp.logger.Info("store pulse applied", "target_days", targetDays, "listings", eligible)
	return report, nil
}

// RevertHandlingTime returns the handling time to the 1-day baseline.
func (sp *StorePulse) RevertHandlingTime(ctx context.Context, sess store.Session) (*types.PulseReport, error) {
	return sp.ToggleHandlingTime(ctx, sess, 1)
}
