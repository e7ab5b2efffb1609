// Package growth implements the demand-side policies: Kickstarter (promoted
// listings for new items), OfferSniper (watcher offers and inbound offer
// triage), and Purgatory (liquidation pricing for chronic zombies).
package growth

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

// Kickstarter auto-creates a short promoted-listings campaign for newly
// active listings. New items have no sales history to rank on; a couple of
// weeks of ad spend buys that history.
type Kickstarter struct {
	gw           gateway.Gateway
	adRate       float64
	durationDays int
	logger       *slog.Logger
	now          func() time.Time
}

// NewKickstarter builds the policy from the configured ad rate and duration.
func NewKickstarter(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) *Kickstarter {
	return &Kickstarter{
		gw:           gw,
		adRate:       cfg.Promote.AdRate,
		durationDays: cfg.Promote.DurationDays,
		logger:       logger.With("component", "kickstarter"),
		now:          time.Now,
	}
}

// PromoteNewListing creates the campaign for one newly active listing.
// The active-campaign check is re-read inside the caller's session, so a
// duplicate attempt within the same window is refused with a structured
// failure rather than a second campaign.
func (k *Kickstarter) PromoteNewListing(ctx context.Context, sess store.Session, listingID int64) (*types.KickstartResult, error) {
	l, err := sess.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return &types.KickstartResult{Success: false, Error: "listing not found"}, nil
	}
	if l.Status != types.StatusActive {
		return &types.KickstartResult{
			Success: false,
			Error:   fmt.Sprintf("listing is %s, not active", l.Status),
		}, nil
	}

	existing, err := sess.ActiveCampaign(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &types.KickstartResult{Success: false, Error: "active campaign already exists"}, nil
	}

	now := k.now().UTC()
	endsAt := now.AddDate(0, 0, k.durationDays)

	info, err := k.gw.CreateCampaign(ctx, gateway.CampaignRequest{
		Name:      "Kickstart-" + l.SKU,
		AdRate:    k.adRate,
		ListingID: l.EbayItemID,
	})
	if err != nil {
		if gateway.IsAuth(err) {
			return nil, err
		}
		k.logger.Error("campaign create failed", "listing_id", listingID, "error", err)
		return &types.KickstartResult{Success: false, Error: fmt.Sprintf("gateway error: %v", err)}, nil
	}

	campaign := &types.Campaign{
		ListingID:      listingID,
		EbayCampaignID: info.CampaignID,
		Type:           types.CampaignKickstarter,
		AdRatePercent:  k.adRate,
		StartedAt:      now,
		EndsAt:         endsAt,
		Status:         types.CampaignActive,
	}
	if err := sess.InsertCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	l.AdRatePercent = k.adRate
	if err := sess.UpdateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
	}

	k.logger.Info("kickstarter campaign created",
		"listing_id", listingID, "campaign_id", info.CampaignID, "ad_rate", k.adRate)
	return &types.KickstartResult{
		Success:        true,
		CampaignID:     campaign.ID,
		EbayCampaignID: info.CampaignID,
		AdRate:         k.adRate,
		DurationDays:   k.durationDays,
		EndsAt:         endsAt,
	}, nil
}

// CleanupExpired ends every campaign past its end date, resets the ad rate
// on the listing, and flips the row to ended. Individual gateway failures
// are counted and the sweep continues.
func (k *Kickstarter) CleanupExpired(ctx context.Context, sess store.Session) (*types.CampaignCleanupReport, error) {
	now := k.now().UTC()
	expired, err := sess.ExpiredCampaigns(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("query expired campaigns: %w", err)
	}

	report := &types.CampaignCleanupReport{ExpiredFound: len(expired)}
	for _, campaign := range expired {
		if campaign.EbayCampaignID != "" {
			if err := k.gw.EndCampaign(ctx, campaign.EbayCampaignID); err != nil {
				if gateway.IsAuth(err) {
					return nil, err
				}
				report.Errors++
				continue
			}
		}

		campaign.Status = types.CampaignEnded
		if err := sess.UpdateCampaign(ctx, campaign); err != nil {
			return nil, fmt.Errorf("update campaign %d: %w", campaign.ID, err)
		}

		l, err := sess.GetListing(ctx, campaign.ListingID)
		if err != nil {
			return nil, err
		}
		if l != nil {
			l.AdRatePercent = 0
			if err := sess.UpdateListing(ctx, l); err != nil {
				return nil, fmt.Errorf("reset ad rate for listing %d: %w", l.ID, err)
			}
		}
		report.Ended++
	}

	k.logger.Info("kickstarter cleanup complete",
		"expired", report.ExpiredFound, "ended", report.Ended, "errors", report.Errors)
	return report, nil
}
