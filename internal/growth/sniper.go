package growth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// offerCooldown is how long a (listing, buyer) pair is blocked after an
// outbound offer, measured against the offer_records audit table. The table
// is the source of truth; nothing is cached on the listing row.
const offerCooldown = 24 * time.Hour

// OfferSniper converts watchers into buyers with age-tiered private offers,
// and triages incoming buyer offers with accept/counter/reject thresholds.
type OfferSniper struct {
	gw                  gateway.Gateway
	tiers               types.StepLadder
	autoAcceptThreshold float64
	counterThreshold    float64
	counterPercent      float64
	logger              *slog.Logger
	now                 func() time.Time
}

// NewOfferSniper builds the sniper from the configured tier ladder and
// inbound thresholds.
func NewOfferSniper(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) (*OfferSniper, error) {
	tiers, err := cfg.OfferTiers()
	if err != nil {
		return nil, fmt.Errorf("offer tiers: %w", err)
	}
	return &OfferSniper{
		gw:                  gw,
		tiers:               tiers,
		autoAcceptThreshold: cfg.Offers.AutoAcceptThreshold,
		counterThreshold:    cfg.Offers.CounterThreshold,
		counterPercent:      cfg.Offers.CounterPercent,
		logger:              logger.With("component", "offer-sniper"),
		now:                 time.Now,
	}, nil
}

// DiscountPercent returns the tier discount for a listing's age.
func (sn *OfferSniper) DiscountPercent(daysActive int) float64 {
	_, pct, ok := sn.tiers.Match(daysActive)
	if !ok {
		if len(sn.tiers) > 0 {
			return sn.tiers[0].Percent
		}
		return 10.0
	}
	return pct
}

// OfferPrice applies the age-tiered discount to a price, rounded to cents.
func (sn *OfferSniper) OfferPrice(price decimal.Decimal, daysActive int) decimal.Decimal {
	pct := sn.DiscountPercent(daysActive)
	return price.Mul(decimal.NewFromFloat(1 - pct/100)).RoundBank(2)
}

// ScanAndSnipe lists watchers for every active listing and sends a tiered
// offer to each watcher not in cooldown. Every send appends an OfferRecord;
// per-listing and per-watcher gateway failures are counted and the scan
// continues.
func (sn *OfferSniper) ScanAndSnipe(ctx context.Context, sess store.Session) (*types.OfferScanReport, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}

	report := &types.OfferScanReport{}
	now := sn.now().UTC()

	for _, l := range active {
		if l.EbayItemID == "" {
			continue
		}
		report.ListingsChecked++

		watchers, err := sn.gw.GetWatchers(ctx, l.EbayItemID)
		if err != nil {
			if gateway.IsAuth(err) {
				return nil, err
			}
			report.Errors++
			sn.logger.Error("get watchers failed", "listing_id", l.ID, "error", err)
			continue
		}
		if len(watchers) == 0 {
			continue
		}

		price := l.EffectivePrice()
		discountPct := sn.DiscountPercent(l.DaysActive)
		offerPrice := sn.OfferPrice(price, l.DaysActive)

		for _, w := range watchers {
			if w.BuyerID == "" {
				continue
			}

			sent, err := sess.OfferSentSince(ctx, l.ID, w.BuyerID, now.Add(-offerCooldown))
			if err != nil {
				return nil, fmt.Errorf("cooldown check: %w", err)
			}
			if sent {
				continue
			}

			err = sn.gw.SendOfferToBuyer(ctx, l.EbayItemID, w.BuyerID, gateway.BuyerOffer{
				Price:    offerPrice,
				Currency: "USD",
				Message:  fmt.Sprintf("Special offer: $%s (%.0f%% off)!", offerPrice, discountPct),
			})
			if err != nil {
				if gateway.IsAuth(err) {
					return nil, err
				}
				report.Errors++
				sn.logger.Error("send offer failed",
					"listing_id", l.ID, "buyer_id", w.BuyerID, "error", err)
				continue
			}

			record := &types.OfferRecord{
				ListingID:       l.ID,
				BuyerID:         w.BuyerID,
				OfferPrice:      offerPrice,
				DiscountPercent: discountPct,
				SentAt:          now,
				Status:          types.OfferSent,
			}
			if err := sess.InsertOfferRecord(ctx, record); err != nil {
				return nil, fmt.Errorf("insert offer record: %w", err)
			}

			report.OffersSent++
			report.Details = append(report.Details, types.OfferDetail{
				ListingID:       l.ID,
				SKU:             l.SKU,
				BuyerID:         w.BuyerID,
				OriginalPrice:   price,
				OfferPrice:      offerPrice,
				DiscountPercent: discountPct,
				DaysActive:      l.DaysActive,
			})
		}
	}

	sn.logger.Info("offer scan complete",
		"checked", report.ListingsChecked,
		"sent", report.OffersSent,
		"errors", report.Errors,
	)
	return report, nil
}

// HandleIncomingOffer triages one inbound buyer offer:
//
//	ratio ≥ auto_accept_threshold → accept
//	ratio ≥ counter_threshold    → counter at price · counter_percent
//	otherwise                    → reject
//
// The decision is issued to the gateway and recorded: accepted for accepts,
// sent for counters (pending the buyer's response).
func (sn *OfferSniper) HandleIncomingOffer(ctx context.Context, sess store.Session, listingID int64, buyerID, offerID string, amount decimal.Decimal) (*types.InboundOfferResult, error) {
	l, err := sess.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return &types.InboundOfferResult{ListingID: listingID, Success: false, Error: "listing not found"}, nil
	}

	price := l.EffectivePrice()
	if !price.IsPositive() {
		return &types.InboundOfferResult{ListingID: listingID, Success: false, Error: "invalid listing price"}, nil
	}

	ratio, _ := amount.Div(price).Float64()
	var action types.OfferAction
	var counter decimal.Decimal
	switch {
	case ratio >= sn.autoAcceptThreshold:
		action = types.ActionAccept
	case ratio >= sn.counterThreshold:
		action = types.ActionCounter
		counter = price.Mul(decimal.NewFromFloat(sn.counterPercent)).RoundBank(2)
	default:
		action = types.ActionReject
	}

	if err := sn.gw.RespondToOffer(ctx, l.EbayItemID, offerID, action, counter); err != nil {
		if gateway.IsAuth(err) {
			return nil, err
		}
		return &types.InboundOfferResult{
			ListingID: listingID,
			Success:   false,
			Error:     fmt.Sprintf("gateway error: %v", err),
		}, nil
	}

	status := types.OfferSent
	if action == types.ActionAccept {
		status = types.OfferAccepted
	}
	record := &types.OfferRecord{
		ListingID:       l.ID,
		BuyerID:         buyerID,
		OfferPrice:      amount,
		DiscountPercent: (1 - ratio) * 100,
		SentAt:          sn.now().UTC(),
		Status:          status,
	}
	if err := sess.InsertOfferRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("insert offer record: %w", err)
	}

	sn.logger.Info("inbound offer handled",
		"listing_id", listingID, "buyer_id", buyerID, "action", action, "ratio", ratio)
	return &types.InboundOfferResult{
		ListingID:     listingID,
		Action:        action,
		OfferAmount:   amount,
		CurrentPrice:  price,
		Ratio:         ratio,
		CounterAmount: counter,
		Success:       true,
	}, nil
}
