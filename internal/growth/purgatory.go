package growth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"flipflow/internal/config"
	"flipflow/internal/gatekeeper"
	"flipflow/internal/gateway"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// donateAfterDays is how long a purgatory listing sits at the markdown
// price before the scan suggests cutting the loss entirely.
const donateAfterDays = 7

// Purgatory liquidates chronic zombies: listings that survived the maximum
// number of resurrection cycles get priced below break-even and, if still
// unsold a week later, flagged for donation.
type Purgatory struct {
	gw          gateway.Gateway
	salePercent float64
	profit      *gatekeeper.ProfitCalc
	logger      *slog.Logger
	now         func() time.Time
}

// NewPurgatory builds the policy from the configured sale percent.
func NewPurgatory(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) *Purgatory {
	return &Purgatory{
		gw:          gw,
		salePercent: cfg.PurgatorySalePercent,
		profit:      gatekeeper.NewProfitCalc(cfg),
		logger:      logger.With("component", "purgatory"),
		now:         time.Now,
	}
}

// BreakEvenPrice is the zero-profit price for a listing's cost basis.
func (p *Purgatory) BreakEvenPrice(l *types.Listing) (decimal.Decimal, bool) {
	return p.profit.BreakEvenPrice(l.PurchasePrice, l.ShippingCost)
}

// MarkdownPrice is break-even with the sale discount applied. Selling at it
// loses money; that is the point of purgatory.
func (p *Purgatory) MarkdownPrice(l *types.Listing) (decimal.Decimal, bool) {
	breakEven, ok := p.BreakEvenPrice(l)
	if !ok {
		return decimal.Zero, false
	}
	discount := decimal.NewFromFloat(1 - p.salePercent/100)
	return breakEven.Mul(discount).RoundBank(2), true
}

// EnterPurgatory moves a listing into purgatory: status flips, the markdown
// price is set locally and pushed to the marketplace, and the estimated
// loss at that price is reported.
func (p *Purgatory) EnterPurgatory(ctx context.Context, sess store.Session, listingID int64) (*types.PurgatoryResult, error) {
	l, err := sess.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return &types.PurgatoryResult{Success: false, Error: "listing not found"}, nil
	}

	breakEven, ok := p.BreakEvenPrice(l)
	if !ok {
		return &types.PurgatoryResult{Success: false, Error: "fee rates leave no finite break-even price"}, nil
	}
	markdown, _ := p.MarkdownPrice(l)

	if !l.Status.CanTransitionTo(types.StatusPurgatory) {
		return &types.PurgatoryResult{
			Success: false,
			Error:   fmt.Sprintf("listing is %s, cannot enter purgatory", l.Status),
		}, nil
	}

	l.Status = types.StatusPurgatory
	l.CurrentPrice = markdown
	l.EnteredPurgatoryAt = p.now().UTC()

	if l.SKU != "" {
		if _, err := p.gw.BulkUpdatePriceQuantity(ctx, []gateway.PriceUpdate{{SKU: l.SKU, Price: markdown}}); err != nil {
			if gateway.IsAuth(err) {
				return nil, err
			}
			return &types.PurgatoryResult{
				Success: false,
				Error:   fmt.Sprintf("marketplace price update failed: %v", err),
			}, nil
		}
	}

	if err := sess.UpdateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
	}

	breakdown := p.profit.Calculate(gatekeeper.ProfitInput{
		SalePrice:     markdown,
		PurchasePrice: l.PurchasePrice,
		ShippingCost:  l.ShippingCost,
	})
	loss := decimal.Zero
	if breakdown.NetProfit.IsNegative() {
		loss = breakdown.NetProfit.Abs()
	}

	p.logger.Info("listing entered purgatory",
		"listing_id", listingID, "markdown", markdown, "estimated_loss", loss)
	return &types.PurgatoryResult{
		Success:        true,
		ListingID:      listingID,
		OriginalPrice:  l.ListPrice,
		BreakEvenPrice: breakEven,
		MarkdownPrice:  markdown,
		SalePercent:    p.salePercent,
		EstimatedLoss:  loss,
	}, nil
}

// ScanForPurgatory flags purgatory listings that have sat unsold past the
// donate window. Listings that predate the entered_purgatory_at column fall
// back to days_active.
func (p *Purgatory) ScanForPurgatory(ctx context.Context, sess store.Session) ([]types.DonateSuggestion, error) {
	listings, err := sess.ListingsByStatus(ctx, types.StatusPurgatory)
	if err != nil {
		return nil, fmt.Errorf("query purgatory listings: %w", err)
	}

	now := p.now().UTC()
	var suggestions []types.DonateSuggestion
	for _, l := range listings {
		days := l.DaysActive
		if !l.EnteredPurgatoryAt.IsZero() {
			days = int(now.Sub(l.EnteredPurgatoryAt).Hours() / 24)
		}
		if days <= donateAfterDays {
			continue
		}
		suggestions = append(suggestions, types.DonateSuggestion{
			ListingID:    l.ID,
			SKU:          l.SKU,
			Title:        l.Title,
			CurrentPrice: l.EffectivePrice(),
			Suggestion:   "DONATE_OR_TRASH",
		})
	}
	return suggestions, nil
}
