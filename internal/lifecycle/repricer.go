package lifecycle

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

// Repricer applies a time-based markdown ladder to active listings.
//
// The new price is always computed from the original list price, never
// compounded from the current price, and is clamped upward to the profit
// floor's minimum viable price. All staged changes go to the marketplace in
// a single bulk call after the per-listing loop.
type Repricer struct {
	gw     gateway.Gateway
	steps  types.StepLadder
	profit *gatekeeper.ProfitCalc
	logger *slog.Logger
	now    func() time.Time
}

// NewRepricer builds the repricer from the configured step ladder.
func NewRepricer(gw gateway.Gateway, cfg *config.Config, logger *slog.Logger) (*Repricer, error) {
	steps, err := cfg.RepriceSteps()
	if err != nil {
		return nil, fmt.Errorf("reprice steps: %w", err)
	}
	return &Repricer{
		gw:     gw,
		steps:  steps,
		profit: gatekeeper.NewProfitCalc(cfg),
		logger: logger.With("component", "repricer"),
		now:    time.Now,
	}, nil
}

// CalculateReprice computes the new price for one listing, or nil when no
// ladder step applies yet or the clamped price matches the current price
// within a cent.
func (r *Repricer) CalculateReprice(l *types.Listing) *types.RepriceDetail {
	step, pct, ok := r.steps.Match(l.DaysActive)
	if !ok {
		return nil
	}

	discount := decimal.NewFromFloat(1 - pct/100)
	newPrice := l.ListPrice.Mul(discount).RoundBank(2)

	minViable, viable := r.profit.MinimumPrice(l.PurchasePrice, l.ShippingCost, l.AdRatePercent)
	if viable && newPrice.LessThan(minViable) {
		newPrice = minViable
	}

	current := l.EffectivePrice()
	if newPrice.Sub(current).Abs().LessThan(decimal.NewFromFloat(0.01)) {
		return nil
	}

	return &types.RepriceDetail{
		ListingID:      l.ID,
		SKU:            l.SKU,
		Step:           step,
		PercentOff:     pct,
		OldPrice:       current,
		NewPrice:       newPrice,
		MinViablePrice: minViable,
		Reason:         fmt.Sprintf("Step %d: %v%% off after %d days", step, pct, l.DaysActive),
	}
}

// ScanAndReprice applies the ladder to every active listing and pushes the
// staged prices to the marketplace in one bulk call. A bulk failure is
// counted but the local prices stay: the next scan recomputes from the list
// price and re-stages the same update, so the gateway converges.
func (r *Repricer) ScanAndReprice(ctx context.Context, sess store.Session) (*types.RepriceReport, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}

	report := &types.RepriceReport{TotalScanned: len(active)}
	var updates []gateway.PriceUpdate
	now := r.now().UTC()

	for _, l := range active {
		detail := r.CalculateReprice(l)
		if detail == nil {
			report.Skipped++
			continue
		}

		l.CurrentPrice = detail.NewPrice
		l.LastRepricedAt = now
		if err := sess.UpdateListing(ctx, l); err != nil {
			return nil, fmt.Errorf("update listing %d: %w", l.ID, err)
		}

		report.Details = append(report.Details, *detail)
		report.Repriced++
		updates = append(updates, gateway.PriceUpdate{SKU: l.SKU, Price: detail.NewPrice})
	}

	if len(updates) > 0 {
		if _, err := r.gw.BulkUpdatePriceQuantity(ctx, updates); err != nil {
			if gateway.IsAuth(err) {
				return nil, err
			}
			report.GatewayErrors = len(updates)
			r.logger.Error("bulk price push failed", "count", len(updates), "error", err)
		}
	}

	r.logger.Info("reprice scan complete",
		"scanned", report.TotalScanned,
		"repriced", report.Repriced,
		"skipped", report.Skipped,
		"gateway_errors", report.GatewayErrors,
	)
	return report, nil
}

// Preview computes the staged changes without mutating anything.
func (r *Repricer) Preview(ctx context.Context, sess store.Session) (*types.RepriceReport, error) {
	active, err := sess.ListingsByStatus(ctx, types.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}
	report := &types.RepriceReport{TotalScanned: len(active)}
	for _, l := range active {
		if detail := r.CalculateReprice(l); detail != nil {
			report.Details = append(report.Details, *detail)
			report.Repriced++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}
