package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"flipflow/internal/gatekeeper"
	"flipflow/internal/lifecycle"
	"flipflow/internal/store"
	"flipflow/pkg/types"
)

// CreateListingRequest is the intake payload for a new draft listing.
type CreateListingRequest struct {
	SKU           string          `json:"sku"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Brand         string          `json:"brand"`
	Model         string          `json:"model"`
	CategoryID    string          `json:"category_id"`
	ConditionID   string          `json:"condition_id"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	ListPrice     decimal.Decimal `json:"list_price"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	PhotoURLs     []string        `json:"photo_urls"`

	// STRValue gates intake when set; STROverride downgrades a low STR to a
	// warning. ProfitOverride admits a listing below the profit floor.
	STRValue       *float64 `json:"str_value,omitempty"`
	STROverride    bool     `json:"str_override"`
	ProfitOverride bool     `json:"profit_override"`
}

// CreateListing runs the gatekeeper pipeline and persists the draft:
// the title is sanitized, the description is mobile-enforced, the list
// price must clear the profit floor, and an optional manual STR value must
// clear the threshold.
func (e *Engine) CreateListing(ctx context.Context, req CreateListingRequest) (*types.Listing, error) {
	if req.SKU == "" {
		return nil, fmt.Errorf("sku is required")
	}
	if !req.ListPrice.IsPositive() {
		return nil, fmt.Errorf("list_price must be positive")
	}

	title := e.titles.Sanitize(gatekeeper.TitleRequest{
		Title: req.Title,
		Brand: req.Brand,
		Model: req.Model,
	})

	breakdown := e.profit.Calculate(gatekeeper.ProfitInput{
		SalePrice:     req.ListPrice,
		PurchasePrice: req.PurchasePrice,
		ShippingCost:  req.ShippingCost,
	})
	if !req.ProfitOverride {
		if err := e.profit.CheckFloor(breakdown); err != nil {
			return nil, err
		}
	}

	var strValue float64
	var strSource string
	if req.STRValue != nil {
		result, err := e.str.ValidateManual(*req.STRValue, req.STROverride)
		if err != nil {
			return nil, err
		}
		strValue = result.Value
		strSource = result.Source
	}

	listing := &types.Listing{
		SKU:               req.SKU,
		Title:             req.Title,
		TitleSanitized:    title.Sanitized,
		Description:       req.Description,
		DescriptionMobile: e.mobile.Enforce(req.Description),
		Brand:             req.Brand,
		Model:             req.Model,
		CategoryID:        req.CategoryID,
		ConditionID:       req.ConditionID,
		PurchasePrice:     req.PurchasePrice,
		ListPrice:         req.ListPrice,
		ShippingCost:      req.ShippingCost,
		Status:            types.StatusDraft,
		PhotoURLs:         req.PhotoURLs,
		SellThroughRate:   strValue,
		STRSource:         strSource,
	}
	if listing.ConditionID == "" {
		listing.ConditionID = "3000"
	}

	err := e.run(ctx, "listing_create", "single", func(sess store.Session) (int, int, error) {
		if err := sess.InsertListing(ctx, listing); err != nil {
			return 0, 0, fmt.Errorf("insert listing: %w", err)
		}
		return 1, 1, nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// MarkSold transitions a listing to sold and appends the per-sale profit
// record at the realized sale price.
func (e *Engine) MarkSold(ctx context.Context, listingID int64, salePrice decimal.Decimal) (*types.ProfitRecord, error) {
	var record *types.ProfitRecord
	err := e.run(ctx, "listing_sold", "single", func(sess store.Session) (int, int, error) {
		l, err := sess.GetListing(ctx, listingID)
		if err != nil {
			return 0, 0, err
		}
		if l == nil {
			return 0, 0, &lifecycle.ErrListingNotFound{ListingID: listingID}
		}
		if !l.Status.CanTransitionTo(types.StatusSold) {
			return 0, 0, &lifecycle.StateTransitionError{ListingID: l.ID, From: l.Status, To: types.StatusSold}
		}

		breakdown := e.profit.Calculate(gatekeeper.ProfitInput{
			SalePrice:     salePrice,
			PurchasePrice: l.PurchasePrice,
			ShippingCost:  l.ShippingCost,
			AdRatePercent: l.AdRatePercent,
		})

		l.Status = types.StatusSold
		l.CurrentPrice = salePrice
		if err := sess.UpdateListing(ctx, l); err != nil {
			return 0, 0, fmt.Errorf("update listing %d: %w", l.ID, err)
		}

		record = &types.ProfitRecord{
			ListingID:           l.ID,
			SalePrice:           breakdown.SalePrice,
			PurchasePrice:       breakdown.PurchasePrice,
			ShippingCost:        breakdown.ShippingCost,
			EbayFeeAmount:       breakdown.EbayFeeAmount,
			AdFeeAmount:         breakdown.AdFeeAmount,
			PaymentFeeAmount:    breakdown.PaymentFeeAmount,
			NetProfit:           breakdown.NetProfit,
			ProfitMarginPercent: breakdown.ProfitMarginPercent,
			MeetsFloor:          breakdown.MeetsFloor,
		}
		if err := sess.InsertProfitRecord(ctx, record); err != nil {
			return 0, 0, fmt.Errorf("insert profit record: %w", err)
		}
		return 1, 1, nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
