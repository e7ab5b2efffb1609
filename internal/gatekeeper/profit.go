package gatekeeper

import (
	"fmt"

	"github.com/shopspring/decimal"

	"flipflow/internal/config"
)

// ProfitCalc computes net profit after marketplace fees and ad costs.
//
// Fee formula:
//
//	ebay_fee    = sale · base_fee_rate
//	ad_fee      = sale · ad_rate_percent/100
//	payment_fee = sale · payment_processing_rate + per_order_fee
//	net         = sale − purchase − shipping − ebay_fee − ad_fee − payment_fee
//
// All monetary outputs are rounded half-even to cents.
type ProfitCalc struct {
	baseFeeRate decimal.Decimal
	paymentRate decimal.Decimal
	perOrderFee decimal.Decimal
	floor       decimal.Decimal
}

// NewProfitCalc builds the calculator from the configured fee structure.
func NewProfitCalc(cfg *config.Config) *ProfitCalc {
	return &ProfitCalc{
		baseFeeRate: decimal.NewFromFloat(cfg.Fees.BaseFeeRate),
		paymentRate: decimal.NewFromFloat(cfg.Fees.PaymentProcessingRate),
		perOrderFee: cfg.PerOrderFee(),
		floor:       cfg.MinProfitFloor(),
	}
}

// ProfitInput are the per-listing numbers for one calculation.
type ProfitInput struct {
	SalePrice     decimal.Decimal
	PurchasePrice decimal.Decimal
	ShippingCost  decimal.Decimal
	AdRatePercent float64
}

// ProfitBreakdown is the full fee breakdown for one sale price.
// When Unprofitable is true the fee rates sum to ≥100% and no finite price
// reaches the floor; MinimumViablePrice is meaningless in that case.
type ProfitBreakdown struct {
	SalePrice           decimal.Decimal `json:"sale_price"`
	PurchasePrice       decimal.Decimal `json:"purchase_price"`
	ShippingCost        decimal.Decimal `json:"shipping_cost"`
	AdRatePercent       float64         `json:"ad_rate_percent"`
	EbayFeeAmount       decimal.Decimal `json:"ebay_fee_amount"`
	AdFeeAmount         decimal.Decimal `json:"ad_fee_amount"`
	PaymentFeeAmount    decimal.Decimal `json:"payment_fee_amount"`
	TotalFees           decimal.Decimal `json:"total_fees"`
	NetProfit           decimal.Decimal `json:"net_profit"`
	ProfitMarginPercent float64         `json:"profit_margin_percent"`
	MeetsFloor          bool            `json:"meets_floor"`
	ProfitFloor         decimal.Decimal `json:"profit_floor"`
	MinimumViablePrice  decimal.Decimal `json:"minimum_viable_price"`
	Unprofitable        bool            `json:"unprofitable"`
}

// LowProfitError reports a listing whose net profit is below the floor.
type LowProfitError struct {
	NetProfit decimal.Decimal
	Floor     decimal.Decimal
}

func (e *LowProfitError) Error() string {
	return fmt.Sprintf("net profit $%s is below minimum $%s", e.NetProfit, e.Floor)
}

// Calculate computes the full fee breakdown for a sale price.
func (pc *ProfitCalc) Calculate(in ProfitInput) ProfitBreakdown {
	adRate := decimal.NewFromFloat(in.AdRatePercent).Div(decimal.NewFromInt(100))

	ebayFee := in.SalePrice.Mul(pc.baseFeeRate)
	adFee := in.SalePrice.Mul(adRate)
	paymentFee := in.SalePrice.Mul(pc.paymentRate).Add(pc.perOrderFee)
	totalFees := ebayFee.Add(adFee).Add(paymentFee)

	net := in.SalePrice.Sub(in.PurchasePrice).Sub(in.ShippingCost).Sub(totalFees).RoundBank(2)

	margin := 0.0
	if in.SalePrice.IsPositive() {
		margin, _ = net.Div(in.SalePrice).Mul(decimal.NewFromInt(100)).RoundBank(2).Float64()
	}

	minViable, viable := pc.MinimumPrice(in.PurchasePrice, in.ShippingCost, in.AdRatePercent)

	return ProfitBreakdown{
		SalePrice:           in.SalePrice.RoundBank(2),
		PurchasePrice:       in.PurchasePrice.RoundBank(2),
		ShippingCost:        in.ShippingCost.RoundBank(2),
		AdRatePercent:       in.AdRatePercent,
		EbayFeeAmount:       ebayFee.RoundBank(2),
		AdFeeAmount:         adFee.RoundBank(2),
		PaymentFeeAmount:    paymentFee.RoundBank(2),
		TotalFees:           totalFees.RoundBank(2),
		NetProfit:           net,
		ProfitMarginPercent: margin,
		MeetsFloor:          net.GreaterThanOrEqual(pc.floor),
		ProfitFloor:         pc.floor,
		MinimumViablePrice:  minViable,
		Unprofitable:        !viable,
	}
}

// MinimumPrice reverse-solves the lowest sale price that still hits the
// profit floor:
//
//	sale = (floor + purchase + shipping + per_order_fee) / (1 − base − ad − payment)
//
// Returns ok=false when the fee multiplier is ≤ 0, meaning fees consume the
// entire sale price and no finite price can profit.
func (pc *ProfitCalc) MinimumPrice(purchase, shipping decimal.Decimal, adRatePercent float64) (price decimal.Decimal, ok bool) {
	adRate := decimal.NewFromFloat(adRatePercent).Div(decimal.NewFromInt(100))
	multiplier := decimal.NewFromInt(1).Sub(pc.baseFeeRate).Sub(adRate).Sub(pc.paymentRate)
	if !multiplier.IsPositive() {
		return decimal.Zero, false
	}
	numerator := pc.floor.Add(purchase).Add(shipping).Add(pc.perOrderFee)
	return numerator.Div(multiplier).RoundBank(2), true
}

// BreakEvenPrice is the sale price at which net profit is exactly zero,
// ignoring ad spend:
//
//	sale = (purchase + shipping + per_order_fee) / (1 − base − payment)
func (pc *ProfitCalc) BreakEvenPrice(purchase, shipping decimal.Decimal) (price decimal.Decimal, ok bool) {
	multiplier := decimal.NewFromInt(1).Sub(pc.baseFeeRate).Sub(pc.paymentRate)
	if !multiplier.IsPositive() {
		return decimal.Zero, false
	}
	numerator := purchase.Add(shipping).Add(pc.perOrderFee)
	return numerator.Div(multiplier).RoundBank(2), true
}

// CheckFloor returns a LowProfitError when the breakdown misses the floor.
func (pc *ProfitCalc) CheckFloor(b ProfitBreakdown) error {
	if b.MeetsFloor {
		return nil
	}
	return &LowProfitError{NetProfit: b.NetProfit, Floor: b.ProfitFloor}
}
