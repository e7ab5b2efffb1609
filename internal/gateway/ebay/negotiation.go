package ebay

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"flipflow/internal/gateway"
	"flipflow/pkg/types"
)

const negotiationBase = "/sell/negotiation/v1"

// SendOfferToBuyer sends a private discount offer to one interested buyer.
func (c *Client) SendOfferToBuyer(ctx context.Context, listingID, buyerID string, offer gateway.BuyerOffer) error {
	body := map[string]any{
		"offeredItems": []map[string]any{{
			"listingId": listingID,
			"quantity":  1,
			"price": map[string]string{
				"value":    offer.Price.StringFixed(2),
				"currency": offer.Currency,
			},
		}},
		"allowCounterOffer": false,
		"message":           offer.Message,
		"recipients":        []string{buyerID},
	}
	return c.do(ctx, request{
		op:     "send_offer_to_buyer",
		method: http.MethodPost,
		path:   negotiationBase + "/send_offer_to_interested_buyers",
		body:   body,
	})
}

// GetWatchers lists the buyers eligible for a private offer on a listing.
// The negotiation API only exposes eligibility per listing, so the result
// is filtered client-side.
func (c *Client) GetWatchers(ctx context.Context, listingID string) ([]gateway.Watcher, error) {
	var w struct {
		EligibleItems []struct {
			ListingID string `json:"listingId"`
			Buyers    []struct {
				BuyerID string `json:"buyerId"`
			} `json:"interestedBuyers"`
		} `json:"eligibleItems"`
	}
	err := c.do(ctx, request{
		op:     "get_watchers",
		method: http.MethodGet,
		path:   negotiationBase + "/find_eligible_items",
		query:  map[string]string{"limit": "100"},
		result: &w,
	})
	if err != nil {
		return nil, err
	}

	var watchers []gateway.Watcher
	for _, item := range w.EligibleItems {
		if item.ListingID != listingID {
			continue
		}
		for _, b := range item.Buyers {
			watchers = append(watchers, gateway.Watcher{BuyerID: b.BuyerID})
		}
	}
	return watchers, nil
}

// RespondToOffer accepts, counters, or rejects an incoming buyer offer.
func (c *Client) RespondToOffer(ctx context.Context, listingID, offerID string, action types.OfferAction, counterAmount decimal.Decimal) error {
	body := map[string]any{
		"listingId": listingID,
		"offerId":   offerID,
		"action":    strings.ToUpper(string(action)),
	}
	if action == types.ActionCounter {
		body["counterPrice"] = map[string]string{
			"value":    counterAmount.StringFixed(2),
			"currency": "USD",
		}
	}
	return c.do(ctx, request{
		op:     "respond_to_offer",
		method: http.MethodPost,
		path:   negotiationBase + "/respond_to_offer",
		body:   body,
	})
}
