package ebay

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"flipflow/internal/gateway"
)

type wireOfferBody struct {
	SKU            string `json:"sku"`
	MarketplaceID  string `json:"marketplaceId"`
	Format         string `json:"format"`
	PricingSummary struct {
		Price struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"pricingSummary"`
}

type wireOfferResponse struct {
	OfferID        string `json:"offerId"`
	SKU            string `json:"sku"`
	ListingID      string `json:"listingId"`
	Status         string `json:"status"`
	PricingSummary struct {
		Price struct {
			Value string `json:"value"`
		} `json:"price"`
	} `json:"pricingSummary"`
}

func fromWireOffer(w wireOfferResponse) *gateway.Offer {
	price, _ := decimal.NewFromString(w.PricingSummary.Price.Value)
	return &gateway.Offer{
		OfferID:   w.OfferID,
		SKU:       w.SKU,
		ListingID: w.ListingID,
		Status:    w.Status,
		Price:     price,
	}
}

// CreateOffer creates a fixed-price offer for an inventory item.
func (c *Client) CreateOffer(ctx context.Context, req gateway.OfferRequest) (*gateway.Offer, error) {
	var body wireOfferBody
	body.SKU = req.SKU
	body.MarketplaceID = req.MarketplaceID
	body.Format = req.Format
	body.PricingSummary.Price.Value = req.Price.StringFixed(2)
	body.PricingSummary.Price.Currency = req.Currency

	var w wireOfferResponse
	err := c.do(ctx, request{
		op:     "create_offer",
		method: http.MethodPost,
		path:   inventoryBase + "/offer",
		body:   body,
		result: &w,
	})
	if err != nil {
		return nil, err
	}
	offer := fromWireOffer(w)
	if offer.SKU == "" {
		offer.SKU = req.SKU
	}
	return offer, nil
}

// PublishOffer makes an offer live and returns the minted listing id.
func (c *Client) PublishOffer(ctx context.Context, offerID string) (*gateway.PublishResult, error) {
	var w struct {
		ListingID string `json:"listingId"`
	}
	err := c.do(ctx, request{
		op:     "publish_offer",
		method: http.MethodPost,
		path:   inventoryBase + "/offer/" + url.PathEscape(offerID) + "/publish",
		result: &w,
	})
	if err != nil {
		return nil, err
	}
	return &gateway.PublishResult{OfferID: offerID, ListingID: w.ListingID}, nil
}

// WithdrawOffer ends a published offer.
func (c *Client) WithdrawOffer(ctx context.Context, offerID string) error {
	return c.do(ctx, request{
		op:     "withdraw_offer",
		method: http.MethodPost,
		path:   inventoryBase + "/offer/" + url.PathEscape(offerID) + "/withdraw",
	})
}

// GetOffer fetches one offer; nil, nil when absent.
func (c *Client) GetOffer(ctx context.Context, offerID string) (*gateway.Offer, error) {
	var w wireOfferResponse
	err := c.do(ctx, request{
		op:     "get_offer",
		method: http.MethodGet,
		path:   inventoryBase + "/offer/" + url.PathEscape(offerID),
		result: &w,
	})
	if gateway.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromWireOffer(w), nil
}

// GetOffersBySKU lists the offers attached to a SKU.
func (c *Client) GetOffersBySKU(ctx context.Context, sku string) ([]gateway.Offer, error) {
	var w struct {
		Offers []wireOfferResponse `json:"offers"`
	}
	err := c.do(ctx, request{
		op:     "get_offers_by_sku",
		method: http.MethodGet,
		path:   inventoryBase + "/offer",
		query:  map[string]string{"sku": sku},
		result: &w,
	})
	if gateway.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	offers := make([]gateway.Offer, 0, len(w.Offers))
	for _, o := range w.Offers {
		offers = append(offers, *fromWireOffer(o))
	}
	return offers, nil
}
