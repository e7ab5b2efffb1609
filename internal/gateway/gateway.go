// Package gateway defines the marketplace contract the engine is written
// against. Every policy depends on the Gateway interface, never on a concrete
// client. Implementations: ebay.Client (sandbox/production), mock.Client
// (offline mode and tests).
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"flipflow/pkg/types"
)

// Item is the inventory payload for create/update calls.
type Item struct {
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Brand       string          `json:"brand,omitempty"`
	Model       string          `json:"model,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	ConditionID string          `json:"condition_id,omitempty"`
	PhotoURLs   []string        `json:"photo_urls"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// ItemPatch is a partial inventory update; zero fields are left unchanged.
type ItemPatch struct {
	Title       string
	Description string
	PhotoURLs   []string
	Price       *decimal.Decimal
}

// PriceUpdate is one entry in a bulk price+quantity push.
type PriceUpdate struct {
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity,omitempty"`
}

// BulkResult reports per-SKU outcomes of a bulk update.
type BulkResult struct {
	Responses []BulkEntry `json:"responses"`
}

// BulkEntry is one per-SKU outcome. Status is "SUCCESS" or an error code.
type BulkEntry struct {
	SKU    string `json:"sku"`
	Status string `json:"status"`
}

// Succeeded counts SUCCESS entries.
func (r *BulkResult) Succeeded() int {
	n := 0
	for _, e := range r.Responses {
		if e.Status == "SUCCESS" {
			n++
		}
	}
	return n
}

// OfferRequest creates a fixed-price offer for an inventory item.
type OfferRequest struct {
	SKU           string          `json:"sku"`
	MarketplaceID string          `json:"marketplace_id"`
	Format        string          `json:"format"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
}

// Offer is a marketplace offer as returned by the gateway.
type Offer struct {
	OfferID   string          `json:"offer_id"`
	SKU       string          `json:"sku"`
	ListingID string          `json:"listing_id,omitempty"`
	Status    string          `json:"status"`
	Price     decimal.Decimal `json:"price"`
}

// PublishResult carries the fresh marketplace item id minted by a publish.
type PublishResult struct {
	OfferID   string `json:"offer_id"`
	ListingID string `json:"listing_id"`
}

// TrafficRecord is one listing's row in an analytics traffic report.
type TrafficRecord struct {
	ListingID   string `json:"listing_id"`
	Views       int    `json:"views"`
	Impressions int    `json:"impressions"`
	Clicks      int    `json:"clicks"`
}

// CampaignRequest creates a promoted-listings campaign.
type CampaignRequest struct {
	Name      string  `json:"name"`
	AdRate    float64 `json:"ad_rate"`
	ListingID string  `json:"listing_id"`
}

// CampaignInfo is a campaign as returned by the gateway.
type CampaignInfo struct {
	CampaignID string  `json:"campaign_id"`
	Name       string  `json:"name"`
	AdRate     float64 `json:"ad_rate"`
	Status     string  `json:"status"`
}

// ItemSummary is one search hit from the browse family.
type ItemSummary struct {
	SKU       string          `json:"sku"`
	Title     string          `json:"title"`
	ListingID string          `json:"listing_id,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

// Watcher is one buyer watching a listing.
type Watcher struct {
	BuyerID   string    `json:"buyer_id"`
	WatchedAt time.Time `json:"watched_at"`
}

// BuyerOffer is an outbound offer sent to a specific watcher.
type BuyerOffer struct {
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Message  string          `json:"message"`
}

// Gateway is the capability set the engine needs from the marketplace.
// All operations honor ctx cancellation; failed calls return a *Error whose
// Kind the caller can branch on.
type Gateway interface {
	// Inventory
	CreateInventoryItem(ctx context.Context, sku string, item Item) error
	GetInventoryItem(ctx context.Context, sku string) (*Item, error) // nil, nil when absent
	UpdateInventoryItem(ctx context.Context, sku string, patch ItemPatch) error
	DeleteInventoryItem(ctx context.Context, sku string) (bool, error)
	BulkUpdatePriceQuantity(ctx context.Context, updates []PriceUpdate) (*BulkResult, error)

	// Offers
	CreateOffer(ctx context.Context, req OfferRequest) (*Offer, error)
	PublishOffer(ctx context.Context, offerID string) (*PublishResult, error)
	WithdrawOffer(ctx context.Context, offerID string) error
	GetOffer(ctx context.Context, offerID string) (*Offer, error) // nil, nil when absent
	GetOffersBySKU(ctx context.Context, sku string) ([]Offer, error)

	// Analytics
	GetTrafficReport(ctx context.Context, listingIDs []string, dateRange string, metrics []string) ([]TrafficRecord, error)

	// Marketing
	CreateCampaign(ctx context.Context, req CampaignRequest) (*CampaignInfo, error)
	EndCampaign(ctx context.Context, campaignID string) error
	GetCampaign(ctx context.Context, campaignID string) (*CampaignInfo, error) // nil, nil when absent

	// Browse
	SearchItems(ctx context.Context, query string, filters map[string]string) ([]ItemSummary, error)

	// Negotiation
	SendOfferToBuyer(ctx context.Context, listingID, buyerID string, offer BuyerOffer) error
	GetWatchers(ctx context.Context, listingID string) ([]Watcher, error)
	RespondToOffer(ctx context.Context, listingID, offerID string, action types.OfferAction, counterAmount decimal.Decimal) error

	// Account
	UpdateHandlingTime(ctx context.Context, policyID string, handlingDays int) error
}
