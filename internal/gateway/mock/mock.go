// Package mock implements gateway.Gateway in memory for offline mode and
// tests. All operations are stateful so side effects are observable (item
// created, offer withdrawn, photo swapped), and a failure-injection side
// channel lets tests exercise error paths deterministically.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flipflow/internal/gateway"
	"flipflow/pkg/types"
)

// Client is the in-memory gateway. Safe for concurrent use.
type Client struct {
	mu sync.Mutex

	inventory map[string]gateway.Item          // sku -> item
	offers    map[string]*gateway.Offer        // offer id -> offer
	campaigns map[string]*gateway.CampaignInfo // campaign id -> campaign
	watchers  map[string][]gateway.Watcher     // listing id -> watchers
	traffic   map[string]gateway.TrafficRecord // listing id -> traffic
	handling  map[string]int                   // policy id -> handling days

	sentOffers []SentOffer // every SendOfferToBuyer call, in order

	nextListingID int
	failures      map[string]error // op -> error consumed on next call
}

// SentOffer records one outbound buyer offer for test assertions.
type SentOffer struct {
	ListingID string
	BuyerID   string
	Offer     gateway.BuyerOffer
	SentAt    time.Time
}

// New creates an empty mock gateway.
func New() *Client {
	return &Client{
		inventory:     make(map[string]gateway.Item),
		offers:        make(map[string]*gateway.Offer),
		campaigns:     make(map[string]*gateway.CampaignInfo),
		watchers:      make(map[string][]gateway.Watcher),
		traffic:       make(map[string]gateway.TrafficRecord),
		handling:      make(map[string]int),
		nextListingID: 200000,
		failures:      make(map[string]error),
	}
}

// NewWithFixtures creates a mock gateway seeded with a small deterministic
// catalogue so offline mode has observable behavior.
func NewWithFixtures() *Client {
	c := New()
	fixtures := []struct {
		sku      string
		title    string
		price    string
		views    int
		watchers int
	}{
		{"NIKE-AM90-001", "Nike Air Max 90 White Size 10", "89.99", 45, 2},
		{"SONY-WH1000-002", "Sony WH-1000XM4 Wireless Headphones", "199.99", 120, 3},
		{"LEGO-75192-003", "LEGO Millennium Falcon 75192 Sealed", "749.99", 6, 0},
	}
	for _, f := range fixtures {
		price, _ := decimal.NewFromString(f.price)
		listingID := fmt.Sprintf("MOCK-%d", c.nextListingID)
		c.nextListingID++
		c.inventory[f.sku] = gateway.Item{SKU: f.sku, Title: f.title, Price: price, Quantity: 1}
		offerID := "OFFER-" + listingID
		c.offers[offerID] = &gateway.Offer{
			OfferID: offerID, SKU: f.sku, ListingID: listingID, Status: "PUBLISHED", Price: price,
		}
		c.traffic[listingID] = gateway.TrafficRecord{
			ListingID: listingID, Views: f.views, Impressions: f.views * 10, Clicks: f.views / 3,
		}
		for i := 0; i < f.watchers; i++ {
			c.watchers[listingID] = append(c.watchers[listingID], gateway.Watcher{
				BuyerID: fmt.Sprintf("BUYER-%d", i),
			})
		}
	}
	return c
}

// InjectFailure makes the named operation return err on its next call.
func (c *Client) InjectFailure(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = err
}

// SetWatchers replaces the watcher list for a marketplace listing id.
func (c *Client) SetWatchers(listingID string, watchers []gateway.Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers[listingID] = watchers
}

// SetTraffic sets the traffic report row for a marketplace listing id.
func (c *Client) SetTraffic(listingID string, views int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traffic[listingID] = gateway.TrafficRecord{
		ListingID: listingID, Views: views, Impressions: views * 10, Clicks: views / 3,
	}
}

// SentOffers returns a copy of every outbound buyer offer sent so far.
func (c *Client) SentOffers() []SentOffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SentOffer, len(c.sentOffers))
	copy(out, c.sentOffers)
	return out
}

// Inventory returns a copy of the item stored under sku, if any.
func (c *Client) Inventory(sku string) (gateway.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.inventory[sku]
	return item, ok
}

// OfferStatus returns the status of an offer, if it exists.
func (c *Client) OfferStatus(offerID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.offers[offerID]
	if !ok {
		return "", false
	}
	return o.Status, true
}

// HandlingDays returns the last handling time set on a fulfillment policy.
func (c *Client) HandlingDays(policyID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.handling[policyID]
	return d, ok
}

func (c *Client) checkFailure(op string) error {
	if err, ok := c.failures[op]; ok {
		delete(c.failures, op)
		return err
	}
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Inventory
// ————————————————————————————————————————————————————————————————————————

func (c *Client) CreateInventoryItem(ctx context.Context, sku string, item gateway.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("create_inventory_item"); err != nil {
		return err
	}
	item.SKU = sku
	c.inventory[sku] = item
	return nil
}

func (c *Client) GetInventoryItem(ctx context.Context, sku string) (*gateway.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("get_inventory_item"); err != nil {
		return nil, err
	}
	item, ok := c.inventory[sku]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (c *Client) UpdateInventoryItem(ctx context.Context, sku string, patch gateway.ItemPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("update_inventory_item"); err != nil {
		return err
	}
	item, ok := c.inventory[sku]
	if !ok {
		return gateway.Errorf(gateway.KindNotFound, "update_inventory_item", "sku %s not found", sku)
	}
	if patch.Title != "" {
		item.Title = patch.Title
	}
	if patch.Description != "" {
		item.Description = patch.Description
	}
	if patch.PhotoURLs != nil {
		item.PhotoURLs = patch.PhotoURLs
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	c.inventory[sku] = item
	return nil
}

func (c *Client) DeleteInventoryItem(ctx context.Context, sku string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("delete_inventory_item"); err != nil {
		return false, err
	}
	if _, ok := c.inventory[sku]; !ok {
		return false, nil
	}
	delete(c.inventory, sku)
	return true, nil
}

func (c *Client) BulkUpdatePriceQuantity(ctx context.Context, updates []gateway.PriceUpdate) (*gateway.BulkResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("bulk_update_price_quantity"); err != nil {
		return nil, err
	}
	result := &gateway.BulkResult{}
	for _, u := range updates {
		item, ok := c.inventory[u.SKU]
		if !ok {
			result.Responses = append(result.Responses, gateway.BulkEntry{SKU: u.SKU, Status: "NOT_FOUND"})
			continue
		}
		item.Price = u.Price
		if u.Quantity > 0 {
			item.Quantity = u.Quantity
		}
		c.inventory[u.SKU] = item
		result.Responses = append(result.Responses, gateway.BulkEntry{SKU: u.SKU, Status: "SUCCESS"})
	}
	return result, nil
}

// ————————————————————————————————————————————————————————————————————————
// Offers
// ————————————————————————————————————————————————————————————————————————

func (c *Client) CreateOffer(ctx context.Context, req gateway.OfferRequest) (*gateway.Offer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("create_offer"); err != nil {
		return nil, err
	}
	offer := &gateway.Offer{
		OfferID: "OFFER-" + uuid.NewString()[:8],
		SKU:     req.SKU,
		Status:  "CREATED",
		Price:   req.Price,
	}
	c.offers[offer.OfferID] = offer
	return offer, nil
}

func (c *Client) PublishOffer(ctx context.Context, offerID string) (*gateway.PublishResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("publish_offer"); err != nil {
		return nil, err
	}
	offer, ok := c.offers[offerID]
	if !ok {
		return nil, gateway.Errorf(gateway.KindNotFound, "publish_offer", "offer %s not found", offerID)
	}
	listingID := fmt.Sprintf("MOCK-%d", c.nextListingID)
	c.nextListingID++
	offer.Status = "PUBLISHED"
	offer.ListingID = listingID
	return &gateway.PublishResult{OfferID: offerID, ListingID: listingID}, nil
}

func (c *Client) WithdrawOffer(ctx context.Context, offerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("withdraw_offer"); err != nil {
		return err
	}
	offer, ok := c.offers[offerID]
	if !ok {
		return gateway.Errorf(gateway.KindNotFound, "withdraw_offer", "offer %s not found", offerID)
	}
	offer.Status = "WITHDRAWN"
	return nil
}

func (c *Client) GetOffer(ctx context.Context, offerID string) (*gateway.Offer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("get_offer"); err != nil {
		return nil, err
	}
	offer, ok := c.offers[offerID]
	if !ok {
		return nil, nil
	}
	cp := *offer
	return &cp, nil
}

func (c *Client) GetOffersBySKU(ctx context.Context, sku string) ([]gateway.Offer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("get_offers_by_sku"); err != nil {
		return nil, err
	}
	var out []gateway.Offer
	for _, o := range c.offers {
		if o.SKU == sku {
			out = append(out, *o)
		}
	}
	return out, nil
}

// ————————————————————————————————————————————————————————————————————————
// Analytics
// ————————————————————————————————————————————————————————————————————————

func (c *Client) GetTrafficReport(ctx context.Context, listingIDs []string, dateRange string, metrics []string) ([]gateway.TrafficRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("get_traffic_report"); err != nil {
		return nil, err
	}
	records := make([]gateway.TrafficRecord, 0, len(listingIDs))
	for _, id := range listingIDs {
		if rec, ok := c.traffic[id]; ok {
			records = append(records, rec)
		} else {
			records = append(records, gateway.TrafficRecord{ListingID: id})
		}
	}
	return records, nil
}

// ————————————————————————————————————————————————————————————————————————
// Marketing
// ————————————————————————————————————————————————————————————————————————

func (c *Client) CreateCampaign(ctx context.Context, req gateway.CampaignRequest) (*gateway.CampaignInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("create_campaign"); err != nil {
		return nil, err
	}
	info := &gateway.CampaignInfo{
		CampaignID: "CAMP-" + uuid.NewString()[:8],
		Name:       req.Name,
		AdRate:     req.AdRate,
		Status:     "RUNNING",
	}
	c.campaigns[info.CampaignID] = info
	return info, nil
}

func (c *Client) EndCampaign(ctx context.Context, campaignID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("end_campaign"); err != nil {
		return err
	}
	info, ok := c.campaigns[campaignID]
	if !ok {
		return gateway.Errorf(gateway.KindNotFound, "end_campaign", "campaign %s not found", campaignID)
	}
	info.Status = "ENDED"
	return nil
}

func (c *Client) GetCampaign(ctx context.Context, campaignID string) (*gateway.CampaignInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("get_campaign"); err != nil {
		return nil, err
	}
	info, ok := c.campaigns[campaignID]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// ————————————————————————————————————————————————————————————————————————
// Browse
// ————————————————————————————————————————————————————————————————————————

func (c *Client) SearchItems(ctx context.Context, query string, filters map[string]string) ([]gateway.ItemSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("search_items"); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []gateway.ItemSummary
	for _, item := range c.inventory {
		if strings.Contains(strings.ToLower(item.Title), q) {
			out = append(out, gateway.ItemSummary{SKU: item.SKU, Title: item.Title, Price: item.Price})
		}
	}
	return out, nil
}

// ————————————————————————————————————————————————————————————————————————
// Negotiation
// ————————————————————————————————————————————————————————————————————————

func (c *Client) SendOfferToBuyer(ctx context.Context, listingID, buyerID string, offer gateway.BuyerOffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("send_offer_to_buyer"); err != nil {
		return err
	}
	c.sentOffers = append(c.sentOffers, SentOffer{
		ListingID: listingID, BuyerID: buyerID, Offer: offer, SentAt: time.Now(),
	})
	return nil
}

func (c *Client) GetWatchers(ctx context.Context, listingID string) ([]gateway.Watcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("get_watchers"); err != nil {
		return nil, err
	}
	out := make([]gateway.Watcher, len(c.watchers[listingID]))
	copy(out, c.watchers[listingID])
	return out, nil
}

func (c *Client) RespondToOffer(ctx context.Context, listingID, offerID string, action types.OfferAction, counterAmount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("respond_to_offer"); err != nil {
		return err
	}
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Account
// ————————————————————————————————————————————————————————————————————————

func (c *Client) UpdateHandlingTime(ctx context.Context, policyID string, handlingDays int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkFailure("update_handling_time"); err != nil {
		return err
	}
	c.handling[policyID] = handlingDays
	return nil
}

var _ gateway.Gateway = (*Client)(nil)
