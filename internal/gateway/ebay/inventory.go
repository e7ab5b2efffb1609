package ebay

import (
	"context"
	"net/http"
	"net/url"

	"flipflow/internal/gateway"
)

const inventoryBase = "/sell/inventory/v1"

// wireItem is the sell/inventory item payload shape.
type wireItem struct {
	Product struct {
		Title       string   `json:"title"`
		Description string   `json:"description,omitempty"`
		Brand       string   `json:"brand,omitempty"`
		MPN         string   `json:"mpn,omitempty"`
		ImageURLs   []string `json:"imageUrls,omitempty"`
	} `json:"product"`
	Condition    string `json:"condition,omitempty"`
	Availability struct {
		ShipToLocationAvailability struct {
			Quantity int `json:"quantity"`
		} `json:"shipToLocationAvailability"`
	} `json:"availability"`
}

func toWireItem(item gateway.Item) wireItem {
	var w wireItem
	w.Product.Title = item.Title
	w.Product.Description = item.Description
	w.Product.Brand = item.Brand
	w.Product.MPN = item.Model
	w.Product.ImageURLs = item.PhotoURLs
	w.Condition = item.ConditionID
	w.Availability.ShipToLocationAvailability.Quantity = item.Quantity
	return w
}

func fromWireItem(sku string, w wireItem) *gateway.Item {
	return &gateway.Item{
		SKU:         sku,
		Title:       w.Product.Title,
		Description: w.Product.Description,
		Brand:       w.Product.Brand,
		Model:       w.Product.MPN,
		ConditionID: w.Condition,
		PhotoURLs:   w.Product.ImageURLs,
		Quantity:    w.Availability.ShipToLocationAvailability.Quantity,
	}
}

// CreateInventoryItem creates or replaces an inventory item by SKU.
func (c *Client) CreateInventoryItem(ctx context.Context, sku string, item gateway.Item) error {
	return c.do(ctx, request{
		op:     "create_inventory_item",
		method: http.MethodPut,
		path:   inventoryBase + "/inventory_item/" + url.PathEscape(sku),
		body:   toWireItem(item),
	})
}

// GetInventoryItem fetches an item; nil, nil when the SKU is unknown.
func (c *Client) GetInventoryItem(ctx context.Context, sku string) (*gateway.Item, error) {
	var w wireItem
	err := c.do(ctx, request{
		op:     "get_inventory_item",
		method: http.MethodGet,
		path:   inventoryBase + "/inventory_item/" + url.PathEscape(sku),
		result: &w,
	})
	if gateway.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromWireItem(sku, w), nil
}

// UpdateInventoryItem fetches the current item, applies the patch, and
// replaces it; the inventory API has no partial update.
func (c *Client) UpdateInventoryItem(ctx context.Context, sku string, patch gateway.ItemPatch) error {
	current, err := c.GetInventoryItem(ctx, sku)
	if err != nil {
		return err
	}
	if current == nil {
		return gateway.Errorf(gateway.KindNotFound, "update_inventory_item", "sku %s not found", sku)
	}
	if patch.Title != "" {
		current.Title = patch.Title
	}
	if patch.Description != "" {
		current.Description = patch.Description
	}
	if patch.PhotoURLs != nil {
		current.PhotoURLs = patch.PhotoURLs
	}
	if patch.Price != nil {
		current.Price = *patch.Price
	}
	return c.do(ctx, request{
		op:     "update_inventory_item",
		method: http.MethodPut,
		path:   inventoryBase + "/inventory_item/" + url.PathEscape(sku),
		body:   toWireItem(*current),
	})
}

// DeleteInventoryItem removes an item; false when the SKU was unknown.
func (c *Client) DeleteInventoryItem(ctx context.Context, sku string) (bool, error) {
	err := c.do(ctx, request{
		op:     "delete_inventory_item",
		method: http.MethodDelete,
		path:   inventoryBase + "/inventory_item/" + url.PathEscape(sku),
	})
	if gateway.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BulkUpdatePriceQuantity pushes price and quantity changes for up to 25
// SKUs in one call.
func (c *Client) BulkUpdatePriceQuantity(ctx context.Context, updates []gateway.PriceUpdate) (*gateway.BulkResult, error) {
	type wirePrice struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	}
	type wireOffer struct {
		Price             wirePrice `json:"price"`
		AvailableQuantity int       `json:"availableQuantity,omitempty"`
	}
	type priceQuantity struct {
		SKU    string      `json:"sku"`
		Offers []wireOffer `json:"offers"`
	}
	payload := struct {
		Requests []priceQuantity `json:"requests"`
	}{}
	for _, u := range updates {
		payload.Requests = append(payload.Requests, priceQuantity{
			SKU: u.SKU,
			Offers: []wireOffer{{
				Price:             wirePrice{Value: u.Price.StringFixed(2), Currency: "USD"},
				AvailableQuantity: u.Quantity,
			}},
		})
	}

	var wire struct {
		Responses []struct {
			SKU        string `json:"sku"`
			StatusCode int    `json:"statusCode"`
		} `json:"responses"`
	}
	err := c.do(ctx, request{
		op:     "bulk_update_price_quantity",
		method: http.MethodPost,
		path:   inventoryBase + "/bulk_update_price_quantity",
		body:   payload,
		result: &wire,
	})
	if err != nil {
		return nil, err
	}

	result := &gateway.BulkResult{}
	for _, r := range wire.Responses {
		status := "SUCCESS"
		if r.StatusCode >= 400 {
			status = "FAILED"
		}
		result.Responses = append(result.Responses, gateway.BulkEntry{SKU: r.SKU, Status: status})
	}
	return result, nil
}
