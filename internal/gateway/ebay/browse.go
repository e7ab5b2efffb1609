package ebay

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"flipflow/internal/gateway"
)

const browseBase = "/buy/browse/v1"

// SearchItems queries the marketplace catalogue. Uses the application token
// rather than the seller token.
func (c *Client) SearchItems(ctx context.Context, query string, filters map[string]string) ([]gateway.ItemSummary, error) {
	params := map[string]string{"q": query, "limit": "50"}
	if len(filters) > 0 {
		parts := make([]string, 0, len(filters))
		for key, value := range filters {
			parts = append(parts, fmt.Sprintf("%s:{%s}", key, value))
		}
		params["filter"] = strings.Join(parts, ",")
	}

	var w struct {
		ItemSummaries []struct {
			ItemID string `json:"itemId"`
			Title  string `json:"title"`
			Price  struct {
				Value string `json:"value"`
			} `json:"price"`
		} `json:"itemSummaries"`
	}
	err := c.do(ctx, request{
		op:          "search_items",
		method:      http.MethodGet,
		path:        browseBase + "/item_summary/search",
		query:       params,
		result:      &w,
		useAppToken: true,
	})
	if err != nil {
		return nil, err
	}

	items := make([]gateway.ItemSummary, 0, len(w.ItemSummaries))
	for _, s := range w.ItemSummaries {
		price, _ := decimal.NewFromString(s.Price.Value)
		items = append(items, gateway.ItemSummary{
			ListingID: s.ItemID,
			Title:     s.Title,
			Price:     price,
		})
	}
	return items, nil
}
