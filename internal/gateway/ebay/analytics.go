package ebay

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"flipflow/internal/gateway"
)

const analyticsBase = "/sell/analytics/v1"

// GetTrafficReport fetches views/impressions/clicks for a set of listings
// over a named date range (e.g. "LAST_90_DAYS").
func (c *Client) GetTrafficReport(ctx context.Context, listingIDs []string, dateRange string, metrics []string) ([]gateway.TrafficRecord, error) {
	filter := fmt.Sprintf("listing_ids:{%s};date_range:%s", strings.Join(listingIDs, ","), dateRange)

	var w struct {
		Records []struct {
			ListingID string `json:"listingId"`
			Metrics   struct {
				Views       int `json:"LISTING_VIEWS_TOTAL"`
				Impressions int `json:"LISTING_IMPRESSION_TOTAL"`
				Clicks      int `json:"CLICK_THROUGH_TOTAL"`
			} `json:"metrics"`
		} `json:"records"`
	}
	err := c.do(ctx, request{
		op:     "get_traffic_report",
		method: http.MethodGet,
		path:   analyticsBase + "/traffic_report",
		query: map[string]string{
			"dimension": "LISTING",
			"filter":    filter,
			"metric":    strings.Join(metrics, ","),
		},
		result: &w,
	})
	if err != nil {
		return nil, err
	}

	records := make([]gateway.TrafficRecord, 0, len(w.Records))
	for _, r := range w.Records {
		records = append(records, gateway.TrafficRecord{
			ListingID:   r.ListingID,
			Views:       r.Metrics.Views,
			Impressions: r.Metrics.Impressions,
			Clicks:      r.Metrics.Clicks,
		})
	}
	return records, nil
}
