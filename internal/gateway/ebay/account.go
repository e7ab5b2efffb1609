package ebay

import (
	"context"
	"net/http"
	"net/url"
)

const accountBase = "/sell/account/v1"

// UpdateHandlingTime sets the handling time on a fulfillment policy, which
// covers every listing bound to it.
func (c *Client) UpdateHandlingTime(ctx context.Context, policyID string, handlingDays int) error {
	body := map[string]any{
		"handlingTime": map[string]any{
			"value": handlingDays,
			"unit":  "DAY",
		},
	}
	return c.do(ctx, request{
		op:     "update_handling_time",
		method: http.MethodPut,
		path:   accountBase + "/fulfillment_policy/" + url.PathEscape(policyID),
		body:   body,
	})
}
