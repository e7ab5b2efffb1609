package ebay

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"flipflow/internal/gateway"
)

const marketingBase = "/sell/marketing/v1"

type wireCampaign struct {
	CampaignID     string `json:"campaignId"`
	CampaignName   string `json:"campaignName"`
	CampaignStatus string `json:"campaignStatus"`
	FundingStrategy struct {
		BidPercentage string `json:"bidPercentage"`
	} `json:"fundingStrategy"`
}

func fromWireCampaign(w wireCampaign) *gateway.CampaignInfo {
	adRate, _ := strconv.ParseFloat(w.FundingStrategy.BidPercentage, 64)
	return &gateway.CampaignInfo{
		CampaignID: w.CampaignID,
		Name:       w.CampaignName,
		AdRate:     adRate,
		Status:     w.CampaignStatus,
	}
}

// CreateCampaign creates a cost-per-sale promoted-listings campaign.
func (c *Client) CreateCampaign(ctx context.Context, req gateway.CampaignRequest) (*gateway.CampaignInfo, error) {
	body := map[string]any{
		"campaignName":  req.Name,
		"marketplaceId": "EBAY_US",
		"fundingStrategy": map[string]any{
			"fundingModel":  "COST_PER_SALE",
			"bidPercentage": strconv.FormatFloat(req.AdRate, 'f', 1, 64),
		},
	}

	var w wireCampaign
	err := c.do(ctx, request{
		op:     "create_campaign",
		method: http.MethodPost,
		path:   marketingBase + "/ad_campaign",
		body:   body,
		result: &w,
	})
	if err != nil {
		return nil, err
	}
	info := fromWireCampaign(w)
	if info.Name == "" {
		info.Name = req.Name
	}
	if info.AdRate == 0 {
		info.AdRate = req.AdRate
	}
	return info, nil
}

// EndCampaign stops a running campaign.
func (c *Client) EndCampaign(ctx context.Context, campaignID string) error {
	return c.do(ctx, request{
		op:     "end_campaign",
		method: http.MethodPost,
		path:   marketingBase + "/ad_campaign/" + url.PathEscape(campaignID) + "/end",
	})
}

// GetCampaign fetches campaign details; nil, nil when absent.
func (c *Client) GetCampaign(ctx context.Context, campaignID string) (*gateway.CampaignInfo, error) {
	var w wireCampaign
	err := c.do(ctx, request{
		op:     "get_campaign",
		method: http.MethodGet,
		path:   marketingBase + "/ad_campaign/" + url.PathEscape(campaignID),
		result: &w,
	})
	if gateway.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromWireCampaign(w), nil
}
