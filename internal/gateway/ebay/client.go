// Package ebay implements gateway.Gateway against the eBay REST APIs.
//
// The client composes one authenticated resty HTTP client, a shared OAuth
// token manager, and a shared daily-quota rate limiter. Endpoint methods are
// grouped by API family across the files of this package:
//
//	inventory.go   — sell/inventory: items and bulk price updates
//	offers.go      — sell/inventory: offers (create/publish/withdraw)
//	analytics.go   — sell/analytics: traffic reports
//	marketing.go   — sell/marketing: promoted-listings campaigns
//	browse.go      — buy/browse: item search (application token)
//	negotiation.go — sell/negotiation: watcher offers and offer responses
//	account.go     — sell/account: fulfillment policy handling time
//
// Every request is rate-limited, retried up to three times on 429/500/502/503
// and transport errors, and mapped onto the gateway error taxonomy:
// 401/403 → Auth, 404 → NotFound, 409 → Duplicate, 429 → RateLimit,
// anything else ≥ 400 → Generic.
package ebay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"flipflow/internal/config"
	"flipflow/internal/gateway"
)

const maxRetries = 3

var errDailyQuota = errors.New("daily API call quota reached")

var baseURLs = map[string]string{
	"production": "https://api.ebay.com",
	"sandbox":    "https://api.sandbox.ebay.com",
}

// Client is the live marketplace gateway.
type Client struct {
	http   *resty.Client
	tokens *TokenManager
	rl     *RateLimiter
	logger *slog.Logger
}

// NewClient builds the client for the configured mode (sandbox/production).
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	baseURL, ok := baseURLs[cfg.Ebay.Mode]
	if !ok {
		return nil, fmt.Errorf("ebay client does not support mode %q", cfg.Ebay.Mode)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Language", "en-US")

	return &Client{
		http:   httpClient,
		tokens: NewTokenManager(baseURL, cfg.Ebay.ClientID, cfg.Ebay.ClientSecret, cfg.Ebay.RefreshToken),
		rl:     NewRateLimiter(),
		logger: logger.With("component", "ebay-client"),
	}, nil
}

// request describes one API call for the shared do() path.
type request struct {
	op          string
	method      string
	path        string
	query       map[string]string
	body        any
	result      any
	useAppToken bool
}

func retryable(status int) bool {
	return status == 429 || status == 500 || status == 502 || status == 503
}

// do executes a request with auth, rate limiting, retry, and error mapping.
func (c *Client) do(ctx context.Context, req request) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rl.Wait(ctx); err != nil {
			if errors.Is(err, errDailyQuota) {
				return gateway.NewError(gateway.KindRateLimit, req.op, err)
			}
			return err
		}

		var token string
		var err error
		if req.useAppToken {
			token, err = c.tokens.AppToken(ctx)
		} else {
			token, err = c.tokens.UserToken(ctx)
		}
		if err != nil {
			return err
		}

		r := c.http.R().
			SetContext(ctx).
			SetAuthToken(token)
		if req.query != nil {
			r.SetQueryParams(req.query)
		}
		if req.body != nil {
			r.SetHeader("Content-Type", "application/json").SetBody(req.body)
		}
		if req.result != nil {
			r.SetResult(req.result)
		}

		c.rl.RecordCall()
		resp, err := r.Execute(req.method, req.path)
		if err != nil {
			lastErr = gateway.NewError(gateway.KindTransport, req.op, err)
			c.logger.Warn("transport error", "op", req.op, "attempt", attempt+1, "error", err)
			continue
		}

		status := resp.StatusCode()
		if retryable(status) {
			if status == http.StatusTooManyRequests {
				c.rl.RecordRateLimit()
			}
			lastErr = c.mapError(req.op, resp)
			c.logger.Warn("retryable status", "op", req.op, "status", status, "attempt", attempt+1)
			continue
		}
		if status == http.StatusUnauthorized {
			// The cached token may have been revoked; drop it so the next
			// request mints a fresh one.
			c.tokens.Invalidate()
		}
		if status >= 400 {
			return c.mapError(req.op, resp)
		}

		c.rl.RecordSuccess()
		return nil
	}

	if lastErr == nil {
		lastErr = gateway.Errorf(gateway.KindGeneric, req.op, "request failed after %d attempts", maxRetries+1)
	}
	return lastErr
}

// mapError converts an HTTP error response to the gateway taxonomy.
func (c *Client) mapError(op string, resp *resty.Response) error {
	status := resp.StatusCode()
	msg := resp.String()
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return gateway.Errorf(gateway.KindAuth, op, "authentication failed (%d): %s", status, msg)
	case status == http.StatusNotFound:
		return gateway.Errorf(gateway.KindNotFound, op, "resource not found: %s", msg)
	case status == http.StatusConflict:
		return gateway.Errorf(gateway.KindDuplicate, op, "duplicate resource (%d): %s", status, msg)
	case status == http.StatusTooManyRequests:
		return gateway.Errorf(gateway.KindRateLimit, op, "rate limit exceeded: %s", msg)
	default:
		return gateway.Errorf(gateway.KindGeneric, op, "api error (%d): %s", status, msg)
	}
}

var _ gateway.Gateway = (*Client)(nil)
