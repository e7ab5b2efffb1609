// token.go manages OAuth 2.0 tokens for the eBay REST APIs.
//
// Two grants are in play: the refresh-token grant mints user tokens for the
// seller APIs, and the client-credentials grant mints application tokens for
// the Browse API. Both are cached until five minutes before expiry.
package ebay

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"flipflow/internal/gateway"
)

const tokenPath = "/identity/v1/oauth2/token"

const sellerScopes = "https://api.ebay.com/oauth/api_scope/sell.inventory " +
	"https://api.ebay.com/oauth/api_scope/sell.marketing " +
	"https://api.ebay.com/oauth/api_scope/sell.analytics.readonly " +
	"https://api.ebay.com/oauth/api_scope/sell.account " +
	"https://api.ebay.com/oauth/api_scope/sell.fulfillment"

const appScope = "https://api.ebay.com/oauth/api_scope"

// expiryBuffer refreshes tokens before they actually lapse.
const expiryBuffer = 5 * time.Minute

type token struct {
	value     string
	expiresAt time.Time
}

func (t *token) valid(now time.Time) bool {
	return t != nil && t.value != "" && now.Before(t.expiresAt.Add(-expiryBuffer))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenManager mints and caches OAuth tokens. Safe for concurrent use; it
// is shared by every endpoint family as a singleton per client.
type TokenManager struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	refreshToken string

	mu        sync.Mutex
	userToken *token
	appToken  *token
}

// NewTokenManager creates a manager pointed at the marketplace's OAuth
// endpoint for the given base URL.
func NewTokenManager(baseURL, clientID, clientSecret, refreshToken string) *TokenManager {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetBasicAuth(clientID, clientSecret).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &TokenManager{
		http:         httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
}

// UserToken returns a cached or freshly-minted seller-scope token.
func (tm *TokenManager) UserToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.userToken.valid(time.Now()) {
		return tm.userToken.value, nil
	}
	minted, err := tm.mint(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": tm.refreshToken,
		"scope":         sellerScopes,
	})
	if err != nil {
		return "", err
	}
	tm.userToken = minted
	return minted.value, nil
}

// AppToken returns a cached or freshly-minted application token.
func (tm *TokenManager) AppToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.appToken.valid(time.Now()) {
		return tm.appToken.value, nil
	}
	minted, err := tm.mint(ctx, map[string]string{
		"grant_type": "client_credentials",
		"scope":      appScope,
	})
	if err != nil {
		return "", err
	}
	tm.appToken = minted
	return minted.value, nil
}

func (tm *TokenManager) mint(ctx context.Context, form map[string]string) (*token, error) {
	var result tokenResponse
	resp, err := tm.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&result).
		Post(tokenPath)
	if err != nil {
		return nil, gateway.NewError(gateway.KindTransport, "oauth_token", err)
	}
	if resp.StatusCode() != 200 {
		return nil, gateway.Errorf(gateway.KindAuth, "oauth_token",
			"token request failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.AccessToken == "" {
		return nil, gateway.Errorf(gateway.KindAuth, "oauth_token", "empty access token in response")
	}
	return &token{
		value:     result.AccessToken,
		expiresAt: time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

// Invalidate drops both cached tokens (user and application) so the next
// call re-mints. Called
// after a 401 in case the token was revoked upstream.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.userToken = nil
	tm.appToken = nil
}

