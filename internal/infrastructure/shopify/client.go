package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"convertly-shopify-app/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	apiKey      string
	apiSecret   string
	app         goshopify.App
	httpClient  *http.Client
	retryPolicy RetryPolicy
	logger      zerolog.Logger
}

// NewClient creates a Shopify client adapter with the default retry policy
// and a bounded HTTP timeout for server-to-server calls.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	return NewClientWithOptions(apiKey, apiSecret, DefaultRetryPolicy(), logger)
}

// NewClientWithOptions creates a client with an explicit retry policy.
func NewClientWithOptions(apiKey, apiSecret string, retryPolicy RetryPolicy, logger zerolog.Logger) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		app:         app,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryPolicy: retryPolicy,
		logger:      logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	cl, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cl, nil
}

// Authentication

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) string {
	// Shopify expects scopes comma-separated, no spaces.
	scopesStr := strings.Join(scopes, ",")
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(scopesStr),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("shop", shop).
			Str("body", string(body)).
			Msg("Token exchange returned non-200")
		return "", fmt.Errorf("failed to exchange token: status %d", resp.StatusCode)
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	return tokenResponse.AccessToken, nil
}

// Shop API

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*goshopify.Shop, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var shop *goshopify.Shop
	err = withAuthRetry(ctx, c.retryPolicy, func() error {
		var inner error
		shop, inner = cl.Shop.Get(ctx, nil)
		return inner
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return shop, nil
}

// Webhook API

func (c *client) ListWebhooks(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var webhooks []goshopify.Webhook
	err = withAuthRetry(ctx, c.retryPolicy, func() error {
		var inner error
		webhooks, inner = cl.Webhook.List(ctx, nil)
		return inner
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return webhooks, nil
}

func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) (*goshopify.Webhook, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	var created *goshopify.Webhook
	err = withAuthRetry(ctx, c.retryPolicy, func() error {
		var inner error
		created, inner = cl.Webhook.Create(ctx, webhook)
		return inner
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return created, nil
}

// Billing API

func (c *client) CreateRecurringCharge(ctx context.Context, shopDomain string, accessToken string, charge goshopify.RecurringApplicationCharge) (*goshopify.RecurringApplicationCharge, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	created, err := cl.RecurringApplicationCharge.Create(ctx, charge)
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring charge: %w", err)
	}
	return created, nil
}

func (c *client) CancelRecurringCharge(ctx context.Context, shopDomain string, accessToken string, chargeID uint64) error {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	if err := cl.RecurringApplicationCharge.Delete(ctx, chargeID); err != nil {
		return fmt.Errorf("failed to cancel recurring charge: %w", err)
	}
	return nil
}
