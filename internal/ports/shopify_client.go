package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Shopify Admin API operations this app performs.
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) string
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// Shop API
	GetShop(ctx context.Context, shop string, accessToken string) (*shopify.Shop, error)

	// Webhook API
	ListWebhooks(ctx context.Context, shop string, accessToken string) ([]shopify.Webhook, error)
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*shopify.Webhook, error)

	// Billing API
	CreateRecurringCharge(ctx context.Context, shop string, accessToken string, charge shopify.RecurringApplicationCharge) (*shopify.RecurringApplicationCharge, error)
	CancelRecurringCharge(ctx context.Context, shop string, accessToken string, chargeID uint64) error
}
