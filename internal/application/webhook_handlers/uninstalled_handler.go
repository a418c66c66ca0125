package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app/uninstalled webhook events: the shop's
// access token and billing fields are cleared and the plan expired. The
// record itself is kept until the mandatory shop/redact webhook erases it.
type AppUninstalledHandler struct {
	shops  ports.ShopRepository
	logger zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(shops ports.ShopRepository, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{shops: shops, logger: logger}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle processes an app uninstalled webhook event. Idempotent:
// redelivery for an already-cleared or already-deleted shop is a no-op.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := shopFromEvent(event)
	if shopDomain == "" {
		return fmt.Errorf("%w: app uninstalled webhook missing shop domain", domain.ErrInvalidPayload)
	}

	if err := h.shops.MarkUninstalled(ctx, shopDomain); err != nil {
		return fmt.Errorf("failed to process uninstall: %w", err)
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("Shop uninstalled, cleared token and expired plan")
	return nil
}

// shopFromEvent prefers the header-derived shop and falls back to the
// payload fields Shopify has used across API versions.
func shopFromEvent(event *domain.WebhookEvent) string {
	if event.Shop != "" {
		return event.Shop
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return ""
	}
	if v, ok := payload["myshopify_domain"].(string); ok && v != "" {
		return v
	}
	if v, ok := payload["domain"].(string); ok && v != "" {
		return v
	}
	if v, ok := payload["shop_domain"].(string); ok && v != "" {
		return v
	}
	return ""
}
