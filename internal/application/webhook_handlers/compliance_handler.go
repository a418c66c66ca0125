package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// ComplianceHandler handles the mandatory GDPR webhook topics. This app
// stores no customer PII beyond what Shopify holds, so the customer topics
// are acknowledge-only; shop/redact hard-deletes everything for the shop.
type ComplianceHandler struct {
	shops  ports.ShopRepository
	logger zerolog.Logger
}

// NewComplianceHandler creates a new compliance webhook handler
func NewComplianceHandler(shops ports.ShopRepository, logger zerolog.Logger) *ComplianceHandler {
	return &ComplianceHandler{shops: shops, logger: logger}
}

// CanHandle returns true if this handler can process the given topic
func (h *ComplianceHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomerDataRequest ||
		topic == domain.TopicCustomerRedact ||
		topic == domain.TopicShopRedact
}

// Handle processes a compliance webhook event.
func (h *ComplianceHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	switch event.Topic {
	case domain.TopicCustomerDataRequest, domain.TopicCustomerRedact:
		// No customer data is stored locally; acknowledge and keep an audit
		// trail in the log.
		h.logger.Info().
			Str("topic", event.Topic).
			Str("shop", shopFromEvent(event)).
			Msg("Compliance webhook acknowledged, no local customer data")
		return nil

	case domain.TopicShopRedact:
		return h.redactShop(ctx, event)
	}
	return nil
}

// redactShop erases every persisted row for the shop. Fired by Shopify
// roughly 48 hours after uninstall. Idempotent.
func (h *ComplianceHandler) redactShop(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := shopFromEvent(event)
	if shopDomain == "" {
		// shop/redact payloads carry shop_domain; fall back to shop_id-only
		// payloads by acknowledging since there is nothing we can match.
		var payload struct {
			ShopID int64 `json:"shop_id"`
		}
		_ = json.Unmarshal(event.Payload, &payload)
		h.logger.Warn().
			Int64("shop_id", payload.ShopID).
			Msg("shop/redact without shop domain, nothing to erase")
		return nil
	}

	if err := h.shops.DeleteAll(ctx, shopDomain); err != nil {
		return fmt.Errorf("failed to erase shop data: %w", err)
	}

	h.logger.Info().
		Str("shop", shopDomain).
		Msg("Erased all persisted data for shop")
	return nil
}
