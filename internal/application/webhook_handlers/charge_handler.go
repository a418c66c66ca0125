package webhook_handlers

import (
	"context"
	"fmt"

	"convertly-shopify-app/internal/application"
	"convertly-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// ChargeHandler handles recurring-application-charge webhook events and
// reconciles them into the shop's plan state.
type ChargeHandler struct {
	billing *application.BillingService
	logger  zerolog.Logger
}

// NewChargeHandler creates a new charge webhook handler
func NewChargeHandler(billing *application.BillingService, logger zerolog.Logger) *ChargeHandler {
	return &ChargeHandler{billing: billing, logger: logger}
}

// CanHandle returns true if this handler can process the given topic
func (h *ChargeHandler) CanHandle(topic string) bool {
	return topic == domain.TopicChargeCreate || topic == domain.TopicChargeUpdate
}

// Handle normalizes the charge payload and applies it to stored state.
func (h *ChargeHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := shopFromEvent(event)
	if shopDomain == "" {
		return fmt.Errorf("%w: charge webhook missing shop domain", domain.ErrInvalidPayload)
	}

	update, err := domain.NormalizeChargePayload(event.Payload)
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Str("charge_id", update.ChargeID).
		Str("charge_status", update.Status).
		Msg("Processing charge webhook")

	return h.billing.ApplyChargeUpdate(ctx, shopDomain, update)
}
