package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"convertly-shopify-app/internal/application"
	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/infrastructure/metrics"
	"convertly-shopify-app/internal/infrastructure/shopify"
	"convertly-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookHandler terminates Shopify webhook deliveries: signature
// verification over the raw body, then topic dispatch. Verification always
// happens before the body is parsed.
type WebhookHandler struct {
	verifier   *shopify.Verifier
	dispatcher *application.WebhookDispatcher
	log        ports.WebhookLog
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewWebhookHandler creates the webhook HTTP handler. log may be nil.
func NewWebhookHandler(
	verifier *shopify.Verifier,
	dispatcher *application.WebhookDispatcher,
	log ports.WebhookLog,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		log:        log,
		metrics:    m,
		logger:     logger,
	}
}

// Handle processes POST /webhooks/shopify.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
		return
	}

	hmacHeader := r.Header.Get("X-Shopify-Hmac-Sha256")
	if !h.verifier.VerifyWebhook(payload, hmacHeader) {
		h.metrics.WebhooksRejected.Inc()
		h.logger.Warn().
			Str("topic", topic).
			Str("shop", r.Header.Get("X-Shopify-Shop-Domain")).
			Msg("Webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	event := &domain.WebhookEvent{
		Topic:    topic,
		Shop:     r.Header.Get("X-Shopify-Shop-Domain"),
		Payload:  payload,
		Verified: true,
	}
	h.metrics.WebhooksReceived.WithLabelValues(topic).Inc()

	if h.log != nil {
		if err := h.log.LogWebhook(r.Context(), event); err != nil {
			// Audit logging must not block processing.
			h.logger.Warn().Err(err).Str("topic", topic).Msg("Failed to log webhook event")
		}
	}

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		// A permanently malformed body can never succeed on redelivery;
		// answer 400 so Shopify does not retry it forever.
		if errors.Is(err, domain.ErrInvalidPayload) {
			h.logger.Warn().
				Err(err).
				Str("topic", topic).
				Str("shop", event.Shop).
				Msg("Webhook payload rejected")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		h.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("shop", event.Shop).
			Msg("Failed to process webhook event")
		// 500 triggers a Shopify redelivery; handlers are idempotent so a
		// retry is always safe.
		http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"received": "true"})
}
