package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"convertly-shopify-app/internal/application"
	"convertly-shopify-app/internal/domain"

	"github.com/rs/zerolog"
)

// SubscriptionHandlers exposes plan status and charge management.
type SubscriptionHandlers struct {
	billing *application.BillingService
	logger  zerolog.Logger
}

// NewSubscriptionHandlers creates the subscription HTTP handlers.
func NewSubscriptionHandlers(billing *application.BillingService, logger zerolog.Logger) *SubscriptionHandlers {
	return &SubscriptionHandlers{billing: billing, logger: logger}
}

func sanitizedShop(r *http.Request) string {
	return domain.SanitizeShopDomain(r.URL.Query().Get("shop"))
}

// Status handles GET /subscription/status?shop=.
func (h *SubscriptionHandlers) Status(w http.ResponseWriter, r *http.Request) {
	shop := sanitizedShop(r)
	if shop == "" {
		http.Error(w, "Missing or invalid 'shop' parameter", http.StatusBadRequest)
		return
	}

	status, err := h.billing.PlanStatus(r.Context(), shop)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to load plan status")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.billing.TouchUsage(r.Context(), shop)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		*domain.Shop
		CanUseApp bool `json:"can_use_app"`
	}{
		Shop:      status,
		CanUseApp: h.billing.CanUseApp(r.Context(), shop),
	})
}

// CreateCharge handles POST /subscription/charge?shop=&plan=monthly|annual.
// Responds with the Shopify confirmation URL the merchant must approve.
func (h *SubscriptionHandlers) CreateCharge(w http.ResponseWriter, r *http.Request) {
	shop := sanitizedShop(r)
	if shop == "" {
		http.Error(w, "Missing or invalid 'shop' parameter", http.StatusBadRequest)
		return
	}

	planType := domain.PlanType(r.URL.Query().Get("plan"))
	if planType != domain.PlanMonthly && planType != domain.PlanAnnual {
		http.Error(w, "plan must be monthly or annual", http.StatusBadRequest)
		return
	}

	confirmationURL, err := h.billing.CreateCharge(r.Context(), shop, planType)
	if err != nil {
		if errors.Is(err, domain.ErrShopNotFound) {
			http.Error(w, "Shop is not installed", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to create charge")
		http.Error(w, "Failed to create charge", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"confirmation_url": confirmationURL})
}

// CancelCharge handles POST /subscription/cancel?shop=.
func (h *SubscriptionHandlers) CancelCharge(w http.ResponseWriter, r *http.Request) {
	shop := sanitizedShop(r)
	if shop == "" {
		http.Error(w, "Missing or invalid 'shop' parameter", http.StatusBadRequest)
		return
	}

	if err := h.billing.CancelCharge(r.Context(), shop); err != nil {
		if errors.Is(err, domain.ErrShopNotFound) {
			http.Error(w, "Shop is not installed", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to cancel charge")
		http.Error(w, "Failed to cancel charge", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}
