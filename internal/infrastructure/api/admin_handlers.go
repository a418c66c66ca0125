package api

import (
	"encoding/json"
	"net/http"

	"convertly-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// AdminHandlers exposes the operator overview endpoints.
type AdminHandlers struct {
	shops  ports.ShopRepository
	logger zerolog.Logger
}

// NewAdminHandlers creates the admin HTTP handlers.
func NewAdminHandlers(shops ports.ShopRepository, logger zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{shops: shops, logger: logger}
}

// ListShops handles GET /admin/shops. Access tokens are never serialized.
func (h *AdminHandlers) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shops.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list shops")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count": len(shops),
		"shops": shops,
	})
}
