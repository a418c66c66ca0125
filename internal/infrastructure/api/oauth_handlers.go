package api

import (
	"errors"
	"net/http"

	"convertly-shopify-app/internal/application"
	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// OAuthHandlers exposes the install and callback endpoints over HTTP.
type OAuthHandlers struct {
	oauth   *application.OAuthService
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewOAuthHandlers creates the OAuth HTTP handlers.
func NewOAuthHandlers(oauth *application.OAuthService, m *metrics.Metrics, logger zerolog.Logger) *OAuthHandlers {
	return &OAuthHandlers{oauth: oauth, metrics: m, logger: logger}
}

// Install handles GET /install?shop=<domain>: 302 to the Shopify authorize
// URL, or 400 for an invalid shop.
func (h *OAuthHandlers) Install(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.oauth.BeginInstall(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidShopDomain) {
			http.Error(w, "Missing or invalid 'shop' parameter", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to begin install")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.InstallsStarted.Inc()
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /auth/callback: 302 to the app home on success, 400
// on any validation or authentication failure, 500 when the token exchange
// fails. Auth failures deliberately share one generic message; the detail
// is in the server log.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	redirectURL, err := h.oauth.CompleteInstall(r.Context(), r.URL.Query())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidShopDomain):
			h.metrics.CallbackFailures.WithLabelValues("params").Inc()
			http.Error(w, "Missing or invalid callback parameters", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidHMAC):
			h.metrics.CallbackFailures.WithLabelValues("auth").Inc()
			http.Error(w, "Invalid request. Please try installing again.", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidAccessToken):
			h.metrics.CallbackFailures.WithLabelValues("token").Inc()
			http.Error(w, "Installation failed. Please try installing again.", http.StatusInternalServerError)
		default:
			h.metrics.CallbackFailures.WithLabelValues("upstream").Inc()
			h.logger.Error().Err(err).Msg("OAuth callback failed")
			http.Error(w, "Failed to complete installation. Please try again.", http.StatusInternalServerError)
		}
		return
	}

	h.metrics.InstallsCompleted.Inc()
	http.Redirect(w, r, redirectURL, http.StatusFound)
}
