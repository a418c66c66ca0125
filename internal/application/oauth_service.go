package application

import (
	"context"
	"fmt"
	"net/url"

	"convertly-shopify-app/internal/config"
	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/infrastructure/shopify"
	"convertly-shopify-app/internal/ports"

	"github.com/rs/zerolog"
)

// OAuthService orchestrates the install flow: install redirect, callback
// verification, token exchange, persistence, and webhook registration.
type OAuthService struct {
	shops    ports.ShopRepository
	states   ports.StateStore
	client   ports.ShopifyClient
	verifier *shopify.Verifier
	cfg      config.ShopifyConfig
	appURL   string
	logger   zerolog.Logger
}

// NewOAuthService creates the OAuth flow controller.
func NewOAuthService(
	shops ports.ShopRepository,
	states ports.StateStore,
	client ports.ShopifyClient,
	verifier *shopify.Verifier,
	cfg config.ShopifyConfig,
	appURL string,
	logger zerolog.Logger,
) *OAuthService {
	return &OAuthService{
		shops:    shops,
		states:   states,
		client:   client,
		verifier: verifier,
		cfg:      cfg,
		appURL:   appURL,
		logger:   logger,
	}
}

// BeginInstall validates the shop parameter, issues a state token, and
// returns the Shopify authorize URL to redirect the merchant to.
func (s *OAuthService) BeginInstall(ctx context.Context, rawShop string) (string, error) {
	shop := domain.SanitizeShopDomain(rawShop)
	if shop == "" {
		return "", domain.ErrInvalidShopDomain
	}

	// Opportunistic cleanup; cheap and keeps the store bounded.
	s.states.SweepExpired(ctx)

	state, err := s.states.Issue(ctx, shop)
	if err != nil {
		return "", fmt.Errorf("failed to issue state token: %w", err)
	}

	authURL := s.client.GenerateAuthURL(shop, s.cfg.Scopes, s.cfg.RedirectURI, state)

	s.logger.Info().Str("shop", shop).Msg("Starting OAuth install")
	return authURL, nil
}

// CompleteInstall handles the OAuth callback. It verifies the state token
// and query HMAC, exchanges the code for an access token, sanity-checks the
// token, and atomically upserts the shop record. On success it returns the
// URL of the app's embedded entry point. Nothing is persisted on any
// failure path.
func (s *OAuthService) CompleteInstall(ctx context.Context, query url.Values) (string, error) {
	shopParam := query.Get("shop")
	code := query.Get("code")
	state := query.Get("state")
	if shopParam == "" || code == "" || state == "" || query.Get("hmac") == "" {
		return "", domain.ErrInvalidShopDomain
	}

	shop := domain.SanitizeShopDomain(shopParam)
	if shop == "" {
		return "", domain.ErrInvalidShopDomain
	}

	// State first: a failed CSRF check means the rest of the request is
	// untrusted. Detail stays in the server log; the caller only sees a
	// generic invalid-state error.
	if !s.states.VerifyAndConsume(ctx, state, shop) {
		s.logger.Warn().Str("shop", shop).Msg("OAuth state verification failed")
		return "", domain.ErrInvalidState
	}

	if !s.verifier.VerifyQuery(query) {
		s.logger.Warn().Str("shop", shop).Msg("OAuth callback HMAC verification failed")
		return "", domain.ErrInvalidHMAC
	}

	rawToken, err := s.client.ExchangeToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}

	token, err := shopify.SanitizeAccessToken(rawToken)
	if err != nil {
		s.logger.Error().
			Str("shop", shop).
			Int("token_length", len(rawToken)).
			Msg("Access token failed sanity check, not persisting")
		return "", err
	}

	isReinstall := false
	if _, err := s.shops.FindByDomain(ctx, shop); err == nil {
		isReinstall = true
	}

	if err := s.shops.UpsertOnInstall(ctx, shop, token); err != nil {
		return "", fmt.Errorf("failed to persist shop: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Bool("reinstall", isReinstall).
		Msg("OAuth install completed")

	// First authenticated call with the fresh token; activation lag on
	// Shopify's side is absorbed by the client's retry policy.
	if info, err := s.client.GetShop(ctx, shop, token); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to fetch shop info after install")
	} else {
		s.logger.Info().Str("shop", shop).Str("shop_name", info.Name).Msg("Fetched shop info")
	}

	// Webhook registration is best-effort: the merchant is already
	// installed, and missing webhooks only degrade billing sync.
	s.registerWebhooks(ctx, shop, token)

	return fmt.Sprintf("%s/?shop=%s", s.appURL, url.QueryEscape(shop)), nil
}

// registerWebhooks subscribes the shop to every topic the app needs,
// de-duplicating against webhooks already registered on a reinstall.
func (s *OAuthService) registerWebhooks(ctx context.Context, shop, token string) {
	address := s.appURL + "/webhooks/shopify"

	existing := make(map[string]bool)
	webhooks, err := s.client.ListWebhooks(ctx, shop, token)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to list existing webhooks")
	} else {
		for _, w := range webhooks {
			existing[w.Topic] = true
		}
	}

	for _, topic := range domain.SubscribedTopics() {
		if existing[topic] {
			continue
		}
		if _, err := s.client.CreateWebhook(ctx, shop, token, topic, address); err != nil {
			s.logger.Warn().
				Err(err).
				Str("shop", shop).
				Str("topic", topic).
				Msg("Failed to register webhook")
			continue
		}
		s.logger.Info().Str("shop", shop).Str("topic", topic).Msg("Registered webhook")
	}
}
