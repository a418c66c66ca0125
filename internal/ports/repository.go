package ports

import (
	"context"

	"convertly-shopify-app/internal/domain"
)

// ShopRepository defines persistence for shop records and their access
// tokens. Every write is keyed on the unique shop domain and must be atomic
// at the storage layer; callers never read-modify-write.
type ShopRepository interface {
	// FindByDomain returns the shop record, or domain.ErrShopNotFound.
	FindByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error)

	// UpsertOnInstall atomically creates or rotates the record after a
	// successful OAuth callback. New shops start on the free plan with
	// first_installed_at set; reinstalls rotate the token and bump
	// last_reinstalled_at while preserving first_installed_at.
	UpsertOnInstall(ctx context.Context, shopDomain, accessToken string) error

	// UpdatePlan applies a webhook-driven plan change. chargeID may be empty.
	UpdatePlan(ctx context.Context, shopDomain string, planType domain.PlanType, planStatus domain.PlanStatus, chargeID string) error

	// MarkUninstalled clears the access token and billing fields and expires
	// the plan. A no-op when the shop is already gone.
	MarkUninstalled(ctx context.Context, shopDomain string) error

	// DeleteAll hard-deletes every row for the shop (mandatory compliance
	// erasure). Idempotent.
	DeleteAll(ctx context.Context, shopDomain string) error

	// TouchLastUsed bumps last_used_at, at most once per day.
	TouchLastUsed(ctx context.Context, shopDomain string) error

	// List returns all shop records (admin overview).
	List(ctx context.Context) ([]*domain.Shop, error)
}

// WebhookLog records verified webhook deliveries for audit.
type WebhookLog interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// StateStore issues and single-use-verifies anti-CSRF OAuth state tokens.
// Implementations must survive across server instances: the install and
// callback requests may not land on the same process.
type StateStore interface {
	// Issue generates a cryptographically random token bound to the shop
	// domain with a short expiry.
	Issue(ctx context.Context, shopDomain string) (string, error)

	// VerifyAndConsume checks the token exists, is unexpired, and is bound
	// to shopDomain, then deletes it. A second call for the same token
	// always returns false.
	VerifyAndConsume(ctx context.Context, token, shopDomain string) bool

	// SweepExpired drops expired tokens. Safe to call on any install.
	SweepExpired(ctx context.Context)
}
