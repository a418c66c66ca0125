package application

import (
	"context"
	"fmt"
	"strconv"

	"convertly-shopify-app/internal/config"
	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BillingService owns subscription state: plan lookups, charge creation and
// cancellation against the Shopify billing API, and webhook-driven plan
// reconciliation.
type BillingService struct {
	shops  ports.ShopRepository
	client ports.ShopifyClient
	cfg    config.ShopifyConfig
	appURL string
	logger zerolog.Logger
}

// NewBillingService creates the billing service.
func NewBillingService(
	shops ports.ShopRepository,
	client ports.ShopifyClient,
	cfg config.ShopifyConfig,
	appURL string,
	logger zerolog.Logger,
) *BillingService {
	return &BillingService{
		shops:  shops,
		client: client,
		cfg:    cfg,
		appURL: appURL,
		logger: logger,
	}
}

// PlanStatus returns the shop's plan state, defaulting to free/active when
// the shop is not installed.
func (s *BillingService) PlanStatus(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	shop, err := s.shops.FindByDomain(ctx, shopDomain)
	if err == domain.ErrShopNotFound {
		return &domain.Shop{
			Domain:     shopDomain,
			PlanType:   domain.PlanFree,
			PlanStatus: domain.PlanStatusActive,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return shop, nil
}

// CanUseApp reports whether the shop may use the app: free plans always
// can, an admin-granted-free override always can, and paid plans require an
// active status.
func (s *BillingService) CanUseApp(ctx context.Context, shopDomain string) bool {
	shop, err := s.PlanStatus(ctx, shopDomain)
	if err != nil {
		return false
	}
	if shop.AdminGrantedFree || shop.PlanType == domain.PlanFree {
		return true
	}
	return shop.PlanStatus == domain.PlanStatusActive
}

// TouchUsage bumps last_used_at for daily usage tracking. Best-effort.
func (s *BillingService) TouchUsage(ctx context.Context, shopDomain string) {
	if err := s.shops.TouchLastUsed(ctx, shopDomain); err != nil {
		s.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Failed to update usage timestamp")
	}
}

// CreateCharge creates a recurring application charge for the requested
// tier and returns the Shopify confirmation URL the merchant must approve.
func (s *BillingService) CreateCharge(ctx context.Context, shopDomain string, planType domain.PlanType) (string, error) {
	shop, err := s.shops.FindByDomain(ctx, shopDomain)
	if err != nil {
		return "", err
	}
	if shop.AccessToken == "" {
		return "", domain.ErrShopNotFound
	}

	name := "Monthly Subscription"
	price := s.cfg.MonthlyPrice
	if planType == domain.PlanAnnual {
		name = "Annual Subscription"
		price = s.cfg.AnnualPrice
	}

	chargePrice := decimal.NewFromFloat(price)
	charge := goshopify.RecurringApplicationCharge{
		Name:      name,
		Price:     &chargePrice,
		ReturnURL: fmt.Sprintf("%s/subscription?shop=%s", s.appURL, shopDomain),
	}

	created, err := s.client.CreateRecurringCharge(ctx, shopDomain, shop.AccessToken, charge)
	if err != nil {
		return "", fmt.Errorf("failed to create charge: %w", err)
	}
	return created.ConfirmationURL, nil
}

// CancelCharge cancels the shop's current recurring charge and records the
// cancellation locally.
func (s *BillingService) CancelCharge(ctx context.Context, shopDomain string) error {
	shop, err := s.shops.FindByDomain(ctx, shopDomain)
	if err != nil {
		return err
	}
	if shop.BillingChargeID == "" {
		return fmt.Errorf("no active charge for shop %s", shopDomain)
	}

	chargeID, err := strconv.ParseUint(shop.BillingChargeID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid stored charge id %q: %w", shop.BillingChargeID, err)
	}

	if err := s.client.CancelRecurringCharge(ctx, shopDomain, shop.AccessToken, chargeID); err != nil {
		return err
	}

	return s.shops.UpdatePlan(ctx, shopDomain, shop.PlanType, domain.PlanStatusCancelled, shop.BillingChargeID)
}

// ApplyChargeUpdate reconciles a charge webhook against stored state:
// normalizes status, infers the tier, cancels a superseded paid charge
// best-effort, and updates the plan fields. Idempotent; a shop that no
// longer exists is a no-op.
func (s *BillingService) ApplyChargeUpdate(ctx context.Context, shopDomain string, update *domain.ChargeUpdate) error {
	planStatus := domain.NormalizePlanStatus(update.Status)
	planType := update.InferPlanType(s.cfg.AnnualPrice)

	shop, err := s.shops.FindByDomain(ctx, shopDomain)
	if err == domain.ErrShopNotFound {
		// Cross-topic ordering is not guaranteed; a charge update after the
		// shop record is gone is a safe no-op.
		s.logger.Info().
			Str("shop", shopDomain).
			Str("charge_id", update.ChargeID).
			Msg("Charge update for unknown shop, skipping")
		return nil
	}
	if err != nil {
		return err
	}

	// A newly active charge supersedes any previous paid charge; cancel the
	// stale one so the merchant is never double-billed. Failure to cancel is
	// logged but never blocks recording the new plan.
	if planStatus == domain.PlanStatusActive &&
		shop.BillingChargeID != "" &&
		shop.BillingChargeID != update.ChargeID &&
		shop.PlanType != domain.PlanFree {
		s.cancelStaleCharge(ctx, shop, update.ChargeID)
	}

	if err := s.shops.UpdatePlan(ctx, shopDomain, planType, planStatus, update.ChargeID); err != nil {
		return fmt.Errorf("failed to apply charge update: %w", err)
	}

	s.logger.Info().
		Str("shop", shopDomain).
		Str("charge_id", update.ChargeID).
		Str("plan_type", string(planType)).
		Str("plan_status", string(planStatus)).
		Msg("Applied charge update")
	return nil
}

func (s *BillingService) cancelStaleCharge(ctx context.Context, shop *domain.Shop, newChargeID string) {
	staleID, err := strconv.ParseUint(shop.BillingChargeID, 10, 64)
	if err != nil {
		s.logger.Warn().
			Str("shop", shop.Domain).
			Str("charge_id", shop.BillingChargeID).
			Msg("Stale charge id is not numeric, skipping cancellation")
		return
	}
	if shop.AccessToken == "" {
		return
	}
	if err := s.client.CancelRecurringCharge(ctx, shop.Domain, shop.AccessToken, staleID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("shop", shop.Domain).
			Str("stale_charge_id", shop.BillingChargeID).
			Str("new_charge_id", newChargeID).
			Msg("Failed to cancel superseded charge")
		return
	}
	s.logger.Info().
		Str("shop", shop.Domain).
		Str("stale_charge_id", shop.BillingChargeID).
		Msg("Cancelled superseded charge")
}
