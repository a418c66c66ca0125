package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"convertly-shopify-app/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// fakeShopRepo is an in-memory ports.ShopRepository with the same upsert
// semantics as the Mongo implementation.
type fakeShopRepo struct {
	mu    sync.Mutex
	shops map[string]*domain.Shop
}

func newFakeShopRepo() *fakeShopRepo {
	return &fakeShopRepo{shops: make(map[string]*domain.Shop)}
}

func (r *fakeShopRepo) FindByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shop, ok := r.shops[shopDomain]
	if !ok {
		return nil, domain.ErrShopNotFound
	}
	copied := *shop
	return &copied, nil
}

func (r *fakeShopRepo) UpsertOnInstall(ctx context.Context, shopDomain, accessToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()

	shop, ok := r.shops[shopDomain]
	if !ok {
		r.shops[shopDomain] = &domain.Shop{
			Domain:            shopDomain,
			AccessToken:       accessToken,
			PlanType:          domain.PlanFree,
			PlanStatus:        domain.PlanStatusActive,
			FirstInstalledAt:  now,
			LastReinstalledAt: now,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return nil
	}

	shop.AccessToken = accessToken
	shop.LastReinstalledAt = now
	shop.UpdatedAt = now
	if shop.PlanStatus == domain.PlanStatusExpired {
		shop.PlanType = domain.PlanFree
		shop.PlanStatus = domain.PlanStatusActive
		shop.BillingChargeID = ""
	}
	return nil
}

func (r *fakeShopRepo) UpdatePlan(ctx context.Context, shopDomain string, planType domain.PlanType, planStatus domain.PlanStatus, chargeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shop, ok := r.shops[shopDomain]
	if !ok {
		return nil
	}
	shop.PlanType = planType
	shop.PlanStatus = planStatus
	shop.BillingChargeID = chargeID
	shop.UpdatedAt = time.Now()
	return nil
}

func (r *fakeShopRepo) MarkUninstalled(ctx context.Context, shopDomain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shop, ok := r.shops[shopDomain]
	if !ok {
		return nil
	}
	shop.AccessToken = ""
	shop.BillingChargeID = ""
	shop.PlanStatus = domain.PlanStatusExpired
	shop.UpdatedAt = time.Now()
	return nil
}

func (r *fakeShopRepo) DeleteAll(ctx context.Context, shopDomain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shops, shopDomain)
	return nil
}

func (r *fakeShopRepo) TouchLastUsed(ctx context.Context, shopDomain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if shop, ok := r.shops[shopDomain]; ok {
		shop.LastUsedAt = time.Now()
	}
	return nil
}

func (r *fakeShopRepo) List(ctx context.Context) ([]*domain.Shop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Shop, 0, len(r.shops))
	for _, shop := range r.shops {
		copied := *shop
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeShopRepo) get(shopDomain string) *domain.Shop {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shops[shopDomain]
}

func (r *fakeShopRepo) put(shop *domain.Shop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shops[shop.Domain] = shop
}

// fakeShopifyClient is a canned ports.ShopifyClient that records the calls
// the services make.
type fakeShopifyClient struct {
	mu sync.Mutex

	token        string
	exchangeErr  error
	createdHooks []string
	cancelled    []uint64
	charge       *goshopify.RecurringApplicationCharge
}

func newFakeShopifyClient(token string) *fakeShopifyClient {
	return &fakeShopifyClient{token: token}
}

func (c *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) string {
	return fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=test-key&scope=%s&redirect_uri=%s&state=%s",
		shop,
		url.QueryEscape(strings.Join(scopes, ",")),
		url.QueryEscape(redirectURI),
		state,
	)
}

func (c *fakeShopifyClient) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	if c.exchangeErr != nil {
		return "", c.exchangeErr
	}
	return c.token, nil
}

func (c *fakeShopifyClient) GetShop(ctx context.Context, shop string, accessToken string) (*goshopify.Shop, error) {
	return &goshopify.Shop{MyshopifyDomain: shop}, nil
}

func (c *fakeShopifyClient) ListWebhooks(ctx context.Context, shop string, accessToken string) ([]goshopify.Webhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hooks := make([]goshopify.Webhook, 0, len(c.createdHooks))
	for _, topic := range c.createdHooks {
		hooks = append(hooks, goshopify.Webhook{Topic: topic})
	}
	return hooks, nil
}

func (c *fakeShopifyClient) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*goshopify.Webhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createdHooks = append(c.createdHooks, topic)
	return &goshopify.Webhook{Topic: topic, Address: address}, nil
}

func (c *fakeShopifyClient) CreateRecurringCharge(ctx context.Context, shop string, accessToken string, charge goshopify.RecurringApplicationCharge) (*goshopify.RecurringApplicationCharge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	created := charge
	created.Id = 42
	created.ConfirmationURL = "https://" + shop + "/admin/charges/42/confirm"
	c.charge = &created
	return &created, nil
}

func (c *fakeShopifyClient) CancelRecurringCharge(ctx context.Context, shop string, accessToken string, chargeID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, chargeID)
	return nil
}

func (c *fakeShopifyClient) cancelledIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.cancelled...)
}

func (c *fakeShopifyClient) createdTopics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.createdHooks...)
}
