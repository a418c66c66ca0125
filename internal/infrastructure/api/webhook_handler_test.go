package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"convertly-shopify-app/internal/application"
	"convertly-shopify-app/internal/application/webhook_handlers"
	"convertly-shopify-app/internal/config"
	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/infrastructure/metrics"
	"convertly-shopify-app/internal/infrastructure/shopify"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookTestEnv struct {
	repo    *fakeShopRepo
	client  *fakeShopifyClient
	handler *WebhookHandler
}

func newWebhookTestEnv(t *testing.T) *webhookTestEnv {
	t.Helper()

	repo := newFakeShopRepo()
	client := newFakeShopifyClient(testToken)
	cfg := config.ShopifyConfig{
		APIKey:       "test-key",
		APISecret:    testSecret,
		MonthlyPrice: 29.00,
		AnnualPrice:  290.00,
	}
	billing := application.NewBillingService(repo, client, cfg, testAppURL, zerolog.Nop())

	dispatcher := application.NewWebhookDispatcher(zerolog.Nop())
	dispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(repo, zerolog.Nop()))
	dispatcher.RegisterHandler(webhook_handlers.NewChargeHandler(billing, zerolog.Nop()))
	dispatcher.RegisterHandler(webhook_handlers.NewComplianceHandler(repo, zerolog.Nop()))

	verifier := shopify.NewVerifier(testSecret, testSecret)
	m := metrics.New(prometheus.NewRegistry())

	return &webhookTestEnv{
		repo:    repo,
		client:  client,
		handler: NewWebhookHandler(verifier, dispatcher, nil, m, zerolog.Nop()),
	}
}

func (env *webhookTestEnv) deliver(t *testing.T, topic, shop string, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", bytes.NewReader(body))
	req.Header.Set("X-Shopify-Topic", topic)
	req.Header.Set("X-Shopify-Shop-Domain", shop)
	if sign {
		mac := hmac.New(sha256.New, []byte(testSecret))
		mac.Write(body)
		req.Header.Set("X-Shopify-Hmac-Sha256", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	} else {
		req.Header.Set("X-Shopify-Hmac-Sha256", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	}

	rec := httptest.NewRecorder()
	env.handler.Handle(rec, req)
	return rec
}

func installedShop(domainName string) *domain.Shop {
	return &domain.Shop{
		Domain:      domainName,
		AccessToken: testToken,
		PlanType:    domain.PlanFree,
		PlanStatus:  domain.PlanStatusActive,
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	rec := env.deliver(t, domain.TopicAppUninstalled, shop, []byte(`{}`), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	record := env.repo.get(shop)
	assert.Equal(t, testToken, record.AccessToken, "unverified delivery must not mutate state")
	assert.Equal(t, domain.PlanStatusActive, record.PlanStatus)
}

func TestWebhookRejectsMissingTopic(t *testing.T) {
	env := newWebhookTestEnv(t)
	rec := env.deliver(t, "", "example.myshopify.com", []byte(`{}`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAppUninstalled(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	rec := env.deliver(t, domain.TopicAppUninstalled, shop, []byte(`{"id":1}`), true)
	require.Equal(t, http.StatusOK, rec.Code)

	record := env.repo.get(shop)
	require.NotNil(t, record, "uninstall keeps the record until shop/redact")
	assert.Empty(t, record.AccessToken)
	assert.Equal(t, domain.PlanStatusExpired, record.PlanStatus)
}

func TestWebhookAppUninstalledRedeliveryIsIdempotent(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	require.Equal(t, http.StatusOK, env.deliver(t, domain.TopicAppUninstalled, shop, []byte(`{}`), true).Code)
	require.Equal(t, http.StatusOK, env.deliver(t, domain.TopicAppUninstalled, shop, []byte(`{}`), true).Code)

	assert.Equal(t, domain.PlanStatusExpired, env.repo.get(shop).PlanStatus)
}

func TestWebhookAppUninstalledUnknownShopIsNoop(t *testing.T) {
	env := newWebhookTestEnv(t)
	rec := env.deliver(t, domain.TopicAppUninstalled, "gone.myshopify.com", []byte(`{}`), true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookChargeActivation(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	body := []byte(`{"recurring_application_charge":{"id":111,"name":"Monthly Subscription","price":"29.00","status":"active"}}`)
	rec := env.deliver(t, domain.TopicChargeCreate, shop, body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	record := env.repo.get(shop)
	assert.Equal(t, domain.PlanMonthly, record.PlanType)
	assert.Equal(t, domain.PlanStatusActive, record.PlanStatus)
	assert.Equal(t, "111", record.BillingChargeID)
}

func TestWebhookChargeCancellation(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	shopRecord := installedShop(shop)
	shopRecord.PlanType = domain.PlanMonthly
	shopRecord.BillingChargeID = "111"
	env.repo.put(shopRecord)

	body := []byte(`{"recurring_application_charge":{"id":111,"name":"Monthly Subscription","price":"29.00","status":"cancelled"}}`)
	rec := env.deliver(t, domain.TopicChargeUpdate, shop, body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, domain.PlanStatusCancelled, env.repo.get(shop).PlanStatus)
}

func TestWebhookNewChargeCancelsStaleOne(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	shopRecord := installedShop(shop)
	shopRecord.PlanType = domain.PlanMonthly
	shopRecord.BillingChargeID = "111"
	env.repo.put(shopRecord)

	body := []byte(`{"recurring_application_charge":{"id":222,"name":"Annual Subscription","price":"290.00","status":"active"}}`)
	rec := env.deliver(t, domain.TopicChargeUpdate, shop, body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	record := env.repo.get(shop)
	assert.Equal(t, domain.PlanAnnual, record.PlanType)
	assert.Equal(t, "222", record.BillingChargeID)
	assert.Equal(t, []uint64{111}, env.client.cancelledIDs(), "superseded charge must be cancelled")
}

func TestWebhookChargeForUnknownShopIsNoop(t *testing.T) {
	env := newWebhookTestEnv(t)

	body := []byte(`{"recurring_application_charge":{"id":333,"status":"active","price":"29.00"}}`)
	rec := env.deliver(t, domain.TopicChargeUpdate, "gone.myshopify.com", body, true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookMalformedChargePayloadRejected(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	// Redelivery of the same broken body can never succeed, so these are
	// answered 400 rather than 500 to stop the retry loop.
	for _, body := range []string{
		`{"no_id":true}`,
		`{"recurring_application_charge":{"name":"x"}}`,
		`not json`,
	} {
		rec := env.deliver(t, domain.TopicChargeUpdate, shop, []byte(body), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
	assert.Equal(t, domain.PlanStatusActive, env.repo.get(shop).PlanStatus)
}

func TestWebhookChargeWithoutShopDomainRejected(t *testing.T) {
	env := newWebhookTestEnv(t)

	// No shop header and no domain field in the payload.
	body := []byte(`{"recurring_application_charge":{"id":111,"status":"active","price":"29.00"}}`)
	rec := env.deliver(t, domain.TopicChargeUpdate, "", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookUnknownTopicIsAcknowledged(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	rec := env.deliver(t, "orders/create", shop, []byte(`{"id":9}`), true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PlanStatusActive, env.repo.get(shop).PlanStatus)
}

func TestWebhookCustomerComplianceTopicsAcknowledged(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	for _, topic := range []string{domain.TopicCustomerDataRequest, domain.TopicCustomerRedact} {
		rec := env.deliver(t, topic, shop, []byte(`{"shop_domain":"`+shop+`"}`), true)
		assert.Equal(t, http.StatusOK, rec.Code, "topic %s", topic)
	}
	assert.NotNil(t, env.repo.get(shop), "customer topics must not delete the shop")
}

func TestWebhookShopRedactErasesRecord(t *testing.T) {
	env := newWebhookTestEnv(t)
	const shop = "example.myshopify.com"
	env.repo.put(installedShop(shop))

	rec := env.deliver(t, domain.TopicShopRedact, shop, []byte(`{"shop_domain":"`+shop+`"}`), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.repo.get(shop))

	// Redelivery after erasure stays a safe no-op.
	rec = env.deliver(t, domain.TopicShopRedact, shop, []byte(`{"shop_domain":"`+shop+`"}`), true)
	assert.Equal(t, http.StatusOK, rec.Code)
}
