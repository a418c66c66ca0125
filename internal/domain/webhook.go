package domain

// Webhook topics this app subscribes to.
const (
	TopicAppUninstalled      = "app/uninstalled"
	TopicChargeCreate        = "recurring_application_charges/create"
	TopicChargeUpdate        = "recurring_application_charges/update"
	TopicCustomerDataRequest = "customers/data_request"
	TopicCustomerRedact      = "customers/redact"
	TopicShopRedact          = "shop/redact"
)

// SubscribedTopics lists every topic registered with Shopify after install.
func SubscribedTopics() []string {
	return []string{
		TopicAppUninstalled,
		TopicChargeCreate,
		TopicChargeUpdate,
		TopicCustomerDataRequest,
		TopicCustomerRedact,
		TopicShopRedact,
	}
}

// WebhookEvent represents a verified Shopify webhook delivery. It is
// transient: Shopify may redeliver, so every handler must be idempotent.
type WebhookEvent struct {
	Topic    string `json:"topic"`
	Shop     string `json:"shop"`
	Payload  []byte `json:"payload"`
	Verified bool   `json:"verified"`
}
