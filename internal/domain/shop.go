package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// PlanType is the subscription tier a shop is on.
type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanMonthly PlanType = "monthly"
	PlanAnnual  PlanType = "annual"
)

// PlanStatus is the billing state of a shop's plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCancelled PlanStatus = "cancelled"
	PlanStatusExpired   PlanStatus = "expired"
	PlanStatusPending   PlanStatus = "pending"
)

var (
	// ErrShopNotFound is returned when no shop record exists for a domain.
	ErrShopNotFound = errors.New("shop not found")

	// ErrInvalidShopDomain is returned for shop parameters that don't match
	// the *.myshopify.com pattern.
	ErrInvalidShopDomain = errors.New("invalid shop domain")

	// ErrInvalidState is returned when an OAuth state token is missing,
	// expired, already consumed, or bound to a different shop.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrInvalidHMAC is returned when a request signature does not verify.
	ErrInvalidHMAC = errors.New("hmac verification failed")

	// ErrInvalidAccessToken is returned when Shopify hands back a token that
	// fails the format sanity check.
	ErrInvalidAccessToken = errors.New("access token failed sanity check")

	// ErrInvalidPayload is returned when a verified webhook body cannot be
	// processed: unparseable, missing the charge id, or missing the shop
	// domain. Permanent, so redelivery of the same body can never succeed.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Shop represents an installed merchant store and its subscription state.
// Exactly one record exists per shop domain.
type Shop struct {
	Domain            string     `json:"domain"`
	AccessToken       string     `json:"-"`
	PlanType          PlanType   `json:"plan_type"`
	PlanStatus        PlanStatus `json:"plan_status"`
	BillingChargeID   string     `json:"billing_charge_id,omitempty"`
	AdminGrantedFree  bool       `json:"admin_granted_free"`
	FirstInstalledAt  time.Time  `json:"first_installed_at"`
	LastReinstalledAt time.Time  `json:"last_reinstalled_at"`
	LastUsedAt        time.Time  `json:"last_used_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// SanitizeShopDomain normalizes a merchant-supplied shop parameter: trims,
// lowercases, appends the .myshopify.com suffix when absent, and validates
// the result against the strict domain pattern. Returns "" when invalid.
// Idempotent: sanitizing an already-sanitized domain yields the same value.
func SanitizeShopDomain(raw string) string {
	shop := strings.ToLower(strings.TrimSpace(raw))
	if shop == "" {
		return ""
	}

	if !strings.HasSuffix(shop, ".myshopify.com") {
		shop += ".myshopify.com"
	}

	if !shopDomainPattern.MatchString(shop) {
		return ""
	}
	return shop
}
