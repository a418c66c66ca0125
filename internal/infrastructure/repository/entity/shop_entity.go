package entity

import (
	"time"

	"convertly-shopify-app/internal/domain"
)

// MongoShopDoc represents a shop record in MongoDB
type MongoShopDoc struct {
	Domain            string    `bson:"domain"`
	AccessToken       string    `bson:"access_token,omitempty"`
	PlanType          string    `bson:"plan_type"`
	PlanStatus        string    `bson:"plan_status"`
	BillingChargeID   string    `bson:"billing_charge_id,omitempty"`
	AdminGrantedFree  bool      `bson:"admin_granted_free"`
	FirstInstalledAt  time.Time `bson:"first_installed_at"`
	LastReinstalledAt time.Time `bson:"last_reinstalled_at"`
	LastUsedAt        time.Time `bson:"last_used_at,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		Domain:            d.Domain,
		AccessToken:       d.AccessToken,
		PlanType:          domain.PlanType(d.PlanType),
		PlanStatus:        domain.PlanStatus(d.PlanStatus),
		BillingChargeID:   d.BillingChargeID,
		AdminGrantedFree:  d.AdminGrantedFree,
		FirstInstalledAt:  d.FirstInstalledAt,
		LastReinstalledAt: d.LastReinstalledAt,
		LastUsedAt:        d.LastUsedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}
