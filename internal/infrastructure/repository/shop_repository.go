package repository

import (
	"context"
	"fmt"
	"time"

	"convertly-shopify-app/internal/domain"
	"convertly-shopify-app/internal/infrastructure/repository/entity"
	"convertly-shopify-app/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoShopRepository implements ShopRepository using MongoDB. Every write
// is a single atomic update keyed on the unique domain index, so concurrent
// callbacks and webhook deliveries for the same shop cannot interleave a
// read-modify-write.
type MongoShopRepository struct {
	shopsCollection    *mongo.Collection
	webhooksCollection *mongo.Collection
}

// NewMongoShopRepository creates a new MongoDB shop repository
func NewMongoShopRepository(db *mongo.Database) *MongoShopRepository {
	return &MongoShopRepository{
		shopsCollection:    db.Collection("shops"),
		webhooksCollection: db.Collection("webhook_events"),
	}
}

var _ ports.ShopRepository = (*MongoShopRepository)(nil)

// EnsureIndexes creates the unique domain index. Call once on startup.
func (r *MongoShopRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.shopsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "domain", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create shops index: %w", err)
	}

	_, err = r.webhooksCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook_events index: %w", err)
	}
	return nil
}

// FindByDomain retrieves a shop by domain
func (r *MongoShopRepository) FindByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	var doc entity.MongoShopDoc
	err := r.shopsCollection.FindOne(ctx, bson.M{"domain": shopDomain}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return doc.ToDomain(), nil
}

// UpsertOnInstall atomically creates or rotates the shop record after a
// successful OAuth callback.
func (r *MongoShopRepository) UpsertOnInstall(ctx context.Context, shopDomain, accessToken string) error {
	now := time.Now().UTC()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": shopDomain}
	update := bson.M{
		"$set": bson.M{
			"access_token":        accessToken,
			"last_reinstalled_at": now,
			"updated_at":          now,
		},
		"$setOnInsert": bson.M{
			"domain":             shopDomain,
			"plan_type":          string(domain.PlanFree),
			"plan_status":        string(domain.PlanStatusActive),
			"admin_granted_free": false,
			"first_installed_at": now,
			"created_at":         now,
		},
	}

	if _, err := r.shopsCollection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert shop: %w", err)
	}

	// A reinstall after an uninstall starts over on the free plan; the plan
	// fields were expired when the uninstall webhook arrived.
	reactivate := bson.M{
		"$set": bson.M{
			"plan_type":   string(domain.PlanFree),
			"plan_status": string(domain.PlanStatusActive),
			"updated_at":  now,
		},
		"$unset": bson.M{"billing_charge_id": ""},
	}
	_, err := r.shopsCollection.UpdateOne(ctx,
		bson.M{"domain": shopDomain, "plan_status": string(domain.PlanStatusExpired)},
		reactivate,
	)
	if err != nil {
		return fmt.Errorf("failed to reactivate shop: %w", err)
	}

	return nil
}

// UpdatePlan applies a webhook-driven plan change. A missing shop is a
// no-op: webhook ordering is not guaranteed, so an update can arrive after
// the record is gone.
func (r *MongoShopRepository) UpdatePlan(ctx context.Context, shopDomain string, planType domain.PlanType, planStatus domain.PlanStatus, chargeID string) error {
	set := bson.M{
		"plan_type":   string(planType),
		"plan_status": string(planStatus),
		"updated_at":  time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if chargeID != "" {
		set["billing_charge_id"] = chargeID
	} else {
		update["$unset"] = bson.M{"billing_charge_id": ""}
	}

	if _, err := r.shopsCollection.UpdateOne(ctx, bson.M{"domain": shopDomain}, update); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

// MarkUninstalled clears the access token and billing fields and expires
// the plan. Idempotent: redelivery on an already-cleared shop changes
// nothing.
func (r *MongoShopRepository) MarkUninstalled(ctx context.Context, shopDomain string) error {
	update := bson.M{
		"$set": bson.M{
			"plan_status": string(domain.PlanStatusExpired),
			"updated_at":  time.Now().UTC(),
		},
		"$unset": bson.M{
			"access_token":      "",
			"billing_charge_id": "",
		},
	}
	if _, err := r.shopsCollection.UpdateOne(ctx, bson.M{"domain": shopDomain}, update); err != nil {
		return fmt.Errorf("failed to mark shop uninstalled: %w", err)
	}
	return nil
}

// DeleteAll hard-deletes every document for the shop across all
// collections. Idempotent.
func (r *MongoShopRepository) DeleteAll(ctx context.Context, shopDomain string) error {
	if _, err := r.shopsCollection.DeleteMany(ctx, bson.M{"domain": shopDomain}); err != nil {
		return fmt.Errorf("failed to delete shop: %w", err)
	}
	if _, err := r.webhooksCollection.DeleteMany(ctx, bson.M{"shop": shopDomain}); err != nil {
		return fmt.Errorf("failed to delete webhook events: %w", err)
	}
	return nil
}

// TouchLastUsed bumps last_used_at, at most once per day.
func (r *MongoShopRepository) TouchLastUsed(ctx context.Context, shopDomain string) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	filter := bson.M{
		"domain": shopDomain,
		"$or": bson.A{
			bson.M{"last_used_at": bson.M{"$lt": today}},
			bson.M{"last_used_at": bson.M{"$exists": false}},
		},
	}
	update := bson.M{"$set": bson.M{"last_used_at": today}}
	if _, err := r.shopsCollection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to touch last_used_at: %w", err)
	}
	return nil
}

// List retrieves all shops
func (r *MongoShopRepository) List(ctx context.Context) ([]*domain.Shop, error) {
	cursor, err := r.shopsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer cursor.Close(ctx)

	var shops []*domain.Shop
	for cursor.Next(ctx) {
		var doc entity.MongoShopDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shop: %w", err)
		}
		shops = append(shops, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return shops, nil
}

// LogWebhook appends a webhook delivery to the audit log. Failures here
// never block webhook processing.
func (r *MongoShopRepository) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := bson.M{
		"topic":      event.Topic,
		"shop":       event.Shop,
		"payload":    string(event.Payload),
		"verified":   event.Verified,
		"created_at": time.Now().UTC(),
	}
	if _, err := r.webhooksCollection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}
