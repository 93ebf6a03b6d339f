package couponRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessionbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCouponRepo struct {
	coll *mongo.Collection
}

func NewMongoCouponRepo(db *mongo.Database) (*MongoCouponRepo, error) {
	repo := &MongoCouponRepo{coll: db.Collection("coupons")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_code"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create coupon indexes: %w", err)
	}
	return repo, nil
}

func (r *MongoCouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("error creating coupon: %w", err)
	}
	return nil
}

func (r *MongoCouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Coupon
	if err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching coupon: %w", err)
	}
	return &c, nil
}

// RedeemOne folds every validity rule into the update filter so concurrent
// redemptions can never push used_count past max_uses.
func (r *MongoCouponRepo) RedeemOne(ctx context.Context, code string, now time.Time) (*models.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"code":        code,
		"is_active":   true,
		"valid_from":  bson.M{"$lte": now},
		"valid_until": bson.M{"$gt": now},
		"$or": bson.A{
			bson.M{"max_uses": 0},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Coupon
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if err == nil {
		return &before, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error redeeming coupon: %w", err)
	}

	// Distinguish an unknown code from one that exists but can't be used.
	if _, getErr := r.GetByCode(ctx, code); getErr != nil {
		return nil, getErr
	}
	return nil, ErrNotRedeemable
}

func (r *MongoCouponRepo) Restore(ctx context.Context, code string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"code": code, "used_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"used_count": -1}, "$set": bson.M{"updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("error restoring coupon use: %w", err)
	}
	return nil
}
