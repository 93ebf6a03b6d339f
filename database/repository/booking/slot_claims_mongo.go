package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSlotClaimRepo stores slot claims; the _id unique index is the reservation lock.
type MongoSlotClaimRepo struct {
	coll *mongo.Collection
}

// NewMongoSlotClaimRepo constructs the claim repository on db.
func NewMongoSlotClaimRepo(db *mongo.Database) (*MongoSlotClaimRepo, error) {
	repo := &MongoSlotClaimRepo{coll: db.Collection("slot_claims")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetName("booking_idx"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create slot claim indexes: %w", err)
	}
	return repo, nil
}

// Claim inserts every claim; on a duplicate it removes whatever this call already inserted.
func (r *MongoSlotClaimRepo) Claim(ctx context.Context, claims []SlotClaim) error {
	if len(claims) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	docs := make([]interface{}, 0, len(claims))
	for _, c := range claims {
		docs = append(docs, c)
	}

	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("error claiming slot: %w", err)
	}

	conflict := &ClaimConflictError{ClaimID: claims[0].ID}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		if idx := bwe.WriteErrors[0].Index; idx >= 0 && idx < len(claims) {
			conflict.ClaimID = claims[idx].ID
		}
	}

	// Ordered insert stops at the first duplicate; undo the prefix that went in.
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		if c.ID == conflict.ClaimID {
			break
		}
		ids = append(ids, c.ID)
	}
	if len(ids) > 0 {
		_, _ = r.coll.DeleteMany(ctx, bson.M{
			"_id":        bson.M{"$in": ids},
			"booking_id": claims[0].BookingID,
		})
	}
	return conflict
}

// Holder returns the claim stored under claimID.
func (r *MongoSlotClaimRepo) Holder(ctx context.Context, claimID string) (*SlotClaim, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var claim SlotClaim
	if err := r.coll.FindOne(ctx, bson.M{"_id": claimID}).Decode(&claim); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching slot claim: %w", err)
	}
	return &claim, nil
}

// ReleaseByBooking drops every claim a booking holds.
func (r *MongoSlotClaimRepo) ReleaseByBooking(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.DeleteMany(ctx, bson.M{"booking_id": bookingID}); err != nil {
		return fmt.Errorf("error releasing slot claims for %s: %w", bookingID, err)
	}
	return nil
}

// ReleaseIfHeld deletes a single claim only while the given booking holds it.
func (r *MongoSlotClaimRepo) ReleaseIfHeld(ctx context.Context, claimID, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": claimID, "booking_id": bookingID}); err != nil {
		return fmt.Errorf("error releasing slot claim %s: %w", claimID, err)
	}
	return nil
}
