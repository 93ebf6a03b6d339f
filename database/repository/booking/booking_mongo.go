package bookingRepo

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

const opTimeout = 5 * time.Second

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a booking repository on db and ensures its indexes.
func NewMongoBookingRepo(db *mongo.Database) (*MongoBookingRepo, error) {
	repo := &MongoBookingRepo{coll: db.Collection("bookings")}
	if err := repo.EnsureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

// EnsureIndexes creates the indexes used by the lifecycle queries.
func (r *MongoBookingRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "status", Value: 1}, {Key: "scheduled_start", Value: 1}},
			Options: options.Index().SetName("provider_status_start_idx"),
		},
		{
			Keys:    bson.D{{Key: "consumer_id", Value: 1}, {Key: "scheduled_start", Value: 1}},
			Options: options.Index().SetName("consumer_start_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("status_created_idx"),
		},
		{
			Keys: bson.D{{Key: "payment_gateway_order_ref", Value: 1}},
			Options: options.Index().SetName("order_ref_idx").
				SetPartialFilterExpression(bson.M{"payment_gateway_order_ref": bson.M{"$type": "string"}}),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

// Create inserts a new booking document.
func (r *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its id.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

// GetByOrderRef retrieves the booking that owns a gateway order.
func (r *MongoBookingRepo) GetByOrderRef(ctx context.Context, orderRef string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"payment_gateway_order_ref": orderRef})
}

func (r *MongoBookingRepo) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var b models.Booking
	if err := r.coll.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking: %w", err)
	}
	return &b, nil
}

// UpdateIf is a single FindOneAndUpdate whose filter carries the precondition.
func (r *MongoBookingRepo) UpdateIf(ctx context.Context, id string, match Match, patch Patch) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Booking
	err := r.coll.FindOneAndUpdate(ctx, matchFilter(id, match), patchUpdate(patch), opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("error updating booking %s: %w", id, err)
	}
	return &updated, nil
}

func matchFilter(id string, m Match) bson.M {
	filter := bson.M{"id": id}
	if len(m.Statuses) > 0 {
		filter["status"] = bson.M{"$in": m.Statuses}
	}
	if len(m.PaymentStatuses) > 0 {
		filter["payment_status"] = bson.M{"$in": m.PaymentStatuses}
	}
	if m.PaymentRefUnset {
		// nil also matches a missing field.
		filter["payment_gateway_payment_ref"] = bson.M{"$in": bson.A{nil, ""}}
	}
	if m.StartOTP != nil {
		filter["start_otp"] = *m.StartOTP
	}
	if m.ConsumerConfirmed != nil {
		filter["attendance.consumer_confirmed"] = *m.ConsumerConfirmed
	}
	if m.ProviderConfirmed != nil {
		filter["attendance.provider_confirmed"] = *m.ProviderConfirmed
	}
	if m.CreatedBefore != nil {
		filter["created_at"] = bson.M{"$lt": *m.CreatedBefore}
	}
	return filter
}

func patchUpdate(p Patch) bson.M {
	set := bson.M{}
	unset := bson.M{}

	if !p.UpdatedAt.IsZero() {
		set["updated_at"] = p.UpdatedAt
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.PaymentStatus != nil {
		set["payment_status"] = *p.PaymentStatus
	}
	if p.PaymentRef != nil {
		set["payment_gateway_payment_ref"] = *p.PaymentRef
	}
	if p.RefundRef != nil {
		set["refund_ref"] = *p.RefundRef
	}
	if p.ClearOTP {
		unset["start_otp"] = ""
		unset["otp_expires_at"] = ""
	}
	if p.StartOTP != nil {
		set["start_otp"] = *p.StartOTP
		delete(unset, "start_otp")
	}
	if p.OTPExpiresAt != nil {
		set["otp_expires_at"] = *p.OTPExpiresAt
		delete(unset, "otp_expires_at")
	}
	if p.ConsumerConfirmedAt != nil {
		set["attendance.consumer_confirmed"] = true
		set["attendance.consumer_confirmed_at"] = *p.ConsumerConfirmedAt
	}
	if p.ProviderConfirmedAt != nil {
		set["attendance.provider_confirmed"] = true
		set["attendance.provider_confirmed_at"] = *p.ProviderConfirmedAt
	}
	if p.StartedAt != nil {
		set["started_at"] = *p.StartedAt
	}
	if p.CompletedAt != nil {
		set["completed_at"] = *p.CompletedAt
	}
	if p.CancelReason != nil {
		set["cancel_reason"] = *p.CancelReason
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
