package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"sessionbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindInWindow fetches the provider's candidate bookings around a proposed interval.
func (r *MongoBookingRepo) FindInWindow(ctx context.Context, providerID string, from, to time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"provider_id":     providerID,
		"scheduled_start": bson.M{"$gte": from, "$lt": to},
	}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_start", Value: 1}})

	return r.findMany(ctx, filter, opts)
}

// List returns a page of bookings sorted by scheduled start, plus the total match count.
func (r *MongoBookingRepo) List(ctx context.Context, f ListFilter) ([]models.Booking, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if f.ConsumerID != "" {
		filter["consumer_id"] = f.ConsumerID
	}
	if f.ProviderID != "" {
		filter["provider_id"] = f.ProviderID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting bookings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_start", Value: 1}, {Key: "id", Value: 1}}).
		SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	out, err := r.findMany(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FindStalePending returns unpaid reservations created before the cutoff, oldest first.
func (r *MongoBookingRepo) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"status":     models.StatusPendingPayment,
		"created_at": bson.M{"$lt": createdBefore},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.findMany(ctx, filter, opts)
}

// CountByStatus aggregates the provider's bookings per status.
func (r *MongoBookingRepo) CountByStatus(ctx context.Context, providerID string) (map[models.BookingStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"provider_id": providerID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating booking counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.BookingStatus `bson:"_id"`
		Count  int64                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding booking counts: %w", err)
	}

	counts := make(map[models.BookingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DistinctConsumers lists the consumers who have booked the provider.
func (r *MongoBookingRepo) DistinctConsumers(ctx context.Context, providerID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	values, err := r.coll.Distinct(ctx, "consumer_id", bson.M{"provider_id": providerID})
	if err != nil {
		return nil, fmt.Errorf("error fetching distinct consumers: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MongoBookingRepo) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Booking, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}
