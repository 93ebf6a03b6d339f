package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sessionbook/models"
)

var (
	// ErrNotFound is returned when no booking has the requested key.
	ErrNotFound = errors.New("booking not found")
	// ErrConditionFailed is returned by UpdateIf when the document did not match.
	ErrConditionFailed = errors.New("booking precondition not met")
	// ErrDuplicateKey is returned when inserting a booking whose id already exists.
	ErrDuplicateKey = errors.New("booking already exists")
	// ErrSlotTaken is returned when a slot bucket is already claimed.
	ErrSlotTaken = errors.New("slot already claimed")
)

// BookingRepository is the persistent collection of bookings.
type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByOrderRef(ctx context.Context, orderRef string) (*models.Booking, error)
	// FindInWindow returns the provider's bookings in statuses starting within [from, to).
	FindInWindow(ctx context.Context, providerID string, from, to time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
	List(ctx context.Context, filter ListFilter) ([]models.Booking, int64, error)
	// UpdateIf applies patch only if the booking still satisfies match, returning the
	// post-image. Any miss, including an unknown id, yields ErrConditionFailed.
	UpdateIf(ctx context.Context, id string, match Match, patch Patch) (*models.Booking, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Booking, error)
	CountByStatus(ctx context.Context, providerID string) (map[models.BookingStatus]int64, error)
	DistinctConsumers(ctx context.Context, providerID string) ([]string, error)
}

// ListFilter narrows List; empty fields are ignored.
type ListFilter struct {
	ConsumerID string
	ProviderID string
	Statuses   []models.BookingStatus
	Skip       int64
	Limit      int64
}

// SlotClaim reserves one bucket of a provider's time for a booking.
// ID is unique per provider and bucket, which is what makes double booking impossible.
type SlotClaim struct {
	ID          string    `bson:"_id" json:"id"`
	ProviderID  string    `bson:"provider_id" json:"provider_id"`
	BookingID   string    `bson:"booking_id" json:"booking_id"`
	BucketStart time.Time `bson:"bucket_start" json:"bucket_start"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// ClaimID builds the unique key of a provider bucket.
func ClaimID(providerID string, bucketStart time.Time) string {
	return fmt.Sprintf("%s|%d", providerID, bucketStart.UTC().Unix())
}

// ClaimConflictError names the bucket that could not be claimed.
type ClaimConflictError struct {
	ClaimID string
}

func (e *ClaimConflictError) Error() string {
	return fmt.Sprintf("slot bucket %s already claimed", e.ClaimID)
}

func (e *ClaimConflictError) Is(target error) bool {
	return target == ErrSlotTaken
}

// SlotClaimRepository is the atomic reservation primitive behind the conflict check.
type SlotClaimRepository interface {
	// Claim inserts all claims or none. A taken bucket yields a *ClaimConflictError.
	Claim(ctx context.Context, claims []SlotClaim) error
	// Holder returns the claim currently stored under claimID.
	Holder(ctx context.Context, claimID string) (*SlotClaim, error)
	ReleaseByBooking(ctx context.Context, bookingID string) error
	// ReleaseIfHeld deletes claimID only while bookingID still holds it.
	ReleaseIfHeld(ctx context.Context, claimID, bookingID string) error
}
