package memoryRepo

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func newBooking(id string, status models.BookingStatus, start time.Time) *models.Booking {
	return &models.Booking{
		ID: id, ConsumerID: "c1", ProviderID: "p1",
		ScheduledStart: start, DurationMin: 60,
		Status: status, PaymentStatus: models.PaymentPending,
		CreatedAt: base,
	}
}

func TestCreateAndGetReturnCopies(t *testing.T) {
	repo := NewBookingRepo()
	ctx := context.Background()
	b := newBooking("b1", models.StatusPendingPayment, base)
	require.NoError(t, repo.Create(ctx, b))
	assert.ErrorIs(t, repo.Create(ctx, b), bookingRepo.ErrDuplicateKey)

	got, err := repo.GetByID(ctx, "b1")
	require.NoError(t, err)
	got.Status = models.StatusFailed

	again, err := repo.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPayment, again.Status)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, bookingRepo.ErrNotFound)
}

func TestUpdateIfRespectsMatch(t *testing.T) {
	repo := NewBookingRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newBooking("b1", models.StatusPendingPayment, base)))

	confirmed := models.StatusConfirmed
	ref := "pay_1"
	match := bookingRepo.Match{Statuses: []models.BookingStatus{models.StatusPendingPayment}, PaymentRefUnset: true}
	patch := bookingRepo.Patch{Status: &confirmed, PaymentRef: &ref, UpdatedAt: base.Add(time.Minute)}

	updated, err := repo.UpdateIf(ctx, "b1", match, patch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, "pay_1", updated.PaymentGatewayPaymentRef)

	_, err = repo.UpdateIf(ctx, "b1", match, patch)
	assert.True(t, errors.Is(err, bookingRepo.ErrConditionFailed))

	_, err = repo.UpdateIf(ctx, "missing", bookingRepo.Match{}, patch)
	assert.True(t, errors.Is(err, bookingRepo.ErrConditionFailed))
}

func TestAttendancePatchSetsFlags(t *testing.T) {
	repo := NewBookingRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newBooking("b1", models.StatusInProgress, base)))

	no := false
	at := base.Add(time.Hour)
	updated, err := repo.UpdateIf(ctx, "b1",
		bookingRepo.Match{ConsumerConfirmed: &no},
		bookingRepo.Patch{ConsumerConfirmedAt: &at})
	require.NoError(t, err)
	assert.True(t, updated.Attendance.ConsumerConfirmed)
	assert.Equal(t, at, *updated.Attendance.ConsumerConfirmedAt)
	assert.False(t, updated.Attendance.ProviderConfirmed)

	_, err = repo.UpdateIf(ctx, "b1", bookingRepo.Match{ConsumerConfirmed: &no}, bookingRepo.Patch{ConsumerConfirmedAt: &at})
	assert.ErrorIs(t, err, bookingRepo.ErrConditionFailed)
}

func TestQueries(t *testing.T) {
	repo := NewBookingRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newBooking("a", models.StatusConfirmed, base)))
	require.NoError(t, repo.Create(ctx, newBooking("b", models.StatusPendingPayment, base.Add(2*time.Hour))))
	require.NoError(t, repo.Create(ctx, newBooking("c", models.StatusCancelled, base.Add(time.Hour))))
	late := newBooking("d", models.StatusPendingPayment, base.Add(48*time.Hour))
	late.CreatedAt = base.Add(time.Hour)
	late.ConsumerID = "c2"
	require.NoError(t, repo.Create(ctx, late))

	window, err := repo.FindInWindow(ctx, "p1", base, base.Add(24*time.Hour), models.BlockingStatuses)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "a", window[0].ID)
	assert.Equal(t, "b", window[1].ID)

	list, total, err := repo.List(ctx, bookingRepo.ListFilter{ProviderID: "p1", Skip: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)

	stale, err := repo.FindStalePending(ctx, base.Add(30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "b", stale[0].ID)

	byOrder, err := repo.GetByOrderRef(ctx, "")
	assert.Nil(t, byOrder)
	assert.ErrorIs(t, err, bookingRepo.ErrNotFound)

	counts, err := repo.CountByStatus(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.StatusPendingPayment])

	consumers, err := repo.DistinctConsumers(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, consumers)
}

func TestSlotClaimsAllOrNothing(t *testing.T) {
	repo := NewSlotClaimRepo()
	ctx := context.Background()
	claim := func(booking string, hour int) bookingRepo.SlotClaim {
		start := base.Add(time.Duration(hour) * time.Hour)
		return bookingRepo.SlotClaim{ID: bookingRepo.ClaimID("p1", start), ProviderID: "p1", BookingID: booking, BucketStart: start}
	}

	require.NoError(t, repo.Claim(ctx, []bookingRepo.SlotClaim{claim("b1", 0), claim("b1", 1)}))

	err := repo.Claim(ctx, []bookingRepo.SlotClaim{claim("b2", 2), claim("b2", 1)})
	assert.ErrorIs(t, err, bookingRepo.ErrSlotTaken)
	var conflict *bookingRepo.ClaimConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, claim("b2", 1).ID, conflict.ClaimID)
	assert.Equal(t, 2, repo.Len())

	holder, err := repo.Holder(ctx, claim("x", 1).ID)
	require.NoError(t, err)
	assert.Equal(t, "b1", holder.BookingID)

	require.NoError(t, repo.ReleaseIfHeld(ctx, claim("x", 1).ID, "b2"))
	assert.Equal(t, 2, repo.Len())
	require.NoError(t, repo.ReleaseByBooking(ctx, "b1"))
	assert.Equal(t, 0, repo.Len())
}
