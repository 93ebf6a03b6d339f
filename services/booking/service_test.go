package booking

import (
	"context"
	"testing"
	"time"

	"sessionbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInstantBooking(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CreateBooking(context.Background(), consumer, CreateRequest{
		ProviderID: provider.ID, ScheduledStart: at(10, 0), DurationMinutes: 90,
	})
	require.NoError(t, err)
	b := res.Booking

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, models.ModeInstant, b.Mode)
	assert.Equal(t, models.StatusPendingPayment, b.Status)
	assert.Equal(t, models.PaymentPending, b.PaymentStatus)
	assert.True(t, res.PaymentRequired)
	assert.NotEmpty(t, b.PaymentGatewayOrderRef)
	assert.Equal(t, 1500.0, b.Subtotal)
	assert.Equal(t, 75.0, b.Fees)
	assert.Equal(t, 1575.0, b.TotalAmount)
	assert.Equal(t, t0, b.CreatedAt)
	assert.Equal(t, 3, f.claims.Len())
	assert.Equal(t, 1, f.events.Count(b.ID, models.EventBookingCreated))
	assert.Equal(t, 1, f.events.Count(b.ID, models.EventPaymentRequired))
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor models.Actor
		req   CreateRequest
		kind  Kind
	}{
		{"provider cannot book", provider, CreateRequest{ProviderID: "provider-2", ScheduledStart: at(10, 0), DurationMinutes: 60}, KindPermissionDenied},
		{"missing provider", consumer, CreateRequest{ScheduledStart: at(10, 0), DurationMinutes: 60}, KindInvalidInput},
		{"zero duration", consumer, CreateRequest{ProviderID: provider.ID, ScheduledStart: at(10, 0)}, KindInvalidInput},
		{"in the past", consumer, CreateRequest{ProviderID: provider.ID, ScheduledStart: t0.Add(-time.Hour), DurationMinutes: 60}, KindInvalidInput},
		{"unknown mode", consumer, CreateRequest{ProviderID: provider.ID, Mode: "later", ScheduledStart: at(10, 0), DurationMinutes: 60}, KindInvalidInput},
		{"self booking", consumer, CreateRequest{ProviderID: consumer.ID, ScheduledStart: at(10, 0), DurationMinutes: 60}, KindInvalidInput},
		{"bad location", consumer, CreateRequest{ProviderID: provider.ID, ScheduledStart: at(10, 0), DurationMinutes: 60,
			Location: models.NewGeoPoint(120, 0)}, KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(ctx, tt.actor, tt.req)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
	assert.Equal(t, 0, f.claims.Len())
}

func TestRequestModeApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateBooking(ctx, consumer, CreateRequest{
		ProviderID: provider.ID, Mode: models.ModeRequest, ScheduledStart: at(14, 0), DurationMinutes: 60,
	})
	require.NoError(t, err)
	b := res.Booking
	assert.Equal(t, models.StatusRequested, b.Status)
	assert.Equal(t, models.PaymentNotRequired, b.PaymentStatus)
	assert.False(t, res.PaymentRequired)
	assert.Equal(t, 0, f.claims.Len(), "a request does not hold the slot")

	// The slot is still open to instant bookings until approval.
	avail, err := f.svc.CheckAvailability(ctx, provider.ID, at(14, 0), time.Hour)
	require.NoError(t, err)
	assert.True(t, avail.Available)

	approved, err := f.svc.UpdateStatus(ctx, provider, b.ID, models.StatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, approved.Status)
	assert.Len(t, approved.StartOTP, 6)
	assert.Equal(t, 2, f.claims.Len())
	assert.Equal(t, 1, f.events.Count(b.ID, models.EventBookingConfirmed))
}

func TestApprovalBlockedByInstantBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateBooking(ctx, consumer, CreateRequest{
		ProviderID: provider.ID, Mode: models.ModeRequest, ScheduledStart: at(14, 0), DurationMinutes: 60,
	})
	require.NoError(t, err)
	f.create(t, at(14, 30), 60)

	_, err = f.svc.UpdateStatus(ctx, provider, res.Booking.ID, models.StatusConfirmed, "")
	assert.Equal(t, KindSlotUnavailable, KindOf(err))
	assert.Equal(t, models.StatusRequested, f.get(t, res.Booking.ID).Status)

	rejected, err := f.svc.UpdateStatus(ctx, provider, res.Booking.ID, models.StatusRejected, "fully booked")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "fully booked", rejected.CancelReason)
}

func TestUpdateStatusRoutesSpecialEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, at(10, 0), 60)

	_, err := f.svc.UpdateStatus(ctx, consumer, b.ID, models.StatusConfirmed, "")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	failed, err := f.svc.UpdateStatus(ctx, models.SystemActor, b.ID, models.StatusFailed, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, 0, f.claims.Len())

	b2 := f.create(t, at(12, 0), 60)
	f.pay(t, b2)
	_, err = f.svc.UpdateStatus(ctx, provider, b2.ID, models.StatusInProgress, "")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	cancelled, err := f.svc.UpdateStatus(ctx, provider, b2.ID, models.StatusCancelled, "emergency")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, cancelled.PaymentStatus)
}

func TestGetBookingVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, at(10, 0), 60)

	for _, actor := range []models.Actor{consumer, provider, admin} {
		got, err := f.svc.GetBooking(ctx, actor, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	}
	_, err := f.svc.GetBooking(ctx, models.Actor{ID: "other", Role: models.RoleConsumer}, b.ID)
	assert.Equal(t, KindPermissionDenied, KindOf(err))
	_, err = f.svc.GetBooking(ctx, consumer, "nope")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestListBookingsScopesAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var first *models.Booking
	for h := 8; h < 13; h++ {
		b := f.create(t, at(h, 0), 60)
		if first == nil {
			first = b
		}
	}
	f.pay(t, first)
	require.NoError(t, f.repo.Create(ctx, &models.Booking{
		ID: "other-provider", ConsumerID: consumer.ID, ProviderID: "provider-2",
		ScheduledStart: at(9, 0), DurationMin: 60, Status: models.StatusConfirmed, CreatedAt: t0,
	}))

	page, err := f.svc.ListBookings(ctx, consumer, ListQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	require.Len(t, page.Bookings, 2)
	assert.True(t, page.Bookings[0].ScheduledStart.Before(page.Bookings[1].ScheduledStart) ||
		page.Bookings[0].ScheduledStart.Equal(page.Bookings[1].ScheduledStart))

	page, err = f.svc.ListBookings(ctx, provider, ListQuery{Statuses: []models.BookingStatus{models.StatusConfirmed}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = f.svc.ListBookings(ctx, models.SystemActor, ListQuery{})
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	_, err = f.svc.ListBookings(ctx, admin, ListQuery{Statuses: []models.BookingStatus{"bogus"}})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	page, err = f.svc.ListBookings(ctx, admin, ListQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, page.Limit)
}

func TestProviderSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, at(8, 0), 60)
	f.pay(t, b)
	f.create(t, at(10, 0), 60)
	c := f.create(t, at(12, 0), 60)
	_, err := f.svc.CancelBooking(ctx, consumer, c.ID, "")
	require.NoError(t, err)

	sum, err := f.svc.ProviderSummary(ctx, provider, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Total)
	assert.Equal(t, int64(1), sum.Counts[models.StatusConfirmed])
	assert.Equal(t, int64(1), sum.Counts[models.StatusPendingPayment])
	assert.Equal(t, int64(1), sum.Counts[models.StatusCancelled])
	assert.Equal(t, 1, sum.DistinctConsumers)

	_, err = f.svc.ProviderSummary(ctx, consumer, provider.ID)
	assert.Equal(t, KindPermissionDenied, KindOf(err))
	_, err = f.svc.ProviderSummary(ctx, admin, provider.ID)
	assert.NoError(t, err)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.Err = assert.AnError
	b := f.create(t, at(10, 0), 60)
	conf := f.pay(t, b)
	assert.Equal(t, models.StatusConfirmed, conf.Booking.Status)
}
