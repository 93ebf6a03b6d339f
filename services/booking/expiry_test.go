package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sessionbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaidBookingSurvivesSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, at(10, 0), 60)

	f.clock.Advance(5 * time.Minute)
	conf := f.pay(t, b)
	require.NotEmpty(t, conf.StartOTP)

	f.clock.Set(t0.Add(35 * time.Minute))
	n, err := f.svc.ExpireStaleBookings(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.StatusConfirmed, f.get(t, b.ID).Status)
}

func TestUnpaidBookingExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, at(10, 0), 60)

	f.clock.Set(t0.Add(35 * time.Minute))
	n, err := f.svc.ExpireStaleBookings(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.StatusFailed, f.get(t, b.ID).Status)
	assert.Equal(t, 1, f.events.Count(b.ID, models.EventBookingExpired))
	assert.Equal(t, 0, f.claims.Len())

	// The slot is free again.
	f.create(t, at(10, 0), 60)

	n, err = f.svc.ExpireStaleBookings(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepOnlyTouchesStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, "stale", models.StatusPendingPayment, at(8, 0), 60)
	f.seed(t, "requested", models.StatusRequested, at(9, 0), 60)
	f.seed(t, "confirmed", models.StatusConfirmed, at(10, 0), 60)
	f.seed(t, "cancelled", models.StatusCancelled, at(11, 0), 60)

	f.clock.Advance(25 * time.Minute)
	f.seed(t, "fresh", models.StatusPendingPayment, at(12, 0), 60)

	f.clock.Advance(10 * time.Minute)
	n, err := f.svc.ExpireStaleBookings(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want := map[string]models.BookingStatus{
		"stale":     models.StatusFailed,
		"requested": models.StatusRequested,
		"confirmed": models.StatusConfirmed,
		"cancelled": models.StatusCancelled,
		"fresh":     models.StatusPendingPayment,
	}
	for id, status := range want {
		assert.Equal(t, status, f.get(t, id).Status, id)
	}
}

func TestSweepExactlyAtTTLLeavesBooking(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, "edge", models.StatusPendingPayment, at(8, 0), 60)

	n, err := f.svc.ExpireStaleBookings(context.Background(), t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.StatusPendingPayment, f.get(t, b.ID).Status)
}

func TestSweepWorksThroughBatches(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.SweepBatch = 2 })
	for i := 0; i < 5; i++ {
		f.seed(t, fmt.Sprintf("b%d", i), models.StatusPendingPayment, at(8+i, 0), 60)
	}

	n, err := f.svc.ExpireStaleBookings(context.Background(), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestSweepRacingPayment(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		ctx := context.Background()
		b := f.create(t, at(10, 0), 60)
		f.clock.Set(t0.Add(31 * time.Minute))

		var (
			wg      sync.WaitGroup
			payErr  error
			expired int
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, payErr = f.svc.VerifyPayment(ctx, consumer, b.ID, f.payRequest(b, "pay_1"))
		}()
		go func() {
			defer wg.Done()
			expired, _ = f.svc.ExpireStaleBookings(ctx, f.clock.Now())
		}()
		wg.Wait()

		stored := f.get(t, b.ID)
		if payErr == nil {
			assert.Equal(t, models.StatusConfirmed, stored.Status)
			assert.Zero(t, expired)
		} else {
			assert.Equal(t, KindInvalidTransition, KindOf(payErr))
			assert.Equal(t, models.StatusFailed, stored.Status)
			assert.Equal(t, 1, expired)
			assert.Empty(t, stored.PaymentGatewayPaymentRef)
		}
	}
}

func TestConcurrentSweepersExpireOnce(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.seed(t, fmt.Sprintf("b%d", i), models.StatusPendingPayment, at(8, 0), 30)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := f.svc.ExpireStaleBookings(context.Background(), t0.Add(time.Hour))
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, total)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 1, f.events.Count(fmt.Sprintf("b%d", i), models.EventBookingExpired))
	}
}
