package booking

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"sessionbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	h := func(n int) time.Time { return at(n, 0) }
	assert.True(t, Overlaps(h(14), h(16), h(15), h(17)))
	assert.True(t, Overlaps(h(14), h(16), h(13), h(15)))
	assert.True(t, Overlaps(h(14), h(16), h(14), h(16)))
	assert.True(t, Overlaps(h(14), h(18), h(15), h(16)))
	assert.False(t, Overlaps(h(14), h(16), h(16), h(18)))
	assert.False(t, Overlaps(h(16), h(18), h(14), h(16)))
}

func TestNextHalfHour(t *testing.T) {
	assert.Equal(t, at(16, 0), NextHalfHour(at(16, 0)))
	assert.Equal(t, at(16, 30), NextHalfHour(at(16, 10)))
	assert.Equal(t, at(17, 0), NextHalfHour(at(16, 31)))
	assert.Equal(t, at(16, 30), NextHalfHour(at(16, 30)))
}

func TestCheckAvailabilityScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "existing", models.StatusConfirmed, at(14, 0), 120)

	res, err := f.svc.CheckAvailability(ctx, provider.ID, at(15, 0), 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.NotNil(t, res.NextAvailable)
	assert.Equal(t, at(16, 0), *res.NextAvailable)
	assert.Equal(t, []string{"existing"}, res.ConflictIDs)

	res, err = f.svc.CheckAvailability(ctx, provider.ID, at(16, 0), 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Nil(t, res.NextAvailable)
}

func TestCheckAvailabilityIgnoresNonBlocking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "requested", models.StatusRequested, at(14, 0), 120)
	f.seed(t, "cancelled", models.StatusCancelled, at(14, 0), 120)
	f.seed(t, "failed", models.StatusFailed, at(14, 0), 120)

	res, err := f.svc.CheckAvailability(ctx, provider.ID, at(14, 30), time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestCheckAvailabilitySuggestsAfterLatestOverlap(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", models.StatusConfirmed, at(10, 0), 60)
	f.seed(t, "b", models.StatusPendingPayment, at(10, 30), 75)
	f.seed(t, "c", models.StatusInProgress, at(14, 0), 60)

	res, err := f.svc.CheckAvailability(context.Background(), provider.ID, at(10, 0), 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Available)
	// b ends 11:45, rounded up.
	assert.Equal(t, at(12, 0), *res.NextAvailable)
	assert.ElementsMatch(t, []string{"a", "b"}, res.ConflictIDs)
}

func TestCheckAvailabilityValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckAvailability(ctx, "", at(10, 0), time.Hour)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	_, err = f.svc.CheckAvailability(ctx, provider.ID, at(10, 0), 0)
	assert.Equal(t, KindInvalidInput, KindOf(err))
	_, err = f.svc.CheckAvailability(ctx, provider.ID, at(10, 0), 13*time.Hour)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestCreateBookingRejectsConflict(t *testing.T) {
	f := newFixture(t)
	f.create(t, at(14, 0), 120)

	_, err := f.svc.CreateBooking(context.Background(), consumer, CreateRequest{
		ProviderID: provider.ID, ScheduledStart: at(15, 0), DurationMinutes: 120,
	})
	require.Error(t, err)
	assert.Equal(t, KindSlotUnavailable, KindOf(err))
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, at(16, 0).Format(time.RFC3339), be.Details["next_available"])

	f.create(t, at(16, 0), 120)
}

func assertNoOverlaps(t *testing.T, f *fixture) {
	t.Helper()
	list, _, err := f.repo.List(context.Background(), bookingListAll())
	require.NoError(t, err)
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			a, b := &list[i], &list[j]
			if !a.Status.IsBlocking() || !b.Status.IsBlocking() {
				continue
			}
			assert.False(t, Overlaps(a.ScheduledStart, a.End(), b.ScheduledStart, b.End()),
				"%s [%s,%s) overlaps %s [%s,%s)", a.ID, a.ScheduledStart, a.End(), b.ID, b.ScheduledStart, b.End())
		}
	}
}

func randomInterval(rng *rand.Rand) (time.Time, int) {
	start := tomorrow.Add(time.Duration(rng.Intn(24*4)) * 15 * time.Minute)
	return start, 15 * (1 + rng.Intn(12))
}

func TestRandomCreationsNeverOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		start, minutes := randomInterval(rng)
		res, err := f.svc.CreateBooking(ctx, consumer, CreateRequest{
			ProviderID: provider.ID, ScheduledStart: start, DurationMinutes: minutes,
		})
		if err != nil {
			require.Equal(t, KindSlotUnavailable, KindOf(err), err)
			continue
		}
		// Randomly free some slots again so later creations reuse them.
		if rng.Intn(4) == 0 {
			_, err := f.svc.CancelBooking(ctx, consumer, res.Booking.ID, "")
			require.NoError(t, err)
		}
	}
	assertNoOverlaps(t, f)
}

func TestConcurrentCreationsNeverOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := newFixture(t)

	type req struct {
		start   time.Time
		minutes int
	}
	reqs := make([]req, 200)
	for i := range reqs {
		start, minutes := randomInterval(rng)
		reqs[i] = req{start, minutes}
	}

	var wg sync.WaitGroup
	for _, r := range reqs {
		wg.Add(1)
		go func(r req) {
			defer wg.Done()
			_, err := f.svc.CreateBooking(context.Background(), consumer, CreateRequest{
				ProviderID: provider.ID, ScheduledStart: r.start, DurationMinutes: r.minutes,
			})
			if err != nil {
				assert.Equal(t, KindSlotUnavailable, KindOf(err), err)
			}
		}(r)
	}
	wg.Wait()
	assertNoOverlaps(t, f)
}

func TestSameSlotRaceHasOneWinner(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBooking(context.Background(), consumer, CreateRequest{
				ProviderID: provider.ID, ScheduledStart: at(10, 0), DurationMinutes: 60,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, KindSlotUnavailable, KindOf(err))
	}
	assert.Equal(t, 1, ok)
}

func TestStaleClaimOfTerminalBookingIsReclaimed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, at(10, 0), 60)

	// Simulate a lost release: the booking failed but its claims stayed.
	failed := models.StatusFailed
	_, err := f.repo.UpdateIf(ctx, b.ID, matchAny(), patchStatus(failed))
	require.NoError(t, err)
	require.Greater(t, f.claims.Len(), 0)

	f.create(t, at(10, 0), 60)
}

func TestFreshOrphanClaimIsRespected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orphan := &models.Booking{ID: "orphan", ProviderID: provider.ID, ScheduledStart: at(10, 0), DurationMin: 60}
	require.NoError(t, f.claims.Claim(ctx, slotClaims(orphan, f.svc.opts.SlotBucket, f.clock.Now())))

	_, err := f.svc.CreateBooking(ctx, consumer, CreateRequest{
		ProviderID: provider.ID, ScheduledStart: at(10, 0), DurationMinutes: 60,
	})
	assert.Equal(t, KindSlotUnavailable, KindOf(err))

	f.clock.Advance(staleClaimGrace + time.Second)
	f.create(t, at(10, 0), 60)
}

func TestSlotClaimsCoverInterval(t *testing.T) {
	b := &models.Booking{ID: "x", ProviderID: "p", ScheduledStart: at(10, 15), DurationMin: 60}
	claims := slotClaims(b, 15*time.Minute, t0)
	require.Len(t, claims, 4)
	assert.Equal(t, at(10, 15), claims[0].BucketStart)
	assert.Equal(t, at(11, 0), claims[3].BucketStart)
}

func TestTouchingOffHalfHourBookingsBothReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, at(14, 0), 45)

	res, err := f.svc.CheckAvailability(ctx, provider.ID, at(14, 45), 45*time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Available)

	second := f.create(t, at(14, 45), 45)
	assert.Equal(t, first.End(), second.ScheduledStart)
	assertNoOverlaps(t, f)

	_, err = f.svc.CreateBooking(ctx, consumer, CreateRequest{
		ProviderID: provider.ID, ScheduledStart: at(15, 15), DurationMinutes: 30,
	})
	assert.Equal(t, KindSlotUnavailable, KindOf(err))
}

func TestOffGridIntervalsAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CheckAvailability(ctx, provider.ID, at(14, 10), time.Hour)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = f.svc.CreateBooking(ctx, consumer, CreateRequest{
		ProviderID: provider.ID, ScheduledStart: at(14, 10), DurationMinutes: 60,
	})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = f.svc.CreateBooking(ctx, consumer, CreateRequest{
		ProviderID: provider.ID, ScheduledStart: at(14, 0), DurationMinutes: 40,
	})
	require.Error(t, err)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindInvalidInput, be.Kind)
	assert.Equal(t, "15m0s", be.Details["slot_granularity"])
	assert.Equal(t, 0, f.claims.Len())
}
