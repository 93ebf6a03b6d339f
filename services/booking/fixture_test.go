package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	memoryRepo "sessionbook/database/repository/memory"
	"sessionbook/models"
	"sessionbook/services/coupon"
	"sessionbook/services/events"
	"sessionbook/services/payment"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-signing-secret"

var (
	t0       = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	tomorrow = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	consumer = models.Actor{ID: "consumer-1", Role: models.RoleConsumer}
	provider = models.Actor{ID: "provider-1", Role: models.RoleProvider}
	admin    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *Service
	repo    *memoryRepo.BookingRepo
	claims  *memoryRepo.SlotClaimRepo
	coupons *memoryRepo.CouponRepo
	gateway *payment.SandboxGateway
	events  *events.Recorder
	clock   *testClock
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		repo:    memoryRepo.NewBookingRepo(),
		claims:  memoryRepo.NewSlotClaimRepo(),
		coupons: memoryRepo.NewCouponRepo(),
		gateway: payment.NewSandboxGateway(testSecret),
		events:  &events.Recorder{},
		clock:   &testClock{now: t0},
	}
	f.svc = f.serviceOver(t, f.repo, opts...)
	return f
}

// serviceOver builds a service sharing the fixture's stores, clock and gateway
// but reading bookings through repo.
func (f *fixture) serviceOver(t *testing.T, repo bookingRepo.BookingRepository, opts ...func(*Options)) *Service {
	t.Helper()
	o := DefaultOptions()
	o.AllowPlaceholderOrders = true
	for _, fn := range opts {
		fn(&o)
	}

	svc, err := NewService(Dependencies{
		Bookings:  repo,
		Claims:    f.claims,
		Coupons:   coupon.NewService(f.coupons, zap.NewNop()),
		Gateway:   f.gateway,
		Pricer:    FlatRatePricer{HourlyRate: 1000, FeeRate: 0.05},
		Publisher: f.events,
		Logger:    zap.NewNop(),
		Now:       f.clock.Now,
	}, o)
	require.NoError(t, err)
	return svc
}

func at(hour, min int) time.Time {
	return tomorrow.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

// create makes an instant booking for consumer with provider.
func (f *fixture) create(t *testing.T, start time.Time, minutes int) *models.Booking {
	t.Helper()
	res, err := f.svc.CreateBooking(context.Background(), consumer, CreateRequest{
		ProviderID:      provider.ID,
		Mode:            models.ModeInstant,
		ScheduledStart:  start,
		DurationMinutes: minutes,
		Location:        models.NewGeoPoint(-1.2921, 36.8219),
	})
	require.NoError(t, err)
	return res.Booking
}

func (f *fixture) payRequest(b *models.Booking, paymentRef string) VerifyRequest {
	return VerifyRequest{
		OrderRef:   b.PaymentGatewayOrderRef,
		PaymentRef: paymentRef,
		Signature:  payment.Sign(testSecret, b.PaymentGatewayOrderRef, paymentRef),
	}
}

func (f *fixture) pay(t *testing.T, b *models.Booking) *Confirmation {
	t.Helper()
	conf, err := f.svc.VerifyPayment(context.Background(), consumer, b.ID, f.payRequest(b, "pay_"+b.ID))
	require.NoError(t, err)
	return conf
}

// started returns a booking that is in progress.
func (f *fixture) started(t *testing.T, start time.Time) *models.Booking {
	t.Helper()
	b := f.create(t, start, 60)
	conf := f.pay(t, b)
	started, err := f.svc.StartBooking(context.Background(), provider, b.ID, StartRequest{OTP: conf.StartOTP})
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, started.Status)
	return started
}

// seed stores a booking directly in the given status.
func (f *fixture) seed(t *testing.T, id string, status models.BookingStatus, start time.Time, minutes int) *models.Booking {
	t.Helper()
	b := &models.Booking{
		ID:             id,
		ConsumerID:     consumer.ID,
		ProviderID:     provider.ID,
		Mode:           models.ModeInstant,
		ScheduledStart: start,
		DurationMin:    minutes,
		Status:         status,
		PaymentStatus:  models.PaymentPending,
		CreatedAt:      f.clock.Now(),
		UpdatedAt:      f.clock.Now(),
	}
	require.NoError(t, f.repo.Create(context.Background(), b))
	return b
}

func (f *fixture) get(t *testing.T, id string) *models.Booking {
	t.Helper()
	b, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}
