package booking

import (
	"context"
	"time"

	"sessionbook/models"
	"sessionbook/services/coupon"
)

// LifecycleService is the booking lifecycle engine as seen by handlers and jobs.
type LifecycleService interface {
	CreateBooking(ctx context.Context, actor models.Actor, req CreateRequest) (*CreateResult, error)
	CheckAvailability(ctx context.Context, providerID string, start time.Time, duration time.Duration) (*Availability, error)
	GetBooking(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, actor models.Actor, q ListQuery) (*BookingPage, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, to models.BookingStatus, reason string) (*models.Booking, error)
	CancelBooking(ctx context.Context, actor models.Actor, id, reason string) (*models.Booking, error)
	VerifyPayment(ctx context.Context, actor models.Actor, id string, req VerifyRequest) (*Confirmation, error)
	ConfirmFromGateway(ctx context.Context, orderRef, paymentRef string) (*Confirmation, error)
	RegenerateOTP(ctx context.Context, actor models.Actor, id string) (*OTPGrant, error)
	StartBooking(ctx context.Context, actor models.Actor, id string, req StartRequest) (*models.Booking, error)
	ConfirmAttendance(ctx context.Context, actor models.Actor, id string, party models.Role) (*AttendanceResult, error)
	ProviderSummary(ctx context.Context, actor models.Actor, providerID string) (*ProviderSummary, error)
	ExpireStaleBookings(ctx context.Context, now time.Time) (int, error)
}

// CouponRedeemer is the coupon guard used at creation time.
type CouponRedeemer interface {
	Redeem(ctx context.Context, code string, subtotal float64, now time.Time) coupon.Redemption
	Release(ctx context.Context, code string, now time.Time)
}

var _ LifecycleService = (*Service)(nil)
