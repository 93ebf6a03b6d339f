package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "pending_payment"
	StatusRequested      BookingStatus = "requested"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusInProgress     BookingStatus = "in_progress"
	StatusCompleted      BookingStatus = "completed"
	StatusCancelled      BookingStatus = "cancelled"
	StatusRejected       BookingStatus = "rejected"
	StatusFailed         BookingStatus = "failed"
)

// AllStatuses lists every booking status in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusPendingPayment,
	StatusRequested,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
	StatusFailed,
}

// BlockingStatuses hold a provider's time. A requested booking has not reserved anything yet.
var BlockingStatuses = []BookingStatus{
	StatusPendingPayment,
	StatusConfirmed,
	StatusInProgress,
}

// IsBlocking reports whether a booking in this status occupies its slot.
func (s BookingStatus) IsBlocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// PaymentStatus is tracked independently of the booking status.
type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not_required"
	PaymentPending     PaymentStatus = "pending"
	PaymentCompleted   PaymentStatus = "completed"
	PaymentRefunded    PaymentStatus = "refunded"
)

// BookingMode selects how a booking enters the lifecycle.
type BookingMode string

const (
	ModeInstant BookingMode = "instant" // pay now, slot held from creation
	ModeRequest BookingMode = "request" // provider approves first
)

// Attendance holds the two independent end-of-session confirmations.
type Attendance struct {
	ConsumerConfirmed   bool       `bson:"consumer_confirmed" json:"consumer_confirmed"`
	ConsumerConfirmedAt *time.Time `bson:"consumer_confirmed_at,omitempty" json:"consumer_confirmed_at,omitempty"`
	ProviderConfirmed   bool       `bson:"provider_confirmed" json:"provider_confirmed"`
	ProviderConfirmedAt *time.Time `bson:"provider_confirmed_at,omitempty" json:"provider_confirmed_at,omitempty"`
}

// Both reports whether consumer and provider have confirmed.
func (a Attendance) Both() bool {
	return a.ConsumerConfirmed && a.ProviderConfirmed
}

// Booking is a reserved session between a consumer and a provider.
type Booking struct {
	ID             string        `bson:"id" json:"id"`
	ConsumerID     string        `bson:"consumer_id" json:"consumer_id"`
	ProviderID     string        `bson:"provider_id" json:"provider_id"`
	Mode           BookingMode   `bson:"mode" json:"mode"`
	ScheduledStart time.Time     `bson:"scheduled_start" json:"scheduled_start"`
	DurationMin    int           `bson:"duration_minutes" json:"duration_minutes"`
	Location       *GeoPoint     `bson:"location,omitempty" json:"location,omitempty"`

	Status        BookingStatus `bson:"status" json:"status"`
	PaymentStatus PaymentStatus `bson:"payment_status" json:"payment_status"`

	PaymentGatewayOrderRef   string `bson:"payment_gateway_order_ref,omitempty" json:"payment_gateway_order_ref,omitempty"`
	PaymentGatewayPaymentRef string `bson:"payment_gateway_payment_ref,omitempty" json:"payment_gateway_payment_ref,omitempty"`
	RefundRef                string `bson:"refund_ref,omitempty" json:"refund_ref,omitempty"`

	StartOTP     string     `bson:"start_otp,omitempty" json:"-"`
	OTPExpiresAt *time.Time `bson:"otp_expires_at,omitempty" json:"otp_expires_at,omitempty"`

	Attendance Attendance `bson:"attendance" json:"attendance"`

	Subtotal    float64 `bson:"subtotal" json:"subtotal"`
	Fees        float64 `bson:"fees" json:"fees"`
	Discount    float64 `bson:"discount" json:"discount"`
	TotalAmount float64 `bson:"total_amount" json:"total_amount"`
	Currency    string  `bson:"currency" json:"currency"`
	CouponCode  string  `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`

	CancelReason string `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Duration is the length of the booked interval.
func (b *Booking) Duration() time.Duration {
	return time.Duration(b.DurationMin) * time.Minute
}

// End returns the exclusive end of the booked interval.
func (b *Booking) End() time.Time {
	return b.ScheduledStart.Add(b.Duration())
}

// IsParty reports whether userID owns either side of the booking.
func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (userID == b.ConsumerID || userID == b.ProviderID)
}
