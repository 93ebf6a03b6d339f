package bookingRepo

import (
	"time"

	"sessionbook/models"
)

// Match is the precondition of a conditional update. Zero fields are not checked.
type Match struct {
	Statuses          []models.BookingStatus
	PaymentStatuses   []models.PaymentStatus
	PaymentRefUnset   bool
	StartOTP          *string
	ConsumerConfirmed *bool
	ProviderConfirmed *bool
	CreatedBefore     *time.Time
}

// Patch is the set of fields a conditional update writes. Nil fields are left alone.
type Patch struct {
	Status              *models.BookingStatus
	PaymentStatus       *models.PaymentStatus
	PaymentRef          *string
	RefundRef           *string
	StartOTP            *string
	OTPExpiresAt        *time.Time
	ClearOTP            bool
	ConsumerConfirmedAt *time.Time
	ProviderConfirmedAt *time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time
	CancelReason        *string
	UpdatedAt           time.Time
}

// Matches evaluates m against b the same way the Mongo filter does.
func (m Match) Matches(b *models.Booking) bool {
	if len(m.Statuses) > 0 && !containsStatus(m.Statuses, b.Status) {
		return false
	}
	if len(m.PaymentStatuses) > 0 && !containsPayment(m.PaymentStatuses, b.PaymentStatus) {
		return false
	}
	if m.PaymentRefUnset && b.PaymentGatewayPaymentRef != "" {
		return false
	}
	if m.StartOTP != nil && b.StartOTP != *m.StartOTP {
		return false
	}
	if m.ConsumerConfirmed != nil && b.Attendance.ConsumerConfirmed != *m.ConsumerConfirmed {
		return false
	}
	if m.ProviderConfirmed != nil && b.Attendance.ProviderConfirmed != *m.ProviderConfirmed {
		return false
	}
	if m.CreatedBefore != nil && !b.CreatedAt.Before(*m.CreatedBefore) {
		return false
	}
	return true
}

// ApplyTo writes p into b the same way the Mongo update does.
func (p Patch) ApplyTo(b *models.Booking) {
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentRef != nil {
		b.PaymentGatewayPaymentRef = *p.PaymentRef
	}
	if p.RefundRef != nil {
		b.RefundRef = *p.RefundRef
	}
	if p.ClearOTP {
		b.StartOTP = ""
		b.OTPExpiresAt = nil
	}
	if p.StartOTP != nil {
		b.StartOTP = *p.StartOTP
	}
	if p.OTPExpiresAt != nil {
		t := *p.OTPExpiresAt
		b.OTPExpiresAt = &t
	}
	if p.ConsumerConfirmedAt != nil {
		t := *p.ConsumerConfirmedAt
		b.Attendance.ConsumerConfirmed = true
		b.Attendance.ConsumerConfirmedAt = &t
	}
	if p.ProviderConfirmedAt != nil {
		t := *p.ProviderConfirmedAt
		b.Attendance.ProviderConfirmed = true
		b.Attendance.ProviderConfirmedAt = &t
	}
	if p.StartedAt != nil {
		t := *p.StartedAt
		b.StartedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		b.CompletedAt = &t
	}
	if p.CancelReason != nil {
		b.CancelReason = *p.CancelReason
	}
	if !p.UpdatedAt.IsZero() {
		b.UpdatedAt = p.UpdatedAt
	}
}

func containsStatus(list []models.BookingStatus, s models.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPayment(list []models.PaymentStatus, s models.PaymentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
