package models

import "time"

type EventType string

const (
	EventBookingCreated   EventType = "booking_created"
	EventPaymentRequired  EventType = "payment_required"
	EventBookingUpdate    EventType = "booking_update"
	EventBookingConfirmed EventType = "booking_confirmed"
	EventBookingStarted   EventType = "booking_started"
	EventBookingCompleted EventType = "booking_completed"
	EventBookingCancelled EventType = "booking_cancelled"
	EventBookingExpired   EventType = "booking_expired"
	EventPayoutRequested  EventType = "payout_requested"
	EventRefundFailed     EventType = "refund_failed"
)

// Event is emitted after a booking mutation has been committed.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	BookingID  string            `json:"booking_id"`
	ConsumerID string            `json:"consumer_id"`
	ProviderID string            `json:"provider_id"`
	Status     BookingStatus     `json:"status"`
	Actor      Actor             `json:"actor"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
