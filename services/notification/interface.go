package notification

import (
	"context"

	"sessionbook/models"
)

// Message is what a party receives about one of their bookings.
type Message struct {
	Type      models.EventType  `json:"type"`
	BookingID string            `json:"booking_id"`
	Status    string            `json:"status"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// Notifier delivers a message to one user.
type Notifier interface {
	Notify(ctx context.Context, userID string, msg Message) error
}
