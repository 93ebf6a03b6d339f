package notification

import (
	"fmt"

	"sessionbook/models"
)

// Recipient pairs a user with the message they should get.
type Recipient struct {
	UserID  string
	Message Message
}

// ForEvent decides who hears about an event and what they read.
// Events with no audience (payout, refund failures) return nil.
func ForEvent(evt models.Event) []Recipient {
	base := Message{
		Type:      evt.Type,
		BookingID: evt.BookingID,
		Status:    string(evt.Status),
		Data:      evt.Data,
	}
	with := func(title, body string) Message {
		m := base
		m.Title = title
		m.Body = body
		return m
	}

	switch evt.Type {
	case models.EventPaymentRequired:
		return []Recipient{{evt.ConsumerID, with("Complete your payment", "Your session is held for a short time. Pay now to confirm it.")}}
	case models.EventBookingCreated:
		return []Recipient{{evt.ProviderID, with("New booking request", "A client has asked to book a session with you.")}}
	case models.EventBookingConfirmed:
		return []Recipient{
			{evt.ConsumerID, with("Booking confirmed", "Your session is confirmed.")},
			{evt.ProviderID, with("Booking confirmed", "A session on your schedule is confirmed.")},
		}
	case models.EventBookingStarted:
		return []Recipient{{evt.ConsumerID, with("Session started", "Your provider has started the session.")}}
	case models.EventBookingCompleted:
		return []Recipient{
			{evt.ConsumerID, with("Session completed", "Thanks for confirming your session.")},
			{evt.ProviderID, with("Session completed", "Both parties confirmed. Your payout is on its way.")},
		}
	case models.EventBookingCancelled:
		return []Recipient{
			{evt.ConsumerID, with("Booking cancelled", cancelBody(evt))},
			{evt.ProviderID, with("Booking cancelled", cancelBody(evt))},
		}
	case models.EventBookingExpired:
		return []Recipient{{evt.ConsumerID, with("Reservation expired", "Payment was not completed in time, so the slot was released.")}}
	case models.EventBookingUpdate:
		return []Recipient{
			{evt.ConsumerID, with("Booking updated", fmt.Sprintf("Your booking is now %s.", evt.Status))},
			{evt.ProviderID, with("Booking updated", fmt.Sprintf("A booking is now %s.", evt.Status))},
		}
	}
	return nil
}

func cancelBody(evt models.Event) string {
	if reason := evt.Data["reason"]; reason != "" {
		return "The session was cancelled: " + reason
	}
	return "The session was cancelled."
}
