package handlers

import (
	"sessionbook/services/booking"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	JWTSecret           string
	MaxRequestsPerMin   int
	TrustedProxyHeaders []string

	Booking *BookingHandler
	Payment *PaymentHandler
	Admin   *AdminHandler
	Health  *HealthHandler
}

// NewHandlerBundle wires every handler around one lifecycle service.
func NewHandlerBundle(svc booking.LifecycleService, webhooks WebhookParser, jwtSecret string, maxPerMin int) *HandlerBundle {
	registerValidators()
	return &HandlerBundle{
		JWTSecret:         jwtSecret,
		MaxRequestsPerMin: maxPerMin,
		Booking:           NewBookingHandler(svc),
		Payment:           NewPaymentHandler(svc, webhooks),
		Admin:             NewAdminHandler(svc),
		Health:            NewHealthHandler(),
	}
}
