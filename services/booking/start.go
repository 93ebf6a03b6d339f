package booking

import (
	"context"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"
	"sessionbook/utils"
)

// StartRequest proves presence with either the consumer's code or the
// provider's current coordinates.
type StartRequest struct {
	OTP       string
	Latitude  *float64
	Longitude *float64
}

// StartBooking moves a confirmed booking to in_progress for its provider.
func (s *Service) StartBooking(ctx context.Context, actor models.Actor, id string, req StartRequest) (*models.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(b, actor); err != nil {
		return nil, err
	}
	if err := Validate(b.Status, models.StatusInProgress, actor.Role); err != nil {
		return nil, err
	}
	if err := s.checkPresence(b, req); err != nil {
		return nil, err
	}

	// The code that was checked must still be the stored one when we write.
	var match bookingRepo.Match
	if req.OTP != "" {
		otp := b.StartOTP
		match.StartOTP = &otp
	}
	now := s.now()
	updated, err := s.transition(ctx, b, models.StatusInProgress, actor,
		bookingRepo.Patch{StartedAt: &now, ClearOTP: true}, match)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventBookingStarted, updated, actor, nil)
	return updated, nil
}

func (s *Service) checkPresence(b *models.Booking, req StartRequest) error {
	if req.OTP != "" {
		if b.StartOTP == "" || b.OTPExpiresAt == nil {
			return newError(KindInvalidInput, "no start code has been issued")
		}
		if !s.now().Before(*b.OTPExpiresAt) {
			return newError(KindInvalidInput, "start code has expired")
		}
		if !utils.OTPEqual(b.StartOTP, req.OTP) {
			return newError(KindInvalidInput, "invalid start code")
		}
		return nil
	}

	if req.Latitude == nil || req.Longitude == nil {
		return newError(KindInvalidInput, "otp or location is required to start a session")
	}
	if !validLatLng(*req.Latitude, *req.Longitude) {
		return newError(KindInvalidInput, "invalid location")
	}
	if b.Location == nil {
		return newError(KindInvalidInput, "booking has no location; use the start code")
	}
	lat, lng, ok := b.Location.LatLng()
	if !ok {
		return newError(KindInvalidInput, "booking has no location; use the start code")
	}
	dist := haversineMeters(lat, lng, *req.Latitude, *req.Longitude)
	if dist > s.opts.GeofenceRadiusMeters {
		return newError(KindInvalidInput, "provider is %.0fm from the session location", dist)
	}
	return nil
}
