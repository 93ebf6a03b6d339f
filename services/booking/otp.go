package booking

import (
	"context"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"
	"sessionbook/utils"
)

const otpLength = 6

// OTPGrant is a freshly issued start code.
type OTPGrant struct {
	StartOTP  string    `json:"start_otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Service) newOTP() (string, time.Time, error) {
	otp, err := utils.GenerateNumericOTP(otpLength)
	if err != nil {
		return "", time.Time{}, internal(err, "failed to generate start otp")
	}
	return otp, s.now().Add(s.opts.OTPTTL), nil
}

// RegenerateOTP replaces the start code of a confirmed booking for its consumer.
func (s *Service) RegenerateOTP(ctx context.Context, actor models.Actor, id string) (*OTPGrant, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleConsumer || actor.ID != b.ConsumerID {
		return nil, newError(KindPermissionDenied, "only the booking's consumer can request a start code")
	}
	if b.Status != models.StatusConfirmed {
		return nil, newError(KindInvalidTransition, "start code can only be issued for a confirmed booking, not %s", b.Status)
	}

	otp, expires, err := s.newOTP()
	if err != nil {
		return nil, err
	}
	_, err = s.repo.UpdateIf(ctx, b.ID,
		bookingRepo.Match{Statuses: []models.BookingStatus{models.StatusConfirmed}},
		bookingRepo.Patch{StartOTP: &otp, OTPExpiresAt: &expires, UpdatedAt: s.now()},
	)
	if err != nil {
		if IsConditionFailed(err) {
			return nil, newError(KindInvalidTransition, "booking %s is no longer confirmed", b.ID)
		}
		return nil, internal(err, "failed to store start otp")
	}
	return &OTPGrant{StartOTP: otp, ExpiresAt: expires}, nil
}
