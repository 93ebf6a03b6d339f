package booking

import (
	"context"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"

	"go.uber.org/zap"
)

type AttendanceResult struct {
	Booking   *models.Booking `json:"booking"`
	Completed bool            `json:"completed"`
	// WaitingOn names the party that still has to confirm.
	WaitingOn models.Role `json:"waiting_on,omitempty"`
}

// ConfirmAttendance records one party's confirmation. When both are present
// the booking is completed by the system actor and payout is requested.
func (s *Service) ConfirmAttendance(ctx context.Context, actor models.Actor, id string, party models.Role) (*AttendanceResult, error) {
	if party != models.RoleConsumer && party != models.RoleProvider {
		return nil, newError(KindInvalidInput, "party must be consumer or provider")
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeAttendance(b, actor, party); err != nil {
		return nil, err
	}

	if b.Status == models.StatusCompleted && confirmed(b, party) {
		return &AttendanceResult{Booking: b, Completed: true}, nil
	}
	if b.Status != models.StatusInProgress {
		return nil, newError(KindInvalidTransition, "attendance can only be confirmed while in progress, booking is %s", b.Status)
	}

	if !confirmed(b, party) {
		b, err = s.recordConfirmation(ctx, b, party)
		if err != nil {
			return nil, err
		}
		if b.Status == models.StatusCompleted {
			return &AttendanceResult{Booking: b, Completed: true}, nil
		}
	}

	if !b.Attendance.Both() {
		return &AttendanceResult{Booking: b, WaitingOn: otherParty(party)}, nil
	}
	return s.complete(ctx, b)
}

func (s *Service) recordConfirmation(ctx context.Context, b *models.Booking, party models.Role) (*models.Booking, error) {
	now := s.now()
	notYet := false
	match := bookingRepo.Match{Statuses: []models.BookingStatus{models.StatusInProgress}}
	patch := bookingRepo.Patch{UpdatedAt: now}
	if party == models.RoleConsumer {
		match.ConsumerConfirmed = &notYet
		patch.ConsumerConfirmedAt = &now
	} else {
		match.ProviderConfirmed = &notYet
		patch.ProviderConfirmedAt = &now
	}

	updated, err := s.repo.UpdateIf(ctx, b.ID, match, patch)
	if err == nil {
		s.logger.Info("attendance confirmed", zap.String("bookingID", b.ID), zap.String("party", string(party)))
		return updated, nil
	}
	if !IsConditionFailed(err) {
		return nil, internal(err, "failed to record attendance")
	}

	// Either a duplicate call got there first, or the booking moved on.
	fresh, err := s.load(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if confirmed(fresh, party) && (fresh.Status == models.StatusInProgress || fresh.Status == models.StatusCompleted) {
		return fresh, nil
	}
	return nil, newError(KindInvalidTransition, "attendance can only be confirmed while in progress, booking is %s", fresh.Status)
}

// complete performs in_progress -> completed once; a concurrent completer wins silently.
func (s *Service) complete(ctx context.Context, b *models.Booking) (*AttendanceResult, error) {
	now := s.now()
	updated, err := s.transition(ctx, b, models.StatusCompleted, models.SystemActor,
		bookingRepo.Patch{CompletedAt: &now}, bookingRepo.Match{})
	if err != nil {
		if !IsKind(err, KindInvalidTransition) {
			return nil, err
		}
		fresh, lerr := s.load(ctx, b.ID)
		if lerr != nil {
			return nil, lerr
		}
		if fresh.Status == models.StatusCompleted {
			return &AttendanceResult{Booking: fresh, Completed: true}, nil
		}
		return nil, err
	}

	s.emit(ctx, models.EventBookingCompleted, updated, models.SystemActor, nil)
	s.emit(ctx, models.EventPayoutRequested, updated, models.SystemActor, map[string]string{
		"amount":      formatAmount(updated.TotalAmount - updated.Fees),
		"currency":    updated.Currency,
		"completed":   updated.CompletedAt.UTC().Format(time.RFC3339),
		"payment_ref": updated.PaymentGatewayPaymentRef,
	})
	return &AttendanceResult{Booking: updated, Completed: true}, nil
}

func authorizeAttendance(b *models.Booking, actor models.Actor, party models.Role) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != party {
		return newError(KindPermissionDenied, "%s cannot confirm attendance for %s", actor.Role, party)
	}
	if (party == models.RoleConsumer && actor.ID != b.ConsumerID) ||
		(party == models.RoleProvider && actor.ID != b.ProviderID) {
		return newError(KindPermissionDenied, "not a party to booking %s", b.ID)
	}
	return nil
}

func confirmed(b *models.Booking, party models.Role) bool {
	if party == models.RoleConsumer {
		return b.Attendance.ConsumerConfirmed
	}
	return b.Attendance.ProviderConfirmed
}

func otherParty(party models.Role) models.Role {
	if party == models.RoleConsumer {
		return models.RoleProvider
	}
	return models.RoleConsumer
}
