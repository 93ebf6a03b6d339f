package booking

import (
	"context"
	"fmt"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"

	"go.uber.org/zap"
)

// CancelBooking cancels before the session starts. A paid booking is refunded;
// a refund failure is reported as an event and never revives the booking.
func (s *Service) CancelBooking(ctx context.Context, actor models.Actor, id, reason string) (*models.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeParty(b, actor); err != nil {
		return nil, err
	}
	return s.cancel(ctx, b, actor, reason)
}

func (s *Service) cancel(ctx context.Context, b *models.Booking, actor models.Actor, reason string) (*models.Booking, error) {
	updated, err := s.transition(ctx, b, models.StatusCancelled, actor,
		bookingRepo.Patch{CancelReason: optString(reason), ClearOTP: true}, bookingRepo.Match{})
	if err != nil {
		return nil, err
	}

	data := reasonData(reason)
	if data == nil {
		data = map[string]string{}
	}
	data["cancelled_by"] = string(actor.Role)
	s.emit(ctx, models.EventBookingCancelled, updated, actor, data)

	if updated.PaymentStatus == models.PaymentCompleted && updated.PaymentGatewayPaymentRef != "" {
		if refunded := s.refund(ctx, updated, reason); refunded != nil {
			updated = refunded
		}
	}
	return updated, nil
}

// refund returns the refunded booking, or nil when the refund did not go through.
func (s *Service) refund(ctx context.Context, b *models.Booking, reason string) *models.Booking {
	refundRef, err := s.gateway.Refund(ctx, b.PaymentGatewayPaymentRef, b.TotalAmount, map[string]string{
		"booking_id": b.ID,
		"reason":     reason,
	})
	if err != nil {
		s.logger.Error("refund failed, needs manual retry",
			zap.String("bookingID", b.ID),
			zap.String("paymentRef", b.PaymentGatewayPaymentRef),
			zap.Error(err),
		)
		s.emit(ctx, models.EventRefundFailed, b, models.SystemActor, map[string]string{
			"payment_ref": b.PaymentGatewayPaymentRef,
			"amount":      fmt.Sprintf("%.2f", b.TotalAmount),
			"error":       err.Error(),
		})
		return nil
	}

	refunded := models.PaymentRefunded
	updated, err := s.repo.UpdateIf(ctx, b.ID,
		bookingRepo.Match{
			Statuses:        []models.BookingStatus{b.Status},
			PaymentStatuses: []models.PaymentStatus{models.PaymentCompleted},
		},
		bookingRepo.Patch{PaymentStatus: &refunded, RefundRef: &refundRef, UpdatedAt: s.now()},
	)
	if err != nil {
		s.logger.Error("refund issued but not recorded",
			zap.String("bookingID", b.ID),
			zap.String("refundRef", refundRef),
			zap.Error(err),
		)
		return nil
	}
	s.logger.Info("booking refunded", zap.String("bookingID", b.ID), zap.String("refundRef", refundRef))
	return updated
}
