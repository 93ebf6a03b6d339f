package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"

	"go.uber.org/zap"
)

// VerifyRequest carries the client's proof of payment.
type VerifyRequest struct {
	OrderRef   string
	PaymentRef string
	Signature  string
}

// Confirmation is the result of a successful payment verification. A replayed
// call returns the stored result with AlreadyConfirmed set. Refunded is set when
// the payment was handed back because the booking had already ended.
type Confirmation struct {
	Booking          *models.Booking `json:"booking"`
	StartOTP         string          `json:"start_otp"`
	OTPExpiresAt     string          `json:"otp_expires_at,omitempty"`
	AlreadyConfirmed bool            `json:"already_confirmed"`
	Refunded         bool            `json:"refunded,omitempty"`
}

// VerifyPayment confirms a pending_payment booking exactly once. After the first
// success every repeat with the same payment ref is a read-only replay.
func (s *Service) VerifyPayment(ctx context.Context, actor models.Actor, id string, req VerifyRequest) (*Confirmation, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSystem && !(actor.Role == models.RoleConsumer && actor.ID == b.ConsumerID) {
		return nil, newError(KindPermissionDenied, "only the booking's consumer can verify its payment")
	}

	if replay, err := replayConfirmation(b, req.PaymentRef); replay != nil || err != nil {
		return replay, err
	}
	if err := Validate(b.Status, models.StatusConfirmed, actor.Role); err != nil {
		return nil, err
	}

	if b.PaymentStatus == models.PaymentNotRequired {
		return s.confirmPayment(ctx, b, actor, "")
	}

	if req.PaymentRef == "" || req.Signature == "" {
		return nil, newError(KindInvalidInput, "payment_ref and signature are required")
	}
	if req.OrderRef != "" && req.OrderRef != b.PaymentGatewayOrderRef {
		return nil, newError(KindPaymentFailed, "order reference does not match booking")
	}
	if !s.gateway.VerifySignature(b.PaymentGatewayOrderRef, req.PaymentRef, req.Signature) {
		s.logger.Warn("payment signature mismatch", zap.String("bookingID", b.ID))
		return nil, newError(KindPaymentFailed, "payment signature verification failed")
	}
	return s.confirmPayment(ctx, b, actor, req.PaymentRef)
}

// ConfirmFromGateway handles a gateway-verified payment (webhook). The gateway
// signature has already been checked by the caller.
func (s *Service) ConfirmFromGateway(ctx context.Context, orderRef, paymentRef string) (*Confirmation, error) {
	if orderRef == "" || paymentRef == "" {
		return nil, newError(KindInvalidInput, "order and payment references are required")
	}
	b, err := s.repo.GetByOrderRef(ctx, orderRef)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, newError(KindNotFound, "no booking for order %s", orderRef)
		}
		return nil, internal(err, "failed to load booking by order")
	}

	if replay, err := replayConfirmation(b, paymentRef); replay != nil || err != nil {
		return replay, err
	}
	if paidTooLate(b) {
		return s.refundLatePayment(ctx, b, paymentRef)
	}
	if err := Validate(b.Status, models.StatusConfirmed, models.RoleSystem); err != nil {
		return nil, err
	}
	conf, err := s.confirmPayment(ctx, b, models.SystemActor, paymentRef)
	if IsKind(err, KindInvalidTransition) {
		// The sweeper or a cancel may have won the race after we loaded.
		if fresh, gerr := s.repo.GetByID(ctx, b.ID); gerr == nil && paidTooLate(fresh) {
			return s.refundLatePayment(ctx, fresh, paymentRef)
		}
	}
	return conf, err
}

// paidTooLate reports a booking that ended while its payment was still open.
func paidTooLate(b *models.Booking) bool {
	return IsTerminal(b.Status) && b.PaymentStatus == models.PaymentPending && b.PaymentGatewayPaymentRef == ""
}

// refundLatePayment records a payment captured for a booking that already ended
// and hands it back. The booking stays terminal.
func (s *Service) refundLatePayment(ctx context.Context, b *models.Booking, paymentRef string) (*Confirmation, error) {
	completed := models.PaymentCompleted
	recorded, err := s.repo.UpdateIf(ctx, b.ID,
		bookingRepo.Match{
			Statuses:        []models.BookingStatus{b.Status},
			PaymentStatuses: []models.PaymentStatus{models.PaymentPending},
			PaymentRefUnset: true,
		},
		bookingRepo.Patch{PaymentStatus: &completed, PaymentRef: &paymentRef, UpdatedAt: s.now()},
	)
	if err != nil {
		if !errors.Is(err, bookingRepo.ErrConditionFailed) {
			return nil, internal(err, "failed to record late payment")
		}
		fresh, gerr := s.repo.GetByID(ctx, b.ID)
		if gerr != nil {
			return nil, internal(gerr, "failed to reload booking")
		}
		if replay, rerr := replayConfirmation(fresh, paymentRef); replay != nil || rerr != nil {
			return replay, rerr
		}
		return nil, newError(KindInvalidTransition, "booking %s changed while recording a late payment", b.ID)
	}

	s.logger.Warn("payment received for ended booking, refunding",
		zap.String("bookingID", b.ID),
		zap.String("status", string(b.Status)),
		zap.String("paymentRef", paymentRef),
	)
	if refunded := s.refund(ctx, recorded, "payment received after booking "+string(b.Status)); refunded != nil {
		recorded = refunded
	}
	return newConfirmation(recorded, false), nil
}

// confirmPayment is the single conditional write of the payment guard. It only
// matches a booking still pending with no payment ref, so exactly one caller wins.
func (s *Service) confirmPayment(ctx context.Context, b *models.Booking, actor models.Actor, paymentRef string) (*Confirmation, error) {
	otp, expires, err := s.newOTP()
	if err != nil {
		return nil, err
	}

	match := bookingRepo.Match{
		PaymentStatuses: []models.PaymentStatus{b.PaymentStatus},
		PaymentRefUnset: true,
	}
	patch := bookingRepo.Patch{StartOTP: &otp, OTPExpiresAt: &expires}
	if paymentRef != "" {
		completed := models.PaymentCompleted
		patch.PaymentStatus = &completed
		patch.PaymentRef = &paymentRef
	}

	updated, err := s.transition(ctx, b, models.StatusConfirmed, actor, patch, match)
	if err != nil {
		if !IsKind(err, KindInvalidTransition) {
			return nil, err
		}
		// Lost a race: if the winner used the same payment, answer as a replay.
		fresh, gerr := s.repo.GetByID(ctx, b.ID)
		if gerr != nil {
			return nil, err
		}
		if replay, rerr := replayConfirmation(fresh, paymentRef); replay != nil || rerr != nil {
			return replay, rerr
		}
		return nil, err
	}

	s.logger.Info("payment verified",
		zap.String("bookingID", updated.ID),
		zap.String("paymentRef", paymentRef),
		zap.String("actor", string(actor.Role)),
	)
	s.emit(ctx, models.EventBookingConfirmed, updated, actor, map[string]string{"payment_ref": paymentRef})
	return newConfirmation(updated, false), nil
}

// replayConfirmation returns the stored result for an already paid booking,
// whatever the booking went on to do. A different payment ref can never claim
// a paid booking.
func replayConfirmation(b *models.Booking, paymentRef string) (*Confirmation, error) {
	switch b.PaymentStatus {
	case models.PaymentCompleted, models.PaymentRefunded:
		if b.PaymentGatewayPaymentRef == "" {
			return nil, nil
		}
		if paymentRef != "" && paymentRef != b.PaymentGatewayPaymentRef {
			return nil, newError(KindPaymentFailed, "booking %s is already paid with a different payment", b.ID)
		}
	case models.PaymentNotRequired:
		if b.Mode != models.ModeInstant || !wasConfirmed(b.Status) {
			return nil, nil
		}
	default:
		return nil, nil
	}
	return newConfirmation(b, true), nil
}

func wasConfirmed(status models.BookingStatus) bool {
	switch status {
	case models.StatusConfirmed, models.StatusInProgress, models.StatusCompleted:
		return true
	}
	return false
}

func newConfirmation(b *models.Booking, replay bool) *Confirmation {
	c := &Confirmation{
		Booking:          b,
		StartOTP:         b.StartOTP,
		AlreadyConfirmed: replay,
		Refunded:         b.PaymentStatus == models.PaymentRefunded,
	}
	if b.OTPExpiresAt != nil {
		c.OTPExpiresAt = b.OTPExpiresAt.UTC().Format(time.RFC3339)
	}
	return c
}
