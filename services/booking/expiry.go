package booking

import (
	"context"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"

	"go.uber.org/zap"
)

// ExpireStaleBookings fails every pending_payment booking created more than
// PendingPaymentTTL before now and returns how many it expired. Each booking is
// moved with a conditional update, so a concurrent payment or another sweeper
// simply makes it skip that booking.
func (s *Service) ExpireStaleBookings(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.opts.PendingPaymentTTL)
	failed := models.StatusFailed
	if err := Validate(models.StatusPendingPayment, failed, models.RoleSystem); err != nil {
		return 0, err
	}

	expired := 0
	var firstErr error
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		stale, err := s.repo.FindStalePending(ctx, cutoff, s.opts.SweepBatch)
		if err != nil {
			return expired, internal(err, "failed to scan stale bookings")
		}

		batchExpired := 0
		for i := range stale {
			b := &stale[i]
			updated, err := s.repo.UpdateIf(ctx, b.ID,
				bookingRepo.Match{
					Statuses:      []models.BookingStatus{models.StatusPendingPayment},
					CreatedBefore: &cutoff,
				},
				bookingRepo.Patch{Status: &failed, ClearOTP: true, UpdatedAt: now},
			)
			if err != nil {
				if IsConditionFailed(err) {
					continue
				}
				s.logger.Error("failed to expire booking", zap.String("bookingID", b.ID), zap.Error(err))
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			batchExpired++
			s.releaseSlot(ctx, updated)
			s.emit(ctx, models.EventBookingExpired, updated, models.SystemActor, map[string]string{
				"created_at": updated.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		expired += batchExpired

		// A short batch means the scan is exhausted; an unproductive one would loop forever.
		if len(stale) < s.opts.SweepBatch || batchExpired == 0 {
			break
		}
	}

	if expired > 0 {
		s.logger.Info("expired stale bookings", zap.Int("count", expired), zap.Time("cutoff", cutoff))
	}
	if firstErr != nil {
		return expired, internal(firstErr, "some stale bookings could not be expired")
	}
	return expired, nil
}
