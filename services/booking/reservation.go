package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"

	"go.uber.org/zap"
)

// staleClaimGrace is how long a claim without a stored booking is respected.
const staleClaimGrace = 2 * time.Minute

// slotClaims splits [start,end) into provider buckets. Intervals are validated
// onto the bucket grid, so the buckets cover exactly [start,end).
func slotClaims(b *models.Booking, bucket time.Duration, now time.Time) []bookingRepo.SlotClaim {
	end := b.End()
	var claims []bookingRepo.SlotClaim
	for t := b.ScheduledStart.UTC().Truncate(bucket); t.Before(end); t = t.Add(bucket) {
		claims = append(claims, bookingRepo.SlotClaim{
			ID:          bookingRepo.ClaimID(b.ProviderID, t),
			ProviderID:  b.ProviderID,
			BookingID:   b.ID,
			BucketStart: t,
			CreatedAt:   now,
		})
	}
	return claims
}

// claimSlot atomically reserves the booking's interval. A claim left behind by a
// booking that has since gone terminal is cleared and the claim retried once.
func (s *Service) claimSlot(ctx context.Context, b *models.Booking) error {
	claims := slotClaims(b, s.opts.SlotBucket, s.now())

	for attempt := 0; attempt < 2; attempt++ {
		err := s.claims.Claim(ctx, claims)
		if err == nil {
			return nil
		}
		var conflict *bookingRepo.ClaimConflictError
		if !errors.As(err, &conflict) {
			return internal(err, "failed to reserve slot")
		}

		claim, err := s.claims.Holder(ctx, conflict.ClaimID)
		if errors.Is(err, bookingRepo.ErrNotFound) {
			continue
		}
		if err != nil {
			return internal(err, "failed to inspect slot claim")
		}

		// A holder that is missing or not yet blocking may be mid-reservation.
		inFlight := s.now().Sub(claim.CreatedAt) < staleClaimGrace
		holder, err := s.repo.GetByID(ctx, claim.BookingID)
		switch {
		case errors.Is(err, bookingRepo.ErrNotFound):
			if inFlight {
				return slotUnavailable(b, time.Time{})
			}
		case err != nil:
			return internal(err, "failed to load slot holder")
		case holder.Status.IsBlocking():
			return slotUnavailable(b, NextHalfHour(holder.End()))
		case !IsTerminal(holder.Status) && inFlight:
			return slotUnavailable(b, time.Time{})
		}

		s.logger.Info("releasing stale slot claim",
			zap.String("claimID", conflict.ClaimID),
			zap.String("holderID", claim.BookingID),
		)
		if err := s.claims.ReleaseIfHeld(ctx, conflict.ClaimID, claim.BookingID); err != nil {
			return internal(err, "failed to release stale slot claim")
		}
	}
	return slotUnavailable(b, time.Time{})
}

// releaseSlot drops the booking's claims. Failures leave stale claims, which claimSlot tolerates.
func (s *Service) releaseSlot(ctx context.Context, b *models.Booking) {
	if err := s.claims.ReleaseByBooking(ctx, b.ID); err != nil {
		s.logger.Warn("failed to release slot claims", zap.String("bookingID", b.ID), zap.Error(err))
	}
}

func slotUnavailable(b *models.Booking, next time.Time) *Error {
	e := newError(KindSlotUnavailable, "provider %s is not available from %s to %s",
		b.ProviderID, b.ScheduledStart.Format(time.RFC3339), b.End().Format(time.RFC3339))
	if !next.IsZero() {
		e.Details = map[string]string{"next_available": next.Format(time.RFC3339)}
	}
	return e
}
