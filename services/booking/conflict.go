package booking

import (
	"context"
	"time"

	"sessionbook/models"
)

const slotStep = 30 * time.Minute

// Availability is the answer of the conflict detector. It is advisory: the
// slot claim taken at reservation time is what actually prevents double booking.
type Availability struct {
	Available     bool       `json:"available"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	NextAvailable *time.Time `json:"next_available,omitempty"`
	ConflictIDs   []string   `json:"conflict_ids,omitempty"`
}

// Overlaps reports whether [a,b) and [c,d) intersect. Touching endpoints do not.
func Overlaps(a, b, c, d time.Time) bool {
	return a.Before(d) && c.Before(b)
}

// NextHalfHour rounds t up to the next half-hour boundary; aligned times are unchanged.
func NextHalfHour(t time.Time) time.Time {
	r := t.Truncate(slotStep)
	if r.Equal(t) {
		return r
	}
	return r.Add(slotStep)
}

// DetectConflict checks [start,end) against existing bookings. Only blocking
// statuses count, and excludeID lets a booking be checked against the others.
func DetectConflict(existing []models.Booking, start, end time.Time, excludeID string) Availability {
	res := Availability{Available: true, Start: start, End: end}

	var latestEnd time.Time
	for i := range existing {
		b := &existing[i]
		if b.ID == excludeID || !b.Status.IsBlocking() {
			continue
		}
		if !Overlaps(start, end, b.ScheduledStart, b.End()) {
			continue
		}
		res.Available = false
		res.ConflictIDs = append(res.ConflictIDs, b.ID)
		if b.End().After(latestEnd) {
			latestEnd = b.End()
		}
	}

	if !res.Available {
		next := NextHalfHour(latestEnd)
		res.NextAvailable = &next
	}
	return res
}

// CheckAvailability loads the provider's blocking bookings around the proposed
// interval and runs DetectConflict over them.
func (s *Service) CheckAvailability(ctx context.Context, providerID string, start time.Time, duration time.Duration) (*Availability, error) {
	if err := s.validateInterval(providerID, start, duration); err != nil {
		return nil, err
	}
	return s.checkAvailability(ctx, providerID, start, duration, "")
}

func (s *Service) checkAvailability(ctx context.Context, providerID string, start time.Time, duration time.Duration, excludeID string) (*Availability, error) {
	end := start.Add(duration)
	candidates, err := s.repo.FindInWindow(ctx, providerID,
		start.Add(-s.opts.ConflictWindow), end.Add(s.opts.ConflictWindow), models.BlockingStatuses)
	if err != nil {
		return nil, internal(err, "failed to load provider bookings")
	}
	res := DetectConflict(candidates, start, end, excludeID)
	return &res, nil
}

func (s *Service) validateInterval(providerID string, start time.Time, duration time.Duration) error {
	if providerID == "" {
		return newError(KindInvalidInput, "provider_id is required")
	}
	if start.IsZero() {
		return newError(KindInvalidInput, "scheduled_start is required")
	}
	if duration <= 0 {
		return newError(KindInvalidInput, "duration must be positive")
	}
	// Candidates are fetched by start time, so a longer session could be missed.
	if duration > s.opts.ConflictWindow {
		return newError(KindInvalidInput, "duration may not exceed %s", s.opts.ConflictWindow)
	}
	// Slot claims cover whole buckets, so intervals must sit on the bucket grid.
	bucket := s.opts.SlotBucket
	if !start.Truncate(bucket).Equal(start) || duration%bucket != 0 {
		err := newError(KindInvalidInput, "scheduled_start and duration must be multiples of %s", bucket)
		err.Details = map[string]string{"slot_granularity": bucket.String()}
		return err
	}
	return nil
}
