package memoryRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingRepo "sessionbook/database/repository/booking"
	"sessionbook/models"
)

// BookingRepo is an in-process BookingRepository. Every conditional update runs
// under one mutex, which gives the same atomicity as a single-document update.
type BookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{bookings: make(map[string]*models.Booking)}
}

func (r *BookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[b.ID]; exists {
		return bookingRepo.ErrDuplicateKey
	}
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepo) GetByOrderRef(_ context.Context, orderRef string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if orderRef == "" {
		return nil, bookingRepo.ErrNotFound
	}
	for _, b := range r.bookings {
		if b.PaymentGatewayOrderRef == orderRef {
			return cloneBooking(b), nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *BookingRepo) FindInWindow(_ context.Context, providerID string, from, to time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	match := bookingRepo.Match{Statuses: statuses}
	var out []models.Booking
	for _, b := range r.bookings {
		if b.ProviderID != providerID || !match.Matches(b) {
			continue
		}
		if b.ScheduledStart.Before(from) || !b.ScheduledStart.Before(to) {
			continue
		}
		out = append(out, *cloneBooking(b))
	}
	sortByStart(out)
	return out, nil
}

func (r *BookingRepo) List(_ context.Context, f bookingRepo.ListFilter) ([]models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	match := bookingRepo.Match{Statuses: f.Statuses}
	var all []models.Booking
	for _, b := range r.bookings {
		if f.ConsumerID != "" && b.ConsumerID != f.ConsumerID {
			continue
		}
		if f.ProviderID != "" && b.ProviderID != f.ProviderID {
			continue
		}
		if !match.Matches(b) {
			continue
		}
		all = append(all, *cloneBooking(b))
	}
	sortByStart(all)

	total := int64(len(all))
	start := f.Skip
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return all[start:end], total, nil
}

func (r *BookingRepo) UpdateIf(_ context.Context, id string, match bookingRepo.Match, patch bookingRepo.Patch) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || !match.Matches(b) {
		return nil, bookingRepo.ErrConditionFailed
	}
	patch.ApplyTo(b)
	return cloneBooking(b), nil
}

func (r *BookingRepo) FindStalePending(_ context.Context, createdBefore time.Time, limit int) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.StatusPendingPayment && b.CreatedAt.Before(createdBefore) {
			out = append(out, *cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BookingRepo) CountByStatus(_ context.Context, providerID string) (map[models.BookingStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[models.BookingStatus]int64)
	for _, b := range r.bookings {
		if b.ProviderID == providerID {
			counts[b.Status]++
		}
	}
	return counts, nil
}

func (r *BookingRepo) DistinctConsumers(_ context.Context, providerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	for _, b := range r.bookings {
		if b.ProviderID != providerID {
			continue
		}
		if _, ok := seen[b.ConsumerID]; ok {
			continue
		}
		seen[b.ConsumerID] = struct{}{}
		out = append(out, b.ConsumerID)
	}
	sort.Strings(out)
	return out, nil
}

func sortByStart(list []models.Booking) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].ScheduledStart.Equal(list[j].ScheduledStart) {
			return list[i].ID < list[j].ID
		}
		return list[i].ScheduledStart.Before(list[j].ScheduledStart)
	})
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	if b.Location != nil {
		loc := *b.Location
		loc.Coordinates = append([]float64(nil), b.Location.Coordinates...)
		c.Location = &loc
	}
	c.OTPExpiresAt = cloneTime(b.OTPExpiresAt)
	c.StartedAt = cloneTime(b.StartedAt)
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.Attendance.ConsumerConfirmedAt = cloneTime(b.Attendance.ConsumerConfirmedAt)
	c.Attendance.ProviderConfirmedAt = cloneTime(b.Attendance.ProviderConfirmedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
