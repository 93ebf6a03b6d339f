package memoryRepo

import (
	"context"
	"sync"

	bookingRepo "sessionbook/database/repository/booking"
)

type SlotClaimRepo struct {
	mu     sync.Mutex
	claims map[string]bookingRepo.SlotClaim
}

func NewSlotClaimRepo() *SlotClaimRepo {
	return &SlotClaimRepo{claims: make(map[string]bookingRepo.SlotClaim)}
}

func (r *SlotClaimRepo) Claim(_ context.Context, claims []bookingRepo.SlotClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range claims {
		if _, taken := r.claims[c.ID]; taken {
			return &bookingRepo.ClaimConflictError{ClaimID: c.ID}
		}
	}
	for _, c := range claims {
		r.claims[c.ID] = c
	}
	return nil
}

func (r *SlotClaimRepo) Holder(_ context.Context, claimID string) (*bookingRepo.SlotClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.claims[claimID]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	return &c, nil
}

func (r *SlotClaimRepo) ReleaseByBooking(_ context.Context, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.claims {
		if c.BookingID == bookingID {
			delete(r.claims, id)
		}
	}
	return nil
}

func (r *SlotClaimRepo) ReleaseIfHeld(_ context.Context, claimID, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.claims[claimID]; ok && c.BookingID == bookingID {
		delete(r.claims, claimID)
	}
	return nil
}

// Len is the number of live claims.
func (r *SlotClaimRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}
