package memoryRepo

import (
	"context"
	"sync"
	"time"

	couponRepo "sessionbook/database/repository/coupon"
	"sessionbook/models"
)

type CouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon
}

func NewCouponRepo() *CouponRepo {
	return &CouponRepo{coupons: make(map[string]*models.Coupon)}
}

func (r *CouponRepo) Create(_ context.Context, c *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.coupons[c.Code]; exists {
		return couponRepo.ErrDuplicateCode
	}
	cp := *c
	r.coupons[c.Code] = &cp
	return nil
}

func (r *CouponRepo) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[code]
	if !ok {
		return nil, couponRepo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CouponRepo) RedeemOne(_ context.Context, code string, now time.Time) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[code]
	if !ok {
		return nil, couponRepo.ErrNotFound
	}
	if !c.Redeemable(now) {
		return nil, couponRepo.ErrNotRedeemable
	}
	before := *c
	c.UsedCount++
	c.UpdatedAt = now
	return &before, nil
}

func (r *CouponRepo) Restore(_ context.Context, code string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.coupons[code]; ok && c.UsedCount > 0 {
		c.UsedCount--
		c.UpdatedAt = now
	}
	return nil
}
