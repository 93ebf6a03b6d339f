package couponRepo

import (
	"context"
	"errors"
	"time"

	"sessionbook/models"
)

var (
	ErrNotFound = errors.New("coupon not found")
	// ErrNotRedeemable covers inactive, out-of-window and exhausted coupons.
	ErrNotRedeemable = errors.New("coupon not redeemable")
	ErrDuplicateCode = errors.New("coupon code already exists")
)

// CouponRepository persists coupons. RedeemOne is the only way UsedCount grows.
type CouponRepository interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	// RedeemOne checks validity and increments UsedCount in one atomic step,
	// returning the coupon as it was before the increment.
	RedeemOne(ctx context.Context, code string, now time.Time) (*models.Coupon, error)
	// Restore gives back a use that was redeemed for a booking that never got created.
	Restore(ctx context.Context, code string, now time.Time) error
}
