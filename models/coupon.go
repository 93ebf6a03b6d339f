package models

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a shared, usage-capped discount. MaxUses == 0 means unlimited.
type Coupon struct {
	Code          string       `bson:"code" json:"code"`
	DiscountType  DiscountType `bson:"discount_type" json:"discount_type"`
	DiscountValue float64      `bson:"discount_value" json:"discount_value"`
	MaxDiscount   float64      `bson:"max_discount,omitempty" json:"max_discount,omitempty"`
	ValidFrom     time.Time    `bson:"valid_from" json:"valid_from"`
	ValidUntil    time.Time    `bson:"valid_until" json:"valid_until"`
	MaxUses       int          `bson:"max_uses" json:"max_uses"`
	UsedCount     int          `bson:"used_count" json:"used_count"`
	IsActive      bool         `bson:"is_active" json:"is_active"`
	CreatedAt     time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `bson:"updated_at" json:"updated_at"`
}

// Redeemable reports whether the coupon would match the redemption filter at now.
func (c *Coupon) Redeemable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.ValidFrom) || !now.Before(c.ValidUntil) {
		return false
	}
	return c.MaxUses == 0 || c.UsedCount < c.MaxUses
}

// DiscountFor computes the discount this coupon grants on subtotal, never exceeding it.
func (c *Coupon) DiscountFor(subtotal float64) float64 {
	var d float64
	switch c.DiscountType {
	case DiscountPercentage:
		d = subtotal * c.DiscountValue / 100
	case DiscountFixed:
		d = c.DiscountValue
	}
	if c.MaxDiscount > 0 && d > c.MaxDiscount {
		d = c.MaxDiscount
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}
