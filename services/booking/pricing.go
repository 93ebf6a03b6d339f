package booking

import (
	"fmt"
	"math"
	"time"
)

// Quote is the price of a session before any coupon.
type Quote struct {
	Subtotal float64
	Fees     float64
}

// Pricer is the pricing collaborator. Its formula is not part of the lifecycle.
type Pricer interface {
	Quote(providerID string, start time.Time, duration time.Duration) (Quote, error)
}

// FlatRatePricer charges HourlyRate pro rata plus a platform fee on the subtotal.
type FlatRatePricer struct {
	HourlyRate float64
	FeeRate    float64
}

func (p FlatRatePricer) Quote(_ string, _ time.Time, duration time.Duration) (Quote, error) {
	if duration <= 0 {
		return Quote{}, fmt.Errorf("duration must be positive")
	}
	subtotal := roundMoney(p.HourlyRate * duration.Hours())
	return Quote{
		Subtotal: subtotal,
		Fees:     roundMoney(subtotal * p.FeeRate),
	}, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// totalAfterDiscount never goes below zero.
func totalAfterDiscount(q Quote, discount float64) float64 {
	total := roundMoney(q.Subtotal + q.Fees - discount)
	if total < 0 {
		return 0
	}
	return total
}

func formatAmount(v float64) string {
	if v < 0 {
		v = 0
	}
	return fmt.Sprintf("%.2f", roundMoney(v))
}
