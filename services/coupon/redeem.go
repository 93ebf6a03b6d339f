package coupon

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	couponRepo "sessionbook/database/repository/coupon"

	"go.uber.org/zap"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// Redemption is the outcome of a redeem attempt. Applied is false whenever
// the coupon could not be used; the booking then proceeds at full price.
type Redemption struct {
	Code     string
	Discount float64
	Applied  bool
	Reason   string
}

type Service struct {
	repo   couponRepo.CouponRepository
	logger *zap.Logger
}

func NewService(repo couponRepo.CouponRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Normalize upper-cases and trims a user supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has an acceptable shape.
func ValidCode(code string) bool {
	return codePattern.MatchString(Normalize(code))
}

// Redeem reserves one use of code against subtotal. It never returns an error
// for an unusable coupon, only a Redemption with Applied=false.
func (s *Service) Redeem(ctx context.Context, code string, subtotal float64, now time.Time) Redemption {
	code = Normalize(code)
	if code == "" {
		return Redemption{}
	}
	if !codePattern.MatchString(code) {
		return Redemption{Code: code, Reason: "malformed code"}
	}

	before, err := s.repo.RedeemOne(ctx, code, now)
	if err != nil {
		reason := "coupon not redeemable"
		switch {
		case errors.Is(err, couponRepo.ErrNotFound):
			reason = "coupon not found"
		case errors.Is(err, couponRepo.ErrNotRedeemable):
		default:
			s.logger.Error("coupon redemption failed", zap.String("code", code), zap.Error(err))
		}
		return Redemption{Code: code, Reason: reason}
	}

	return Redemption{
		Code:     code,
		Discount: before.DiscountFor(subtotal),
		Applied:  true,
	}
}

// Release returns a use taken by Redeem when the booking it was for was never stored.
func (s *Service) Release(ctx context.Context, code string, now time.Time) {
	if code == "" {
		return
	}
	if err := s.repo.Restore(ctx, code, now); err != nil {
		s.logger.Warn("failed to restore coupon use", zap.String("code", code), zap.Error(err))
	}
}
