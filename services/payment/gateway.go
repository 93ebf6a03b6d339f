package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// PlaceholderOrderPrefix tags order refs that never reached a real gateway.
const PlaceholderOrderPrefix = "placeholder_order_"

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Gateway is the payment provider boundary. Calls are synchronous and safe to retry.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string, metadata map[string]string) (string, error)
	VerifySignature(orderRef, paymentRef, signature string) bool
	Refund(ctx context.Context, paymentRef string, amount float64, notes map[string]string) (string, error)
}

// Sign computes the hex HMAC-SHA256 of "orderRef|paymentRef".
func Sign(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time. An empty secret never verifies.
func VerifySignature(secret, orderRef, paymentRef, signature string) bool {
	if secret == "" || orderRef == "" || paymentRef == "" || signature == "" {
		return false
	}
	expected := Sign(secret, orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// IsPlaceholder reports whether orderRef was issued by the fallback path.
func IsPlaceholder(orderRef string) bool {
	return strings.HasPrefix(orderRef, PlaceholderOrderPrefix)
}

// toMinorUnits converts a decimal amount to the smallest currency unit.
func toMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
