package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SandboxGateway is an in-process gateway for development and tests. Orders and
// refunds get local ids; signatures are checked with the shared HMAC secret.
type SandboxGateway struct {
	Secret string

	// FailOrders and FailRefunds force the corresponding call to error.
	FailOrders  bool
	FailRefunds bool

	mu      sync.Mutex
	orders  int
	refunds []string
}

func NewSandboxGateway(secret string) *SandboxGateway {
	return &SandboxGateway{Secret: secret}
}

func (g *SandboxGateway) CreateOrder(_ context.Context, amount float64, currency string, _ map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailOrders {
		return "", ErrGatewayUnavailable
	}
	g.orders++
	return fmt.Sprintf("order_%s", uuid.NewString()), nil
}

func (g *SandboxGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return VerifySignature(g.Secret, orderRef, paymentRef, signature)
}

func (g *SandboxGateway) Refund(_ context.Context, paymentRef string, _ float64, _ map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailRefunds {
		return "", fmt.Errorf("refund rejected for %s", paymentRef)
	}
	id := "rfnd_" + uuid.NewString()
	g.refunds = append(g.refunds, paymentRef)
	return id, nil
}

// Orders is the number of orders created so far.
func (g *SandboxGateway) Orders() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders
}

// Refunds lists the payment refs refunded so far.
func (g *SandboxGateway) Refunds() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.refunds...)
}
