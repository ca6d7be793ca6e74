package notify

import (
	"context"

	"github.com/noah-isme/toko-kredit/internal/resilience"
)

// Guarded wraps a Notifier with a circuit breaker so a failing mail transport
// is not hammered once per purchase during a job run.
type Guarded struct {
	Next    Notifier
	Breaker *resilience.Breaker
}

// Notify implements Notifier. It returns resilience.ErrOpenCircuit while the
// breaker is open.
func (g Guarded) Notify(ctx context.Context, event Event) error {
	if g.Breaker == nil {
		return g.Next.Notify(ctx, event)
	}
	if !g.Breaker.Allow(ctx) {
		return resilience.ErrOpenCircuit
	}
	err := g.Next.Notify(ctx, event)
	g.Breaker.Report(ctx, err == nil)
	return err
}
