// README: Domain event routing keys and the publisher interface used by the rental modules.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	BookingReserved  = "booking.reserved"
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	HandoverPickup   = "handover.pickup"
	HandoverReturn   = "handover.return"
	InvoiceGenerated = "invoice.generated"
	PaymentSucceeded = "payment.succeeded"
	PaymentFailed    = "payment.failed"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Envelope wraps every payload published on the exchange.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Emit publishes after a commit. Failures are logged and never returned: the
// state change is already durable.
func Emit(ctx context.Context, p Publisher, routingKey string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, payload); err != nil {
		slog.WarnContext(ctx, "event publish failed", "routing_key", routingKey, "err", err)
	}
}

// Recorder keeps published events in memory; handy in tests and dry runs.
type Recorder struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Envelope{Type: routingKey, OccurredAt: time.Now().UTC(), Data: payload})
	return nil
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
