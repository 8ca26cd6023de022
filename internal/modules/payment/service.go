// README: Payment verifier finalises an invoice exactly once from a signed provider confirmation.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fleetrent/internal/events"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/invoice"
	"fleetrent/internal/paygate"
	"fleetrent/internal/types"
)

// freeTransactionPrefix marks settlements of zero-total invoices that never reached the provider.
const freeTransactionPrefix = "free_"

type Repository interface {
	Invoice(ctx context.Context, id types.ID) (*invoice.Invoice, error)
	SetProviderOrder(ctx context.Context, id types.ID, orderID string) (bool, error)
	MarkFailed(ctx context.Context, id types.ID) (bool, error)
	Settle(ctx context.Context, st Settlement) error
}

type Bookings interface {
	Get(ctx context.Context, actor types.Actor, id types.ID) (*booking.Booking, error)
}

type Service struct {
	repo     Repository
	bookings Bookings
	gateway  paygate.Gateway
	events   events.Publisher
	now      func() time.Time
}

func NewService(repo Repository, bookings Bookings, gateway paygate.Gateway, pub events.Publisher) *Service {
	return &Service{
		repo:     repo,
		bookings: bookings,
		gateway:  gateway,
		events:   pub,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// load returns the invoice and its booking when the actor may act on them.
func (s *Service) load(ctx context.Context, actor types.Actor, id types.ID) (*invoice.Invoice, *booking.Booking, error) {
	if id == "" {
		return nil, nil, types.Invalid("invoice_id", "required")
	}
	inv, err := s.repo.Invoice(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.bookings.Get(ctx, actor, inv.BookingID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil, types.ErrNotFound
		}
		return nil, nil, err
	}
	return inv, b, nil
}

// CreateOrder opens a provider order for the invoice total. A zero total has
// nothing to collect, so the invoice is settled on the spot without the provider.
func (s *Service) CreateOrder(ctx context.Context, actor types.Actor, invoiceID types.ID) (*Order, error) {
	inv, b, err := s.load(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Paid() {
		return nil, types.ErrAlreadyPaid
	}
	total := inv.Total()
	if total.Amount.IsNegative() {
		return nil, types.Invalid("amount", "must not be negative")
	}
	if total.Amount.IsZero() {
		txnID := freeTransactionPrefix + string(inv.ID)
		if err := s.settle(ctx, actor, inv, b, txnID); err != nil {
			return nil, err
		}
		return &Order{
			InvoiceID:     inv.ID,
			Amount:        total.Amount,
			Currency:      total.Currency,
			Settled:       true,
			TransactionID: txnID,
		}, nil
	}

	po, err := s.gateway.CreateOrder(ctx, paygate.OrderRequest{
		AmountMinor: total.MinorUnits(),
		Currency:    total.Currency,
		Receipt:     string(inv.ID),
	})
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.SetProviderOrder(ctx, inv.ID, po.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrAlreadyPaid
	}
	slog.InfoContext(ctx, "payment order created", "invoice_id", inv.ID, "order_id", po.ID, "amount_minor", total.MinorUnits())
	return &Order{
		InvoiceID:   inv.ID,
		OrderID:     po.ID,
		Amount:      total.Amount,
		AmountMinor: total.MinorUnits(),
		Currency:    total.Currency,
		KeyID:       s.gateway.KeyID(),
	}, nil
}

// Verify checks the provider signature and settles the invoice. Only one call
// per invoice succeeds; replays get ErrAlreadyPaid and change nothing.
func (s *Service) Verify(ctx context.Context, cmd VerifyCommand) (*Receipt, error) {
	if err := types.Validate(cmd); err != nil {
		return nil, err
	}
	inv, b, err := s.load(ctx, cmd.Actor, cmd.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Paid() {
		return nil, types.ErrAlreadyPaid
	}
	if inv.ProviderOrderID != nil && *inv.ProviderOrderID != cmd.ProviderOrderID {
		slog.WarnContext(ctx, "payment order mismatch", "invoice_id", inv.ID)
		return nil, types.ErrPaymentVerification
	}
	if !s.gateway.VerifySignature(cmd.ProviderOrderID, cmd.ProviderPaymentID, cmd.ProviderSignature) {
		slog.WarnContext(ctx, "payment signature mismatch", "invoice_id", inv.ID)
		return nil, types.ErrPaymentVerification
	}
	if err := s.settle(ctx, cmd.Actor, inv, b, cmd.ProviderPaymentID); err != nil {
		return nil, err
	}

	return &Receipt{InvoiceID: inv.ID, TransactionID: cmd.ProviderPaymentID}, nil
}

// settle marks the invoice paid and completes the returned booking in one commit.
func (s *Service) settle(ctx context.Context, actor types.Actor, inv *invoice.Invoice, b *booking.Booking, txnID string) error {
	if b.Status != booking.StatusReturned {
		return &types.InvalidTransitionError{From: string(b.Status), To: string(booking.StatusCompleted)}
	}
	now := s.now()
	err := s.repo.Settle(ctx, Settlement{
		InvoiceID:     inv.ID,
		TransactionID: txnID,
		At:            now,
		Transition: booking.Transition{
			BookingID: b.ID,
			From:      booking.StatusReturned,
			To:        booking.StatusCompleted,
			Version:   b.StatusVersion,
			Actor:     actor,
			At:        now,
		},
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "booking transition",
		"booking_id", b.ID, "from", booking.StatusReturned, "to", booking.StatusCompleted, "actor", actor.Role)
	events.Emit(ctx, s.events, events.PaymentSucceeded, &Receipt{InvoiceID: inv.ID, TransactionID: txnID})
	return nil
}

// ReportFailure records a provider-side failure. The invoice stays payable.
func (s *Service) ReportFailure(ctx context.Context, actor types.Actor, invoiceID types.ID, reason string) error {
	inv, _, err := s.load(ctx, actor, invoiceID)
	if err != nil {
		return err
	}
	if inv.Paid() {
		return types.ErrAlreadyPaid
	}
	ok, err := s.repo.MarkFailed(ctx, inv.ID)
	if err != nil {
		return err
	}
	if !ok {
		cur, err := s.repo.Invoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if cur.Paid() {
			return types.ErrAlreadyPaid
		}
		return nil
	}
	slog.InfoContext(ctx, "payment failed", "invoice_id", inv.ID, "reason", reason)
	events.Emit(ctx, s.events, events.PaymentFailed, map[string]string{"invoice_id": string(inv.ID), "reason": reason})
	return nil
}
