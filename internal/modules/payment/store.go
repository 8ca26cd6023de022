// README: Payment store settles an invoice and its booking atomically.
package payment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetrent/internal/infra"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/invoice"
	"fleetrent/internal/types"
)

type Store struct {
	db       *pgxpool.Pool
	invoices *invoice.Store
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, invoices: invoice.NewStore(db)}
}

func (s *Store) Invoice(ctx context.Context, id types.ID) (*invoice.Invoice, error) {
	return s.invoices.Get(ctx, id)
}

func (s *Store) SetProviderOrder(ctx context.Context, id types.ID, orderID string) (bool, error) {
	return s.invoices.SetProviderOrder(ctx, id, orderID)
}

func (s *Store) MarkFailed(ctx context.Context, id types.ID) (bool, error) {
	return s.invoices.MarkFailed(ctx, id)
}

// Settle returns ErrAlreadyPaid when another verification won the invoice.
func (s *Store) Settle(ctx context.Context, st Settlement) error {
	return infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		ok, err := invoice.MarkPaidTx(ctx, tx, st.InvoiceID, st.TransactionID, st.At)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrAlreadyPaid
		}
		ok, err = booking.UpdateStatusTx(ctx, tx, st.Transition)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrConflict
		}
		return nil
	})
}
