// README: Invoice store; payment status changes are compare-and-swap on payment_status.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetrent/internal/infra"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/modules/handover"
	"fleetrent/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const invoiceColumns = `
	id, booking_id, pickup_at, actual_return_at, months, weeks, days, total_days,
	rental_amount, addon_amount, discount_amount, offer_id, total_amount, currency,
	payment_status, provider_order_id, transaction_id, version, created_at, paid_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*Invoice, error) {
	return GetTx(ctx, s.db, id)
}

func GetTx(ctx context.Context, q infra.DBTX, id types.ID) (*Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", id, types.ErrNotFound)
	}
	return inv, err
}

func (s *Store) GetByBooking(ctx context.Context, bookingID types.ID) (*Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE booking_id = $1`, string(bookingID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice for booking %s: %w", bookingID, types.ErrNotFound)
	}
	return inv, err
}

func (s *Store) PickupHandover(ctx context.Context, bookingID types.ID) (*handover.Handover, error) {
	return handover.GetTx(ctx, s.db, bookingID, handover.DirectionPickup)
}

func (s *Store) ReturnHandover(ctx context.Context, bookingID types.ID) (*handover.Handover, error) {
	return handover.GetTx(ctx, s.db, bookingID, handover.DirectionReturn)
}

func (s *Store) Save(ctx context.Context, c SaveCommit) error {
	return infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if c.Replace == nil {
			if err := insertInvoice(ctx, tx, &c.Invoice); err != nil {
				return err
			}
		} else {
			ok, err := replaceInvoice(ctx, tx, &c.Invoice, *c.Replace)
			if err != nil {
				return err
			}
			if !ok {
				return replaceLost(ctx, tx, c.Invoice.ID)
			}
		}
		if c.Transition != nil {
			ok, err := booking.UpdateStatusTx(ctx, tx, *c.Transition)
			if err != nil {
				return err
			}
			if !ok {
				return types.ErrConflict
			}
		}
		return nil
	})
}

func insertInvoice(ctx context.Context, q infra.DBTX, inv *Invoice) error {
	_, err := q.Exec(ctx, `
		INSERT INTO invoices (
			id, booking_id, pickup_at, actual_return_at, months, weeks, days, total_days,
			rental_amount, addon_amount, discount_amount, offer_id, total_amount, currency,
			payment_status, version, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17
		)`,
		string(inv.ID), string(inv.BookingID), inv.PickupAt, inv.ActualReturnAt,
		inv.Months, inv.Weeks, inv.Days, inv.TotalDays,
		inv.RentalAmount, inv.AddonAmount, inv.DiscountAmount, idPtr(inv.OfferID), inv.TotalAmount, inv.Currency,
		string(inv.PaymentStatus), inv.Version, inv.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return types.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func replaceInvoice(ctx context.Context, q infra.DBTX, inv *Invoice, version int) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE invoices
		SET pickup_at = $3, actual_return_at = $4,
		    months = $5, weeks = $6, days = $7, total_days = $8,
		    rental_amount = $9, addon_amount = $10, discount_amount = $11, offer_id = $12,
		    total_amount = $13, currency = $14,
		    payment_status = 'pending', provider_order_id = NULL, version = version + 1
		WHERE id = $1 AND version = $2 AND payment_status IN ('pending','failed')`,
		string(inv.ID), version, inv.PickupAt, inv.ActualReturnAt,
		inv.Months, inv.Weeks, inv.Days, inv.TotalDays,
		inv.RentalAmount, inv.AddonAmount, inv.DiscountAmount, idPtr(inv.OfferID),
		inv.TotalAmount, inv.Currency,
	)
	if err != nil {
		return false, fmt.Errorf("replace invoice: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func replaceLost(ctx context.Context, q infra.DBTX, id types.ID) error {
	cur, err := GetTx(ctx, q, id)
	if err != nil {
		return err
	}
	if cur.Paid() {
		return types.ErrAlreadyPaid
	}
	return types.ErrConflict
}

// SetProviderOrder records the gateway order for an unpaid invoice.
func (s *Store) SetProviderOrder(ctx context.Context, id types.ID, orderID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE invoices SET provider_order_id = $2
		WHERE id = $1 AND payment_status IN ('pending','failed')`,
		string(id), orderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPaidTx is the single success transition of an invoice. It reports false
// when the invoice is no longer pending or failed.
func MarkPaidTx(ctx context.Context, q infra.DBTX, id types.ID, transactionID string, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE invoices
		SET payment_status = 'success', transaction_id = $2, paid_at = $3
		WHERE id = $1 AND payment_status IN ('pending','failed')`,
		string(id), transactionID, at)
	if err != nil {
		return false, fmt.Errorf("mark invoice paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkFailed(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE invoices SET payment_status = 'failed'
		WHERE id = $1 AND payment_status = 'pending'`, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var offerID *string
	err := row.Scan(
		&inv.ID, &inv.BookingID, &inv.PickupAt, &inv.ActualReturnAt,
		&inv.Months, &inv.Weeks, &inv.Days, &inv.TotalDays,
		&inv.RentalAmount, &inv.AddonAmount, &inv.DiscountAmount, &offerID, &inv.TotalAmount, &inv.Currency,
		&inv.PaymentStatus, &inv.ProviderOrderID, &inv.TransactionID, &inv.Version, &inv.CreatedAt, &inv.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	if offerID != nil {
		inv.OfferID = types.IDPtr(types.ID(*offerID))
	}
	return &inv, nil
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
