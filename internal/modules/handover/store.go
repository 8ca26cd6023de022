// README: Handover store; pickup and return commit in one transaction with the vehicle and booking rows.
package handover

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetrent/internal/infra"
	"fleetrent/internal/modules/booking"
	"fleetrent/internal/types"
)

// errBookingMoved means the booking row changed between read and commit.
var errBookingMoved = errors.New("booking changed during handover")

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CommitPickup(ctx context.Context, c PickupCommit) error {
	return infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE vehicles
			SET available = FALSE, version = version + 1
			WHERE id = $1 AND available AND version = $2`,
			string(c.Handover.VehicleID), c.VehicleVersion)
		if err != nil {
			return fmt.Errorf("claim vehicle: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return types.ErrVehicleUnavailable
		}

		var busy bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE assigned_vehicle_id = $1 AND status = 'active' AND id <> $2
			)`, string(c.Handover.VehicleID), string(c.Handover.BookingID)).Scan(&busy)
		if err != nil {
			return fmt.Errorf("vehicle overlap: %w", err)
		}
		if busy {
			return types.ErrVehicleUnavailable
		}

		ok, err := booking.UpdateStatusTx(ctx, tx, c.Transition)
		if err != nil {
			return err
		}
		if !ok {
			return errBookingMoved
		}
		return insertHandover(ctx, tx, &c.Handover)
	})
}

func (s *Store) CommitReturn(ctx context.Context, c ReturnCommit) error {
	return infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var status booking.Status
		err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`,
			string(c.Handover.BookingID)).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("booking %s: %w", c.Handover.BookingID, types.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if status != booking.StatusActive {
			return &types.InvalidTransitionError{From: string(status), To: string(booking.StatusReturned)}
		}
		if err := insertHandover(ctx, tx, &c.Handover); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE vehicles
			SET available = TRUE, hub_id = $2, version = version + 1
			WHERE id = $1`,
			string(c.Handover.VehicleID), string(c.Handover.HubID))
		if err != nil {
			return fmt.Errorf("release vehicle: %w", err)
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context, bookingID types.ID) ([]Handover, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, vehicle_id, processed_by, fuel_status, hub_id, direction, created_at
		FROM handovers
		WHERE booking_id = $1
		ORDER BY created_at`, string(bookingID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Handover
	for rows.Next() {
		h, err := scanHandover(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// GetTx loads the handover of one direction through q, which may be a transaction.
func GetTx(ctx context.Context, q infra.DBTX, bookingID types.ID, dir Direction) (*Handover, error) {
	row := q.QueryRow(ctx, `
		SELECT id, booking_id, vehicle_id, processed_by, fuel_status, hub_id, direction, created_at
		FROM handovers
		WHERE booking_id = $1 AND direction = $2`, string(bookingID), string(dir))
	h, err := scanHandover(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s handover for %s: %w", dir, bookingID, types.ErrNotFound)
	}
	return h, err
}

func insertHandover(ctx context.Context, q infra.DBTX, h *Handover) error {
	_, err := q.Exec(ctx, `
		INSERT INTO handovers (id, booking_id, vehicle_id, processed_by, fuel_status, hub_id, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(h.ID),
		string(h.BookingID),
		string(h.VehicleID),
		string(h.ProcessedBy),
		string(h.FuelStatus),
		string(h.HubID),
		string(h.Direction),
		h.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return types.ErrAlreadyHandedOver
	}
	if err != nil {
		return fmt.Errorf("insert handover: %w", err)
	}
	return nil
}

func scanHandover(row pgx.Row) (*Handover, error) {
	var h Handover
	err := row.Scan(&h.ID, &h.BookingID, &h.VehicleID, &h.ProcessedBy, &h.FuelStatus, &h.HubID, &h.Direction, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
