// README: Booking store backed by PostgreSQL; status changes are compare-and-swap on status_version.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetrent/internal/infra"
	"fleetrent/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const bookingColumns = `
	id, customer_id, vehicle_type_id, assigned_vehicle_id, pickup_hub_id, return_hub_id,
	pickup_at, return_at, addon_ids, status, status_version, estimated_amount, cancel_reason,
	created_at, confirmed_at, activated_at, returned_at, completed_at, cancelled_at`

func (s *Store) Create(ctx context.Context, b *Booking, ev *Event) error {
	return infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO bookings (
				id, customer_id, vehicle_type_id, pickup_hub_id, return_hub_id,
				pickup_at, return_at, addon_ids, status, status_version,
				estimated_amount, created_at
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9, $10,
				$11, $12
			)`,
			string(b.ID),
			string(b.CustomerID),
			string(b.VehicleTypeID),
			string(b.PickupHubID),
			string(b.ReturnHubID),
			b.PickupAt,
			b.ReturnAt,
			idStrings(b.AddonIDs),
			string(b.Status),
			b.StatusVersion,
			b.EstimatedAmount,
			b.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return AppendEvent(ctx, tx, ev)
	})
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return GetTx(ctx, s.db, id)
}

// GetTx loads a booking through q, which may be a transaction.
func GetTx(ctx context.Context, q infra.DBTX, id types.ID) (*Booking, error) {
	row := q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, types.ErrNotFound)
	}
	return b, err
}

func (s *Store) List(ctx context.Context, f Filter) ([]Booking, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", string(f.CustomerID))
	}
	if f.HubID != "" {
		add("pickup_hub_id = $%d", string(f.HubID))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	sql := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(` ORDER BY pickup_at DESC, id LIMIT %d`, limit)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, t Transition) (bool, error) {
	var ok bool
	err := infra.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		ok, err = UpdateStatusTx(ctx, tx, t)
		return err
	})
	return ok, err
}

// UpdateStatusTx applies t as a compare-and-swap and appends the audit event.
// It reports false, without error, when the row no longer matches t.From and
// t.Version. Cancellation additionally requires that no pickup handover exists.
func UpdateStatusTx(ctx context.Context, q infra.DBTX, t Transition) (bool, error) {
	var vehicleID *string
	if t.VehicleID != nil {
		v := string(*t.VehicleID)
		vehicleID = &v
	}
	tag, err := q.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    assigned_vehicle_id = COALESCE($2, assigned_vehicle_id),
		    cancel_reason = CASE WHEN $1 = 'cancelled' THEN NULLIF($3, '') ELSE cancel_reason END,
		    confirmed_at = CASE WHEN $1 = 'confirmed' THEN $4 ELSE confirmed_at END,
		    activated_at = CASE WHEN $1 = 'active' THEN $4 ELSE activated_at END,
		    returned_at = CASE WHEN $1 = 'returned' THEN $4 ELSE returned_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN $4 ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN $4 ELSE cancelled_at END
		WHERE id = $5 AND status = $6 AND status_version = $7
		  AND ($1 <> 'cancelled' OR NOT EXISTS (
		      SELECT 1 FROM handovers h WHERE h.booking_id = bookings.id AND h.direction = 'pickup'
		  ))`,
		string(t.To),
		vehicleID,
		t.Reason,
		t.At,
		string(t.BookingID),
		string(t.From),
		t.Version,
	)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	if err := AppendEvent(ctx, q, t.Event()); err != nil {
		return false, err
	}
	return true, nil
}

func AppendEvent(ctx context.Context, q infra.DBTX, e *Event) error {
	_, err := q.Exec(ctx, `
		INSERT INTO booking_state_events (
			booking_id, from_status, to_status, actor_role, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		string(e.ActorRole),
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append booking event: %w", err)
	}
	return nil
}

func (s *Store) Events(ctx context.Context, bookingID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_role, actor_id, created_at
		FROM booking_state_events
		WHERE booking_id = $1
		ORDER BY id`, string(bookingID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var actorID *string
		if err := rows.Scan(&e.ID, &e.BookingID, &e.FromStatus, &e.ToStatus, &e.ActorRole, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actorID != nil {
			e.ActorID = types.IDPtr(types.ID(*actorID))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountOverlapping counts bookings of a vehicle type at a pickup hub that still
// hold capacity during [from, to]. Bounds are inclusive.
func (s *Store) CountOverlapping(ctx context.Context, hubID, vehicleTypeID types.ID, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE pickup_hub_id = $1
		  AND vehicle_type_id = $2
		  AND status IN ('reserved','confirmed','active')
		  AND pickup_at <= $4
		  AND return_at >= $3`,
		string(hubID), string(vehicleTypeID), from, to,
	).Scan(&n)
	return n, err
}

func (s *Store) HasPickupHandover(ctx context.Context, bookingID types.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM handovers WHERE booking_id = $1 AND direction = 'pickup'
		)`, string(bookingID),
	).Scan(&exists)
	return exists, err
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var assigned, cancelReason *string
	var addonIDs []string
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.VehicleTypeID, &assigned, &b.PickupHubID, &b.ReturnHubID,
		&b.PickupAt, &b.ReturnAt, &addonIDs, &b.Status, &b.StatusVersion, &b.EstimatedAmount, &cancelReason,
		&b.CreatedAt, &b.ConfirmedAt, &b.ActivatedAt, &b.ReturnedAt, &b.CompletedAt, &b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if assigned != nil {
		b.AssignedVehicleID = types.IDPtr(types.ID(*assigned))
	}
	b.CancelReason = cancelReason
	for _, id := range addonIDs {
		b.AddonIDs = append(b.AddonIDs, types.ID(id))
	}
	return &b, nil
}

func idStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
