// README: Pricing store backed by PostgreSQL (vehicle type rate plans and addons).
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fleetrent/internal/infra"
	"fleetrent/internal/types"
)

type Store struct {
	db infra.DBTX
}

func NewStore(db infra.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) RatePlan(ctx context.Context, vehicleTypeID types.ID) (RatePlan, error) {
	var p RatePlan
	err := s.db.QueryRow(ctx, `
		SELECT id, name, daily_rate, weekly_rate, monthly_rate
		FROM vehicle_types
		WHERE id = $1`, string(vehicleTypeID),
	).Scan(&p.VehicleTypeID, &p.Name, &p.Daily, &p.Weekly, &p.Monthly)
	if errors.Is(err, pgx.ErrNoRows) {
		return RatePlan{}, fmt.Errorf("vehicle type %s: %w", vehicleTypeID, types.ErrNotFound)
	}
	return p, err
}

func (s *Store) Addons(ctx context.Context, ids []types.ID) ([]Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price_per_day
		FROM addons
		WHERE id = ANY($1)
		ORDER BY id`, raw,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Addon
	for rows.Next() {
		var a Addon
		if err := rows.Scan(&a.ID, &a.Name, &a.PricePerDay); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, fmt.Errorf("addon: %w", types.ErrNotFound)
	}
	return out, nil
}

func (s *Store) ListAddons(ctx context.Context) ([]Addon, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, price_per_day FROM addons ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Addon
	for rows.Next() {
		var a Addon
		if err := rows.Scan(&a.ID, &a.Name, &a.PricePerDay); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
