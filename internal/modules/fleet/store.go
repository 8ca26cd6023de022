// README: Fleet store backed by PostgreSQL.
package fleet

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

func (s *Store) GetVehicle(ctx context.Context, id types.ID) (*Vehicle, error) {
	var v Vehicle
	err := s.db.QueryRow(ctx, `
		SELECT id, vehicle_type_id, registration, hub_id, available, version
		FROM vehicles
		WHERE id = $1`, string(id),
	).Scan(&v.ID, &v.VehicleTypeID, &v.Registration, &v.HubID, &v.Available, &v.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) GetHub(ctx context.Context, id types.ID) (*Hub, error) {
	var h Hub
	err := s.db.QueryRow(ctx, `SELECT id, name, city FROM hubs WHERE id = $1`, string(id)).
		Scan(&h.ID, &h.Name, &h.City)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("hub %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListAvailable returns available vehicles at a hub; an empty vehicleTypeID matches every type.
func (s *Store) ListAvailable(ctx context.Context, hubID, vehicleTypeID types.ID) ([]Vehicle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, vehicle_type_id, registration, hub_id, available, version
		FROM vehicles
		WHERE hub_id = $1 AND available AND ($2 = '' OR vehicle_type_id = $2)
		ORDER BY registration`, string(hubID), string(vehicleTypeID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.VehicleTypeID, &v.Registration, &v.HubID, &v.Available, &v.Version); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountFleet counts every vehicle of a type stationed at a hub, available or not.
func (s *Store) CountFleet(ctx context.Context, hubID, vehicleTypeID types.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM vehicles WHERE hub_id = $1 AND vehicle_type_id = $2`,
		string(hubID), string(vehicleTypeID),
	).Scan(&n)
	return n, err
}

func (s *Store) TransferAllowed(ctx context.Context, bookingHubID, vehicleHubID types.ID) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM hub_transfers WHERE from_hub_id = $1 AND to_hub_id = $2
		)`, string(bookingHubID), string(vehicleHubID),
	).Scan(&ok)
	return ok, err
}
