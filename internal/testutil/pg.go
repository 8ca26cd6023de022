// README: Postgres fixtures shared by store-backed tests; skipped unless FLEETRENT_TEST_DSN is set.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetrent/internal/infra"
	"fleetrent/internal/types"
)

// Postgres connects to FLEETRENT_TEST_DSN and applies the migrations.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("FLEETRENT_TEST_DSN")
	if dsn == "" {
		t.Skip("FLEETRENT_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := infra.NewDB(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	root, err := infra.RepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	if _, err := infra.ApplyMigrations(ctx, pool, filepath.Join(root, "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

// Fleet is a seeded hub pair with one vehicle type, an addon and some vehicles.
type Fleet struct {
	HubID         types.ID
	OtherHubID    types.ID
	VehicleTypeID types.ID
	AddonID       types.ID
	VehicleIDs    []types.ID
}

// SeedFleet inserts rows with unique ids so packages can share one database.
// The vehicle type rates are daily 500, weekly 3000, monthly 10000; the addon is 100 per day.
func SeedFleet(t *testing.T, pool *pgxpool.Pool, vehicles int) Fleet {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	f := Fleet{
		HubID:         types.ID("hub_" + suffix),
		OtherHubID:    types.ID("hub2_" + suffix),
		VehicleTypeID: types.ID("vt_" + suffix),
		AddonID:       types.ID("addon_" + suffix),
	}

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO hubs (id, name, city) VALUES ($1, 'Central', 'Pune'), ($2, 'Airport', 'Pune')`,
			[]any{string(f.HubID), string(f.OtherHubID)}},
		{`INSERT INTO hub_transfers (from_hub_id, to_hub_id) VALUES ($1, $2)`,
			[]any{string(f.HubID), string(f.OtherHubID)}},
		{`INSERT INTO vehicle_types (id, name, daily_rate, weekly_rate, monthly_rate) VALUES ($1, 'Hatchback', 500, 3000, 10000)`,
			[]any{string(f.VehicleTypeID)}},
		{`INSERT INTO addons (id, name, price_per_day) VALUES ($1, 'Child seat', 100)`,
			[]any{string(f.AddonID)}},
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s.sql, s.args...); err != nil {
			t.Fatalf("seed fleet: %v", err)
		}
	}
	for i := 0; i < vehicles; i++ {
		id := types.ID(fmt.Sprintf("veh_%s_%d", suffix, i))
		_, err := pool.Exec(ctx, `
			INSERT INTO vehicles (id, vehicle_type_id, registration, hub_id)
			VALUES ($1, $2, $3, $4)`,
			string(id), string(f.VehicleTypeID), fmt.Sprintf("MH12-%s-%d", suffix, i), string(f.HubID))
		if err != nil {
			t.Fatalf("seed vehicle: %v", err)
		}
		f.VehicleIDs = append(f.VehicleIDs, id)
	}
	return f
}
