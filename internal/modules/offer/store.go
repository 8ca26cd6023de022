// README: Offer store backed by PostgreSQL.
package offer

import (
	"context"
	"time"

	"fleetrent/internal/infra"
)

type Store struct {
	db infra.DBTX
}

func NewStore(db infra.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Offer) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO offers (id, name, discount_percent, starts_on, ends_on, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(o.ID), o.Name, o.DiscountPercent, o.StartsOn, o.EndsOn, o.Active, o.CreatedAt,
	)
	return err
}

// ValidOn returns the active offers whose date range contains the UTC date of at.
func (s *Store) ValidOn(ctx context.Context, at time.Time) ([]Offer, error) {
	return s.query(ctx, `
		SELECT id, name, discount_percent, starts_on, ends_on, active, created_at
		FROM offers
		WHERE active AND starts_on <= $1::date AND ends_on >= $1::date
		ORDER BY id`, DateOf(at))
}

func (s *Store) List(ctx context.Context) ([]Offer, error) {
	return s.query(ctx, `
		SELECT id, name, discount_percent, starts_on, ends_on, active, created_at
		FROM offers
		ORDER BY starts_on DESC, id`)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]Offer, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(&o.ID, &o.Name, &o.DiscountPercent, &o.StartsOn, &o.EndsOn, &o.Active, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
