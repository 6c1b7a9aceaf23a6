// README: Catalog store reads products and customers from PostgreSQL.
package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yoake/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Products returns the requested products keyed by id. Unknown ids are absent
// from the map.
func (s *Store) Products(ctx context.Context, ids []types.ID) (map[types.ID]Product, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price, category, active
		FROM products
		WHERE id = ANY($1::text[]::uuid[])`, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[types.ID]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Active); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context, category string) ([]Product, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price, category, active
		FROM products
		WHERE active AND ($1 = '' OR category = $1)
		ORDER BY category, name`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Customer(ctx context.Context, id types.ID) (*Customer, error) {
	var c Customer
	err := s.db.QueryRow(ctx, `
		SELECT id, name, phone, address, location_link, lat, lng
		FROM customers WHERE id = $1`, string(id),
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.LocationLink, &c.Lat, &c.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
