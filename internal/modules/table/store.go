// README: Table store backed by PostgreSQL.
package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yoake/internal/infra"
	"yoake/internal/types"
)

const tableColumns = `id, number, seats, status, party_size, current_total, current_order_id, created_at, updated_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context) ([]Table, error) {
	rows, err := s.db.Query(ctx, `SELECT `+tableColumns+` FROM restaurant_tables ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Table, error) {
	row := s.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM restaurant_tables WHERE id = $1`, string(id))
	t, err := scanTable(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *Store) Create(ctx context.Context, t *Table) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO restaurant_tables (id, number, seats, status, current_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)`,
		string(t.ID), t.Number, t.Seats, string(t.Status), t.CreatedAt,
	)
	if infra.IsUniqueViolation(err, "restaurant_tables_number_key") {
		return ErrDuplicateNumber
	}
	return err
}

func (s *Store) Seat(ctx context.Context, id types.ID, partySize int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return seat(ctx, tx, id, partySize)
	})
}

func (s *Store) Vacate(ctx context.Context, id types.ID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return vacate(ctx, tx, id)
	})
}

func (s *Store) Mark(ctx context.Context, id types.ID, from, to Status) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return mark(ctx, tx, id, from, to)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func scanTable(row pgx.Row) (*Table, error) {
	var t Table
	var orderID *string
	if err := row.Scan(
		&t.ID, &t.Number, &t.Seats, &t.Status, &t.PartySize,
		&t.CurrentTotal, &orderID, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if orderID != nil {
		id := types.ID(*orderID)
		t.CurrentOrderID = &id
	}
	return &t, nil
}
