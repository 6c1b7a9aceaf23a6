// README: Cash register store backed by PostgreSQL.
package register

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yoake/internal/infra"
	"yoake/internal/types"
)

// completedStatus is the order status whose totals count toward a register.
const completedStatus = "Concluído"

const registerColumns = `id, opening_balance, closing_balance, total_cash, total_nubank, total_picpay,
	total_pix, total_ifood, status, user_id, opened_at, closed_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// OpenOne inserts an open register. The partial unique index on open rows
// turns a concurrent second open into ErrAlreadyOpen.
func (s *Store) OpenOne(ctx context.Context, r *Register) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cash_registers (id, opening_balance, status, user_id, opened_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		string(r.ID), r.OpeningBalance, string(StatusOpen), r.UserID, r.OpenedAt,
	)
	if infra.IsUniqueViolation(err, "cash_registers_one_open") {
		return ErrAlreadyOpen
	}
	return err
}

func (s *Store) Current(ctx context.Context) (*Register, error) {
	row := s.db.QueryRow(ctx, `SELECT `+registerColumns+` FROM cash_registers WHERE status = 'open'`)
	r, err := scanRegister(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOpenRegister
	}
	return r, err
}

// LastClosed returns nil when no register was ever closed.
func (s *Store) LastClosed(ctx context.Context) (*Register, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+registerColumns+` FROM cash_registers
		WHERE status = 'closed'
		ORDER BY closed_at DESC
		LIMIT 1`)
	r, err := scanRegister(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *Store) SalesByAccount(ctx context.Context, registerID types.ID) ([]Sale, error) {
	return salesByAccount(ctx, s.db, registerID)
}

// CloseOne locks the open register, totals its completed orders and closes it
// in one transaction.
func (s *Store) CloseOne(ctx context.Context, closedAt time.Time) (*Register, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+registerColumns+` FROM cash_registers WHERE status = 'open' FOR UPDATE`)
	r, err := scanRegister(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOpenRegister
	}
	if err != nil {
		return nil, err
	}

	sales, err := salesByAccount(ctx, tx, r.ID)
	if err != nil {
		return nil, err
	}
	totals, closing := Summarize(r.OpeningBalance, sales)

	if _, err := tx.Exec(ctx, `
		UPDATE cash_registers
		SET status = 'closed', closing_balance = $2, closed_at = $3,
		    total_cash = $4, total_nubank = $5, total_picpay = $6, total_pix = $7, total_ifood = $8
		WHERE id = $1`,
		string(r.ID), closing, closedAt,
		totals.Cash, totals.Nubank, totals.PicPay, totals.Pix, totals.IFood,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	r.Status = StatusClosed
	r.Totals = totals
	r.ClosingBalance.Decimal = closing
	r.ClosingBalance.Valid = true
	r.ClosedAt = &closedAt
	return r, nil
}

func (s *Store) History(ctx context.Context, limit int) ([]Register, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+registerColumns+` FROM cash_registers
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Register
	for rows.Next() {
		r, err := scanRegister(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func salesByAccount(ctx context.Context, q querier, registerID types.ID) ([]Sale, error) {
	rows, err := q.Query(ctx, `
		SELECT COALESCE(payment_account, ''), SUM(total)
		FROM orders
		WHERE cash_register_id = $1 AND status = $2
		GROUP BY payment_account
		ORDER BY 1`,
		string(registerID), completedStatus,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.Account, &sale.Amount); err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func scanRegister(row pgx.Row) (*Register, error) {
	var r Register
	if err := row.Scan(
		&r.ID, &r.OpeningBalance, &r.ClosingBalance,
		&r.Cash, &r.Nubank, &r.PicPay, &r.Pix, &r.IFood,
		&r.Status, &r.UserID, &r.OpenedAt, &r.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}
