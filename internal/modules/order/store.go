// README: Order store backed by PostgreSQL; each write is a single transaction.
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yoake/internal/infra"
	"yoake/internal/modules/catalog"
	"yoake/internal/modules/register"
	"yoake/internal/modules/table"
	"yoake/internal/types"
)

const orderColumns = `id, readable_id, readable_seq, type, channel, status, status_version,
	subtotal, delivery_fee, distance_km, fee_source, total,
	table_id, customer_id, delivery_address, delivery_location_link,
	payment_method, payment_account, cash_register_id, created_by,
	created_at, updated_at, completed_at, cancelled_at, cancel_reason`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create links the order to the open register, assigns its readable id,
// inserts it with its items, occupies its table and records the creation
// event. Nothing is written if any step fails.
func (s *Store) Create(ctx context.Context, o *Order) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		registerID, err := register.RequireOpen(ctx, tx)
		if err != nil {
			return err
		}
		o.CashRegisterID = &registerID

		seq, err := nextSequence(ctx, tx)
		if err != nil {
			return err
		}
		o.ReadableSeq = seq
		o.ReadableID = FormatReadableID(Prefix(o.Type, o.Channel), seq)

		// The table is claimed first so a missing or busy table reports as such.
		if o.TableID != nil {
			if err := table.Occupy(ctx, tx, *o.TableID, o.ID, o.Total); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (
				id, readable_id, readable_seq, type, channel, status, status_version,
				subtotal, delivery_fee, distance_km, fee_source, total,
				table_id, customer_id, delivery_address, delivery_location_link,
				cash_register_id, created_by, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7,
				$8, $9, $10, $11, $12,
				$13, $14, $15, $16,
				$17, $18, $19, $20
			)`,
			string(o.ID), o.ReadableID, o.ReadableSeq, string(o.Type), string(o.Channel), string(o.Status), o.StatusVersion,
			o.Subtotal, o.DeliveryFee, o.DistanceKm, string(o.FeeSource), o.Total,
			toStringPtr(o.TableID), toStringPtr(o.CustomerID), o.DeliveryAddress, o.DeliveryLocationLink,
			string(registerID), o.CreatedBy, o.CreatedAt, o.UpdatedAt,
		); err != nil {
			if infra.IsForeignKeyViolation(err, "orders_customer_id_fkey") {
				return catalog.ErrNotFound
			}
			if infra.IsForeignKeyViolation(err, "orders_table_id_fkey") {
				return table.ErrNotFound
			}
			return fmt.Errorf("insert order: %w", err)
		}

		if err := insertItems(ctx, tx, o.ID, o.Items); err != nil {
			return err
		}

		return appendEvent(ctx, tx, &Event{
			OrderID:    o.ID,
			FromStatus: StatusNone,
			ToStatus:   o.Status,
			ActorType:  actorType(o.CreatedBy),
			ActorID:    &o.CreatedBy,
			CreatedAt:  o.CreatedAt,
		})
	})
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	if !types.ValidID(string(id)) {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, s.db, []types.ID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Order, error) {
	statuses := make([]string, len(q.Statuses))
	for i, st := range q.Statuses {
		statuses[i] = string(st)
	}
	var typ *string
	if q.Type != nil {
		t := string(*q.Type)
		typ = &t
	}
	order := "ASC"
	if q.NewestFirst {
		order = "DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
		  AND ($2::text IS NULL OR type = $2::text)
		ORDER BY created_at `+order+`, readable_seq `+order+`
		LIMIT $3`,
		statuses, typ, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []types.ID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := loadItems(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (s *Store) Events(ctx context.Context, id types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor_type, actor_id, created_at
		FROM order_state_events
		WHERE order_id = $1
		ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.ActorType, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Transition applies a status change guarded by the status and version the
// caller read. A lost race returns ErrConflict.
func (s *Store) Transition(ctx context.Context, ch Change) (*Order, error) {
	var updated *Order
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var registerID *string
		if ch.RetagRegister {
			id, ok, err := register.CurrentOpen(ctx, tx)
			if err != nil {
				return err
			}
			if ok {
				v := string(id)
				registerID = &v
			}
		}
		var account *string
		if ch.PaymentAccount != nil {
			v := string(*ch.PaymentAccount)
			account = &v
		}

		row := tx.QueryRow(ctx, `
			UPDATE orders
			SET status = $1,
				status_version = status_version + 1,
				updated_at = $2,
				completed_at = CASE WHEN $1 = 'Concluído' THEN $2 ELSE completed_at END,
				cancelled_at = CASE WHEN $1 = 'Cancelado' THEN $2 ELSE cancelled_at END,
				cancel_reason = COALESCE($3, cancel_reason),
				payment_method = COALESCE($4, payment_method),
				payment_account = COALESCE($5, payment_account),
				cash_register_id = COALESCE($6::uuid, cash_register_id)
			WHERE id = $7 AND status = $8 AND status_version = $9
			RETURNING `+orderColumns,
			string(ch.To), ch.At, ch.CancelReason, ch.PaymentMethod, account, registerID,
			string(ch.OrderID), string(ch.From), ch.Version,
		)
		o, err := scanOrder(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		if err != nil {
			return err
		}

		if ch.ReleaseTable != nil {
			if err := table.Release(ctx, tx, *ch.ReleaseTable, ch.OrderID); err != nil {
				return err
			}
		}

		actor := actorOrSystem(ch.ActorID)
		if err := appendEvent(ctx, tx, &Event{
			OrderID:    ch.OrderID,
			FromStatus: ch.From,
			ToStatus:   ch.To,
			ActorType:  ch.ActorType,
			ActorID:    &actor,
			CreatedAt:  ch.At,
		}); err != nil {
			return err
		}

		items, err := loadItems(ctx, tx, []types.ID{o.ID})
		if err != nil {
			return err
		}
		o.Items = items[o.ID]
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AppendItems adds lines to a non-terminal order and refreshes the running
// total on its table.
func (s *Store) AppendItems(ctx context.Context, app Append) (*Order, error) {
	var updated *Order
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE orders
			SET subtotal = $1, total = $2, status_version = status_version + 1, updated_at = NOW()
			WHERE id = $3 AND status_version = $4 AND status NOT IN ('Concluído', 'Cancelado')
			RETURNING `+orderColumns,
			app.Subtotal, app.Total, string(app.OrderID), app.Version,
		)
		o, err := scanOrder(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		if err != nil {
			return err
		}

		if err := insertItems(ctx, tx, app.OrderID, app.Items); err != nil {
			return err
		}
		if app.TableID != nil {
			if err := table.RefreshTotal(ctx, tx, *app.TableID, app.OrderID, app.Total); err != nil {
				return err
			}
		}

		items, err := loadItems(ctx, tx, []types.ID{o.ID})
		if err != nil {
			return err
		}
		o.Items = items[o.ID]
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
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

// nextSequence hands out strictly increasing readable numbers. The row lock is
// held until the creating transaction ends.
func nextSequence(ctx context.Context, tx pgx.Tx) (int64, error) {
	var n int64
	err := tx.QueryRow(ctx, `
		INSERT INTO order_sequences (name, next_number) VALUES ('orders', 1)
		ON CONFLICT (name) DO UPDATE SET next_number = order_sequences.next_number + 1
		RETURNING next_number`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next order sequence: %w", err)
	}
	return n, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID types.ID, items []Item) error {
	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, added_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			string(orderID), string(it.ProductID), it.ProductName, it.Quantity, it.UnitPrice, it.AddedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func appendEvent(ctx context.Context, tx pgx.Tx, e *Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_state_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		e.ActorID,
		e.CreatedAt,
	)
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, ids []types.ID) (map[types.ID][]Item, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	rows, err := q.Query(ctx, `
		SELECT order_id, id, product_id, product_name, quantity, unit_price, added_at
		FROM order_items
		WHERE order_id = ANY($1::text[]::uuid[])
		ORDER BY id`, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[types.ID][]Item, len(ids))
	for rows.Next() {
		var orderID types.ID
		var it Item
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.AddedAt); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var tableID, customerID, registerID, account *string
	if err := row.Scan(
		&o.ID, &o.ReadableID, &o.ReadableSeq, &o.Type, &o.Channel, &o.Status, &o.StatusVersion,
		&o.Subtotal, &o.DeliveryFee, &o.DistanceKm, &o.FeeSource, &o.Total,
		&tableID, &customerID, &o.DeliveryAddress, &o.DeliveryLocationLink,
		&o.PaymentMethod, &account, &registerID, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.CancelledAt, &o.CancelReason,
	); err != nil {
		return nil, err
	}
	o.TableID = toIDPtr(tableID)
	o.CustomerID = toIDPtr(customerID)
	o.CashRegisterID = toIDPtr(registerID)
	if account != nil {
		a := register.Account(*account)
		o.PaymentAccount = &a
	}
	return &o, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil {
		return nil
	}
	id := types.ID(*v)
	return &id
}
