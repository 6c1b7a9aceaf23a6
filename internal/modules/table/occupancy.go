// README: The only code that writes table occupancy fields. Every function runs
// inside the caller's transaction so order and table state commit together.
package table

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"yoake/internal/types"
)

// Occupy links a table to a newly created order. A table already holding a
// different order yields ErrBusy.
func Occupy(ctx context.Context, tx pgx.Tx, tableID, orderID types.ID, total decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `
		UPDATE restaurant_tables
		SET status = $2, current_order_id = $3, current_total = $4, updated_at = NOW()
		WHERE id = $1 AND current_order_id IS NULL`,
		string(tableID), string(StatusOccupied), string(orderID), total,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return missingOrBusy(ctx, tx, tableID)
}

// Release frees a table when the order holding it reaches a terminal status.
// Tables that were already freed or handed to another order are left alone.
func Release(ctx context.Context, tx pgx.Tx, tableID, orderID types.ID) error {
	_, err := tx.Exec(ctx, `
		UPDATE restaurant_tables
		SET status = $2, current_order_id = NULL, current_total = 0, party_size = NULL, updated_at = NOW()
		WHERE id = $1 AND current_order_id = $3`,
		string(tableID), string(StatusFree), string(orderID),
	)
	return err
}

// RefreshTotal mirrors the running total of the order holding the table.
func RefreshTotal(ctx context.Context, tx pgx.Tx, tableID, orderID types.ID, total decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		UPDATE restaurant_tables
		SET current_total = $3, updated_at = NOW()
		WHERE id = $1 AND current_order_id = $2`,
		string(tableID), string(orderID), total,
	)
	return err
}

// seat opens a free or reserved table for a walk-in party without an order.
func seat(ctx context.Context, tx pgx.Tx, tableID types.ID, partySize int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE restaurant_tables
		SET status = $2, party_size = $3, updated_at = NOW()
		WHERE id = $1 AND current_order_id IS NULL AND status IN ($4, $5)`,
		string(tableID), string(StatusOccupied), partySize, string(StatusFree), string(StatusReserved),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if err := missingOrBusy(ctx, tx, tableID); err != nil && !errors.Is(err, ErrBusy) {
		return err
	}
	return ErrNotFree
}

// vacate unconditionally frees a table.
func vacate(ctx context.Context, tx pgx.Tx, tableID types.ID) error {
	tag, err := tx.Exec(ctx, `
		UPDATE restaurant_tables
		SET status = $2, current_order_id = NULL, current_total = 0, party_size = NULL, updated_at = NOW()
		WHERE id = $1`,
		string(tableID), string(StatusFree),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mark moves a table between manual statuses (reservation, bill requested).
func mark(ctx context.Context, tx pgx.Tx, tableID types.ID, from, to Status) error {
	tag, err := tx.Exec(ctx, `
		UPDATE restaurant_tables SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		string(tableID), string(from), string(to),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if err := missingOrBusy(ctx, tx, tableID); errors.Is(err, ErrNotFound) {
		return err
	}
	return ErrInvalidState
}

func missingOrBusy(ctx context.Context, tx pgx.Tx, tableID types.ID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM restaurant_tables WHERE id = $1)`, string(tableID)).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrBusy
}
