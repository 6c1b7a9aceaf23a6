// README: Transaction-scoped register checks used by order creation and payment.
package register

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"yoake/internal/types"
)

// RequireOpen returns the open register and holds a share lock on its row until
// the caller's transaction ends, so a concurrent close waits for it.
func RequireOpen(ctx context.Context, tx pgx.Tx) (types.ID, error) {
	id, ok, err := CurrentOpen(ctx, tx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrRegisterClosed
	}
	return id, nil
}

// CurrentOpen is RequireOpen without the error when nothing is open.
func CurrentOpen(ctx context.Context, tx pgx.Tx) (types.ID, bool, error) {
	var id types.ID
	err := tx.QueryRow(ctx, `
		SELECT id FROM cash_registers WHERE status = 'open' FOR SHARE`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
