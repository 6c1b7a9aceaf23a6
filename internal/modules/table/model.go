// README: Dining table aggregate and occupancy statuses.
package table

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"yoake/internal/types"
)

type Status string

const (
	StatusFree     Status = "Livre"
	StatusOccupied Status = "Ocupada"
	StatusPaying   Status = "Pagamento"
	StatusReserved Status = "Reservada"
)

var (
	ErrNotFound        = errors.New("table not found")
	ErrBadRequest      = errors.New("bad request")
	ErrDuplicateNumber = errors.New("table number already exists")
	ErrNotFree         = errors.New("table is not free")
	ErrBusy            = errors.New("table already holds an open order")
	ErrInvalidState    = errors.New("invalid table state")
)

type Table struct {
	ID             types.ID        `json:"id"`
	Number         string          `json:"number"`
	Seats          int             `json:"seats"`
	Status         Status          `json:"status"`
	PartySize      *int            `json:"party_size,omitempty"`
	CurrentTotal   decimal.Decimal `json:"current_total"`
	CurrentOrderID *types.ID       `json:"current_order_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Free reports whether the table can be seated or take a new order.
func (t *Table) Free() bool {
	return t.CurrentOrderID == nil && (t.Status == StatusFree || t.Status == StatusReserved)
}

type CreateCommand struct {
	Number string
	Seats  int
}

type OpenCommand struct {
	TableID   types.ID
	PartySize int
}
