// README: Order aggregate, status flow and readable id rules.
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"yoake/internal/modules/pricing"
	"yoake/internal/modules/register"
	"yoake/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "Pendente"
	StatusPreparing  Status = "Preparando"
	StatusReady      Status = "Pronto"
	StatusDispatched Status = "Despachado"
	StatusCompleted  Status = "Concluído"
	StatusCancelled  Status = "Cancelado"
)

type Type string

const (
	TypeTable    Type = "mesa"
	TypeCounter  Type = "balcao"
	TypeDelivery Type = "delivery"
)

type Channel string

const (
	ChannelCounter  Channel = "Balcão"
	ChannelIFood    Channel = "iFood"
	ChannelWhatsApp Channel = "WhatsApp"
	ChannelOther    Channel = "Outros"
)

func (t Type) Valid() bool {
	return t == TypeTable || t == TypeCounter || t == TypeDelivery
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelCounter, ChannelIFood, ChannelWhatsApp, ChannelOther:
		return true
	}
	return false
}

// ParseStatus accepts only the persisted lifecycle statuses.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusPreparing, StatusReady, StatusDispatched, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

type Item struct {
	ID          int64           `json:"id"`
	ProductID   types.ID        `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	AddedAt     time.Time       `json:"added_at"`
}

func (i Item) LineTotal() decimal.Decimal {
	return types.RoundMoney(i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

type Order struct {
	ID                   types.ID          `json:"id"`
	ReadableID           string            `json:"readable_id"`
	ReadableSeq          int64             `json:"readable_seq"`
	Type                 Type              `json:"type"`
	Channel              Channel           `json:"channel"`
	Status               Status            `json:"status"`
	StatusVersion        int               `json:"status_version"`
	Items                []Item            `json:"items"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	DeliveryFee          decimal.Decimal   `json:"delivery_fee"`
	DistanceKm           float64           `json:"distance_km"`
	FeeSource            pricing.FeeSource `json:"fee_source"`
	Total                decimal.Decimal   `json:"total"`
	TableID              *types.ID         `json:"table_id,omitempty"`
	CustomerID           *types.ID         `json:"customer_id,omitempty"`
	DeliveryAddress      *string           `json:"delivery_address,omitempty"`
	DeliveryLocationLink *string           `json:"delivery_location_link,omitempty"`
	PaymentMethod        *string           `json:"payment_method,omitempty"`
	PaymentAccount       *register.Account `json:"payment_account,omitempty"`
	CashRegisterID       *types.ID         `json:"cash_register_id,omitempty"`
	CreatedBy            string            `json:"created_by"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	CancelledAt          *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason         *string           `json:"cancel_reason,omitempty"`
}

type Event struct {
	ID         int64     `json:"id"`
	OrderID    types.ID  `json:"order_id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorType  string    `json:"actor_type"`
	ActorID    *string   `json:"actor_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AllowedTransitions represents the order state flow as code. Type guards on
// Pronto are applied by CanTransition.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusReady, StatusCancelled},
	StatusReady:      {StatusDispatched, StatusCompleted, StatusCancelled},
	StatusDispatched: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status, t Type) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	found := false
	for _, s := range next {
		if s == to {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if from == StatusReady {
		switch to {
		case StatusDispatched:
			return t == TypeDelivery
		case StatusCompleted:
			return t != TypeDelivery
		}
	}
	return true
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// NextStatus is the kitchen/courier "advance" step for an order.
func NextStatus(from Status, t Type) (Status, bool) {
	switch from {
	case StatusPending:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusReady, true
	case StatusReady:
		if t == TypeDelivery {
			return StatusDispatched, true
		}
		return StatusCompleted, true
	case StatusDispatched:
		return StatusCompleted, true
	}
	return "", false
}

// FreesTable reports whether moving to status releases the order's table.
func FreesTable(o *Order, to Status) bool {
	return o.Type == TypeTable && o.TableID != nil && to.Terminal()
}

// Prefix picks the readable id prefix. The channel iFood wins over the type.
func Prefix(t Type, c Channel) string {
	switch {
	case c == ChannelIFood:
		return "IF"
	case t == TypeDelivery:
		return "WPP"
	case t == TypeTable:
		return "MESA"
	default:
		return "PED"
	}
}

func FormatReadableID(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

// Subtotal sums line totals at their snapshot prices.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return types.RoundMoney(total)
}

// View names the list filters boards and screens use.
type View string

const (
	ViewActive     View = "active"
	ViewKitchen    View = "kds"
	ViewReady      View = "ready"
	ViewDelivering View = "delivering"
	ViewHistory    View = "history"
)

type ListQuery struct {
	Statuses    []Status
	Type        *Type
	NewestFirst bool
	Limit       int
}

const defaultListLimit = 200

// QueryForView maps a view name (or a raw status) to a list query.
func QueryForView(v string) (ListQuery, error) {
	delivery := TypeDelivery
	switch View(v) {
	case ViewActive, "":
		return ListQuery{Statuses: []Status{StatusPending, StatusPreparing, StatusReady, StatusDispatched}, Limit: defaultListLimit}, nil
	case ViewKitchen:
		return ListQuery{Statuses: []Status{StatusPending, StatusPreparing}, Limit: defaultListLimit}, nil
	case ViewReady:
		return ListQuery{Statuses: []Status{StatusReady}, Type: &delivery, Limit: defaultListLimit}, nil
	case ViewDelivering:
		return ListQuery{Statuses: []Status{StatusDispatched}, NewestFirst: true, Limit: defaultListLimit}, nil
	case ViewHistory:
		return ListQuery{NewestFirst: true, Limit: defaultListLimit}, nil
	}
	if st, ok := ParseStatus(v); ok {
		return ListQuery{Statuses: []Status{st}, NewestFirst: st.Terminal(), Limit: defaultListLimit}, nil
	}
	return ListQuery{}, fmt.Errorf("%w: unknown view %q", ErrBadRequest, v)
}
