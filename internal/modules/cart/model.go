// README: Terminal cart and the checks a draft must pass before it becomes an order.
package cart

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"yoake/internal/modules/catalog"
	"yoake/internal/modules/order"
	"yoake/internal/modules/register"
	"yoake/internal/types"
)

var (
	ErrEmptyCart       = errors.New("empty cart")
	ErrTableRequired   = errors.New("table required")
	ErrAddressRequired = errors.New("address required")
	ErrRegisterClosed  = register.ErrRegisterClosed
	ErrLineNotFound    = errors.New("product not in cart")
	ErrBadTerminal     = errors.New("invalid terminal id")
)

type Line struct {
	ProductID types.ID        `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return types.RoundMoney(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
}

// Cart is one terminal's working order. Lines keep insertion order and are
// unique per product.
type Cart struct {
	Terminal  string    `json:"terminal"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Add puts one more unit of p in the cart at its current price.
func (c *Cart) Add(p catalog.Product) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Quantity++
			c.Lines[i].UnitPrice = p.Price
			c.Lines[i].Name = p.Name
			return
		}
	}
	c.Lines = append(c.Lines, Line{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: 1})
}

// SetQuantity adjusts a line by delta and drops it once it reaches zero.
func (c *Cart) SetQuantity(productID types.ID, delta int) error {
	for i := range c.Lines {
		if c.Lines[i].ProductID != productID {
			continue
		}
		c.Lines[i].Quantity += delta
		if c.Lines[i].Quantity <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
		return nil
	}
	return ErrLineNotFound
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return types.RoundMoney(total)
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) ProductIDs() []types.ID {
	ids := make([]types.ID, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// Reprice refreshes names and prices from the catalog. Lines whose product is
// gone or inactive are removed and returned.
func (c *Cart) Reprice(products map[types.ID]catalog.Product) []Line {
	kept := c.Lines[:0]
	var dropped []Line
	for _, l := range c.Lines {
		p, ok := products[l.ProductID]
		if !ok || !p.Active {
			dropped = append(dropped, l)
			continue
		}
		l.Name = p.Name
		l.UnitPrice = p.Price
		kept = append(kept, l)
	}
	c.Lines = kept
	return dropped
}

// Draft is what the operator chose at submission time.
type Draft struct {
	Type            order.Type       `json:"type"`
	Channel         order.Channel    `json:"channel"`
	TableID         *types.ID        `json:"table_id,omitempty"`
	CustomerID      *types.ID        `json:"customer_id,omitempty"`
	DeliveryAddress string           `json:"delivery_address,omitempty"`
	LocationLink    string           `json:"delivery_location_link,omitempty"`
	Lat             string           `json:"lat,omitempty"`
	Lng             string           `json:"lng,omitempty"`
	DeliveryFee     *decimal.Decimal `json:"delivery_fee,omitempty"`
	ActorID         string           `json:"-"`
}

func (d *Draft) chargesDelivery() bool {
	return d.Type == order.TypeDelivery && d.Channel != order.ChannelIFood
}

// Validate runs the submission checks in order and reports the first failure.
func Validate(c *Cart, d Draft, registerOpen bool) error {
	if c == nil || c.Empty() {
		return ErrEmptyCart
	}
	if d.Type == order.TypeTable && (d.TableID == nil || *d.TableID == "") {
		return ErrTableRequired
	}
	if d.chargesDelivery() && strings.TrimSpace(d.DeliveryAddress) == "" {
		return ErrAddressRequired
	}
	if !registerOpen {
		return ErrRegisterClosed
	}
	return nil
}

// ValidTerminal accepts short ids made of letters, digits, '-' and '_'.
func ValidTerminal(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
