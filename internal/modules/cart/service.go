// README: Cart service; edits terminal carts and turns them into orders on submit.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"yoake/internal/modules/catalog"
	"yoake/internal/modules/location"
	"yoake/internal/modules/order"
	"yoake/internal/modules/pricing"
	"yoake/internal/modules/register"
	"yoake/internal/modules/table"
	"yoake/internal/types"
)

type Repository interface {
	Load(ctx context.Context, terminal string) (*Cart, error)
	Update(ctx context.Context, terminal string, fn func(*Cart) error) (*Cart, error)
	Delete(ctx context.Context, terminal string) error
}

type Catalog interface {
	Products(ctx context.Context, ids []types.ID) (map[types.ID]catalog.Product, error)
	Product(ctx context.Context, id types.ID) (*catalog.Product, error)
	Customer(ctx context.Context, id types.ID) (*catalog.Customer, error)
}

type Registers interface {
	Current(ctx context.Context) (*register.Register, error)
}

type Tables interface {
	Get(ctx context.Context, id types.ID) (*table.Table, error)
}

type Orders interface {
	Create(ctx context.Context, cmd order.CreateCommand) (*order.Order, error)
	AddItems(ctx context.Context, cmd order.AddItemsCommand) (*order.Order, error)
}

type Quoter interface {
	QuoteDestination(ctx context.Context, d location.Destination) (pricing.Quote, error)
}

type Deps struct {
	Store     Repository
	Catalog   Catalog
	Registers Registers
	Tables    Tables
	Orders    Orders
	Pricing   Quoter
	Log       *slog.Logger
}

type Service struct {
	store     Repository
	catalog   Catalog
	registers Registers
	tables    Tables
	orders    Orders
	pricing   Quoter
	log       *slog.Logger
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     d.Store,
		catalog:   d.Catalog,
		registers: d.Registers,
		tables:    d.Tables,
		orders:    d.Orders,
		pricing:   d.Pricing,
		log:       log,
	}
}

// View is a cart with its current subtotal.
type View struct {
	*Cart
	Subtotal string `json:"subtotal"`
	Items    int    `json:"items"`
}

func newView(c *Cart) View {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return View{Cart: c, Subtotal: c.Subtotal().StringFixed(types.MoneyPlaces), Items: n}
}

// SubmitResult tells whether the cart became a new order or was appended to
// the order already open on its table.
type SubmitResult struct {
	Order    *order.Order     `json:"order"`
	Appended bool             `json:"appended"`
	Fee      pricing.Decision `json:"-"`
}

// View returns the cart priced at current catalog prices.
func (s *Service) View(ctx context.Context, terminal string) (View, error) {
	if !ValidTerminal(terminal) {
		return View{}, ErrBadTerminal
	}
	c, err := s.store.Load(ctx, terminal)
	if err != nil {
		return View{}, err
	}
	if !c.Empty() {
		products, err := s.catalog.Products(ctx, c.ProductIDs())
		if err != nil {
			return View{}, err
		}
		c.Reprice(products)
	}
	return newView(c), nil
}

func (s *Service) Add(ctx context.Context, terminal string, productID types.ID) (View, error) {
	if !ValidTerminal(terminal) {
		return View{}, ErrBadTerminal
	}
	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if !p.Active {
		return View{}, catalog.ErrNotFound
	}
	c, err := s.store.Update(ctx, terminal, func(c *Cart) error {
		c.Add(*p)
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return newView(c), nil
}

func (s *Service) SetQuantity(ctx context.Context, terminal string, productID types.ID, delta int) (View, error) {
	if !ValidTerminal(terminal) {
		return View{}, ErrBadTerminal
	}
	c, err := s.store.Update(ctx, terminal, func(c *Cart) error {
		return c.SetQuantity(productID, delta)
	})
	if err != nil {
		return View{}, err
	}
	return newView(c), nil
}

func (s *Service) Clear(ctx context.Context, terminal string) error {
	if !ValidTerminal(terminal) {
		return ErrBadTerminal
	}
	return s.store.Delete(ctx, terminal)
}

// Submit validates the draft against the cart, prices it from the catalog and
// hands it to the order lifecycle. The cart is cleared only after the order
// is stored.
func (s *Service) Submit(ctx context.Context, terminal string, d Draft) (*SubmitResult, error) {
	if !ValidTerminal(terminal) {
		return nil, ErrBadTerminal
	}
	c, err := s.store.Load(ctx, terminal)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Empty() {
		return nil, ErrEmptyCart
	}

	var customer *catalog.Customer
	if d.CustomerID != nil && *d.CustomerID != "" {
		customer, err = s.catalog.Customer(ctx, *d.CustomerID)
		if err != nil {
			return nil, err
		}
		fillFromCustomer(&d, customer)
	}

	open, err := s.registerOpen(ctx)
	if err != nil {
		return nil, err
	}
	if err := Validate(c, d, open); err != nil {
		return nil, err
	}

	products, err := s.catalog.Products(ctx, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	if dropped := c.Reprice(products); len(dropped) > 0 {
		return nil, fmt.Errorf("%w: %s is no longer available", order.ErrBadRequest, dropped[0].Name)
	}
	lines := make([]order.LineInput, 0, len(c.Lines))
	for _, l := range c.Lines {
		price := l.UnitPrice
		lines = append(lines, order.LineInput{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: &price})
	}

	if d.Type == order.TypeTable {
		if res, ok, err := s.appendToTable(ctx, d, lines); ok || err != nil {
			if err != nil {
				return nil, err
			}
			s.clearAfterSubmit(ctx, terminal)
			return res, nil
		}
	}

	fee := pricing.Decision{Source: pricing.FeeNone}
	if d.chargesDelivery() {
		fee, err = s.decideFee(ctx, d)
		if err != nil {
			return nil, err
		}
	}

	o, err := s.orders.Create(ctx, order.CreateCommand{
		Type:                 d.Type,
		Channel:              d.Channel,
		Items:                lines,
		TableID:              d.TableID,
		CustomerID:           d.CustomerID,
		DeliveryAddress:      deliveryOnly(d, d.DeliveryAddress),
		DeliveryLocationLink: deliveryOnly(d, d.LocationLink),
		DeliveryFee:          fee.Fee,
		DistanceKm:           fee.DistanceKm,
		FeeSource:            fee.Source,
		ActorID:              d.ActorID,
	})
	if err != nil {
		return nil, err
	}
	s.clearAfterSubmit(ctx, terminal)
	return &SubmitResult{Order: o, Fee: fee}, nil
}

// appendToTable adds the lines to the order already open on the draft's
// table. ok is false when the table holds no order.
func (s *Service) appendToTable(ctx context.Context, d Draft, lines []order.LineInput) (*SubmitResult, bool, error) {
	t, err := s.tables.Get(ctx, *d.TableID)
	if err != nil {
		return nil, false, err
	}
	if t.CurrentOrderID == nil {
		return nil, false, nil
	}
	o, err := s.orders.AddItems(ctx, order.AddItemsCommand{
		OrderID: *t.CurrentOrderID,
		Items:   lines,
		ActorID: d.ActorID,
	})
	if err != nil {
		return nil, true, err
	}
	return &SubmitResult{Order: o, Appended: true, Fee: pricing.Decision{Source: pricing.FeeNone}}, true, nil
}

// decideFee prices the delivery. Missing coordinates never block the order:
// the fee falls back to the manual value or zero.
func (s *Service) decideFee(ctx context.Context, d Draft) (pricing.Decision, error) {
	var quote *pricing.Quote
	q, err := s.pricing.QuoteDestination(ctx, location.Destination{
		Lat:          d.Lat,
		Lng:          d.Lng,
		LocationLink: d.LocationLink,
		Address:      d.DeliveryAddress,
	})
	switch {
	case err == nil:
		quote = &q
	case errors.Is(err, pricing.ErrNoCoordinates):
		s.log.Info("delivery fee not computed", slog.String("reason", err.Error()))
	default:
		return pricing.Decision{}, err
	}
	fee, err := pricing.Decide(quote, d.DeliveryFee)
	if errors.Is(err, pricing.ErrNegativeFee) {
		return pricing.Decision{}, fmt.Errorf("%w: %v", order.ErrBadRequest, err)
	}
	return fee, err
}

func (s *Service) registerOpen(ctx context.Context) (bool, error) {
	_, err := s.registers.Current(ctx)
	if errors.Is(err, register.ErrNoOpenRegister) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// clearAfterSubmit runs once the order is stored; a failure only leaves a
// stale cart behind.
func (s *Service) clearAfterSubmit(ctx context.Context, terminal string) {
	if err := s.store.Delete(ctx, terminal); err != nil {
		s.log.Error("cart clear failed",
			slog.String("terminal", terminal),
			slog.String("error", err.Error()),
		)
	}
}

// fillFromCustomer completes missing delivery fields from the customer directory.
func fillFromCustomer(d *Draft, c *catalog.Customer) {
	if strings.TrimSpace(d.DeliveryAddress) == "" {
		d.DeliveryAddress = c.Address
	}
	if strings.TrimSpace(d.LocationLink) == "" {
		d.LocationLink = c.LocationLink
	}
	if strings.TrimSpace(d.Lat) == "" && strings.TrimSpace(d.Lng) == "" {
		d.Lat, d.Lng = c.Lat, c.Lng
	}
}

func deliveryOnly(d Draft, v string) string {
	if d.Type != order.TypeDelivery {
		return ""
	}
	return v
}
