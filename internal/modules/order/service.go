// README: Order service implements creation, state transitions, payment and item appends.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"yoake/internal/events"
	"yoake/internal/modules/catalog"
	"yoake/internal/modules/pricing"
	"yoake/internal/modules/register"
	"yoake/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrBadRequest   = errors.New("bad request")
)

// Repository is the persistence the service needs. Every write method is one
// transaction covering the order, its items, the table and the audit event.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, error)
	Events(ctx context.Context, id types.ID) ([]Event, error)
	Transition(ctx context.Context, ch Change) (*Order, error)
	AppendItems(ctx context.Context, app Append) (*Order, error)
}

type Catalog interface {
	Products(ctx context.Context, ids []types.ID) (map[types.ID]catalog.Product, error)
}

type Service struct {
	store     Repository
	catalog   Catalog
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(store Repository, catalog Catalog, publisher events.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, catalog: catalog, publisher: publisher, log: log, now: time.Now}
}

// LineInput is one requested line. UnitPrice is set when the caller already
// captured a price snapshot (a cart); otherwise the catalog price is used.
type LineInput struct {
	ProductID types.ID
	Quantity  int
	UnitPrice *decimal.Decimal
}

type CreateCommand struct {
	Type                 Type
	Channel              Channel
	Items                []LineInput
	TableID              *types.ID
	CustomerID           *types.ID
	DeliveryAddress      string
	DeliveryLocationLink string
	DeliveryFee          decimal.Decimal
	DistanceKm           float64
	FeeSource            pricing.FeeSource
	ActorID              string
}

type StatusCommand struct {
	OrderID types.ID
	To      Status
	ActorID string
}

type AdvanceCommand struct {
	OrderID types.ID
	ActorID string
}

type CancelCommand struct {
	OrderID types.ID
	Reason  string
	ActorID string
}

type PayCommand struct {
	OrderID types.ID
	Method  string
	Account register.Account
	ActorID string
}

type AddItemsCommand struct {
	OrderID types.ID
	Items   []LineInput
	ActorID string
}

// Change is a validated status change the store applies atomically.
type Change struct {
	OrderID        types.ID
	From           Status
	To             Status
	Version        int
	ReleaseTable   *types.ID
	PaymentMethod  *string
	PaymentAccount *register.Account
	RetagRegister  bool
	CancelReason   *string
	ActorType      string
	ActorID        string
	At             time.Time
}

// Append is a validated item append the store applies atomically.
type Append struct {
	OrderID  types.ID
	Version  int
	Items    []Item
	Subtotal decimal.Decimal
	Total    decimal.Decimal
	TableID  *types.ID
	ActorID  string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if err := validateCreate(&cmd); err != nil {
		return nil, err
	}
	now := s.now()
	items, err := s.resolveItems(ctx, cmd.Items, now)
	if err != nil {
		return nil, err
	}

	subtotal := Subtotal(items)
	fee := types.RoundMoney(cmd.DeliveryFee)
	feeSource := cmd.FeeSource
	if feeSource == "" {
		feeSource = pricing.FeeNone
		if fee.IsPositive() {
			feeSource = pricing.FeeManual
		}
	}

	o := &Order{
		ID:          types.NewID(),
		Type:        cmd.Type,
		Channel:     cmd.Channel,
		Status:      StatusPending,
		Items:       items,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		DistanceKm:  cmd.DistanceKm,
		FeeSource:   feeSource,
		Total:       types.SumMoney(subtotal, fee),
		TableID:     cmd.TableID,
		CustomerID:  cmd.CustomerID,
		CreatedBy:   actorOrSystem(cmd.ActorID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if a := strings.TrimSpace(cmd.DeliveryAddress); a != "" {
		o.DeliveryAddress = &a
	}
	if l := strings.TrimSpace(cmd.DeliveryLocationLink); l != "" {
		o.DeliveryLocationLink = &l
	}

	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.publish(ctx, events.KindCreated, o, StatusNone)
	return o, nil
}

func validateCreate(cmd *CreateCommand) error {
	if !cmd.Type.Valid() {
		return fmt.Errorf("%w: unknown order type %q", ErrBadRequest, cmd.Type)
	}
	if !cmd.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrBadRequest, cmd.Channel)
	}
	if len(cmd.Items) == 0 {
		return fmt.Errorf("%w: empty order", ErrBadRequest)
	}
	if err := validateLines(cmd.Items); err != nil {
		return err
	}
	if cmd.Type == TypeTable && (cmd.TableID == nil || *cmd.TableID == "") {
		return fmt.Errorf("%w: table required", ErrBadRequest)
	}
	if cmd.Type != TypeTable && cmd.TableID != nil {
		return fmt.Errorf("%w: only table orders hold a table", ErrBadRequest)
	}
	if cmd.TableID != nil && !types.ValidID(string(*cmd.TableID)) {
		return fmt.Errorf("%w: invalid table id", ErrBadRequest)
	}
	if cmd.CustomerID != nil && !types.ValidID(string(*cmd.CustomerID)) {
		return fmt.Errorf("%w: invalid customer id", ErrBadRequest)
	}
	if cmd.Type == TypeDelivery && cmd.Channel != ChannelIFood && strings.TrimSpace(cmd.DeliveryAddress) == "" {
		return fmt.Errorf("%w: address required", ErrBadRequest)
	}
	if cmd.DeliveryFee.IsNegative() || cmd.DistanceKm < 0 {
		return fmt.Errorf("%w: negative delivery fee or distance", ErrBadRequest)
	}
	if !chargesDelivery(cmd.Type, cmd.Channel) {
		if !cmd.DeliveryFee.IsZero() {
			return fmt.Errorf("%w: delivery fee only applies to own deliveries", ErrBadRequest)
		}
		cmd.DistanceKm = 0
		cmd.FeeSource = pricing.FeeNone
	}
	return nil
}

// chargesDelivery reports whether the restaurant charges a delivery fee itself.
// iFood collects its own fee.
func chargesDelivery(t Type, c Channel) bool {
	return t == TypeDelivery && c != ChannelIFood
}

func validateLines(lines []LineInput) error {
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			return fmt.Errorf("%w: invalid line", ErrBadRequest)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: negative unit price", ErrBadRequest)
		}
	}
	return nil
}

// resolveItems snapshots product names and prices. A catalog failure aborts.
func (s *Service) resolveItems(ctx context.Context, lines []LineInput, at time.Time) ([]Item, error) {
	ids := make([]types.ID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.Active {
			return nil, fmt.Errorf("%w: unknown product %s", ErrBadRequest, l.ProductID)
		}
		price := p.Price
		if l.UnitPrice != nil {
			price = *l.UnitPrice
		}
		items = append(items, Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			UnitPrice:   types.RoundMoney(price),
			AddedAt:     at,
		})
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// List returns orders for a named view ("active", "kds", "ready",
// "delivering", "history") or a raw status.
func (s *Service) List(ctx context.Context, view string) ([]Order, error) {
	q, err := QueryForView(view)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, q)
}

func (s *Service) Events(ctx context.Context, id types.ID) ([]Event, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Events(ctx, id)
}

func (s *Service) UpdateStatus(ctx context.Context, cmd StatusCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.To, o.Type) {
		return nil, ErrInvalidState
	}
	return s.apply(ctx, o, Change{To: cmd.To, ActorID: cmd.ActorID})
}

// Advance moves an order one step forward in the kitchen/courier flow.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	to, ok := NextStatus(o.Status, o.Type)
	if !ok {
		return nil, ErrInvalidState
	}
	return s.apply(ctx, o, Change{To: to, ActorID: cmd.ActorID})
}

// Dispatch hands a ready delivery order to the courier.
func (s *Service) Dispatch(ctx context.Context, cmd AdvanceCommand) (*Order, error) {
	return s.courierStep(ctx, cmd, StatusReady, StatusDispatched)
}

// Deliver completes a dispatched delivery order.
func (s *Service) Deliver(ctx context.Context, cmd AdvanceCommand) (*Order, error) {
	return s.courierStep(ctx, cmd, StatusDispatched, StatusCompleted)
}

func (s *Service) courierStep(ctx context.Context, cmd AdvanceCommand, from, to Status) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Type != TypeDelivery || o.Status != from {
		return nil, ErrInvalidState
	}
	return s.apply(ctx, o, Change{To: to, ActorID: cmd.ActorID})
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusCancelled, o.Type) {
		return nil, ErrInvalidState
	}
	ch := Change{To: StatusCancelled, ActorID: cmd.ActorID}
	if r := strings.TrimSpace(cmd.Reason); r != "" {
		ch.CancelReason = &r
	}
	return s.apply(ctx, o, ch)
}

// Pay settles an open order into a payment account and completes it from any
// non-terminal status. The order is attached to the currently open register
// when there is one.
func (s *Service) Pay(ctx context.Context, cmd PayCommand) (*Order, error) {
	if !register.KnownAccount(cmd.Account) {
		return nil, fmt.Errorf("%w: unknown payment account %q", ErrBadRequest, cmd.Account)
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrInvalidState
	}
	method := strings.TrimSpace(cmd.Method)
	if method == "" {
		method = string(cmd.Account)
	}
	account := cmd.Account
	return s.apply(ctx, o, Change{
		To:             StatusCompleted,
		PaymentMethod:  &method,
		PaymentAccount: &account,
		RetagRegister:  true,
		ActorID:        cmd.ActorID,
	})
}

func (s *Service) apply(ctx context.Context, o *Order, ch Change) (*Order, error) {
	ch.OrderID = o.ID
	ch.From = o.Status
	ch.Version = o.StatusVersion
	ch.At = s.now()
	ch.ActorType = actorType(ch.ActorID)
	if FreesTable(o, ch.To) {
		ch.ReleaseTable = o.TableID
	}
	updated, err := s.store.Transition(ctx, ch)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.KindStatusChanged, updated, ch.From)
	return updated, nil
}

// AddItems appends lines to an open order. Lines without a price snapshot use
// the current catalog price.
func (s *Service) AddItems(ctx context.Context, cmd AddItemsCommand) (*Order, error) {
	if len(cmd.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrBadRequest)
	}
	if err := validateLines(cmd.Items); err != nil {
		return nil, err
	}
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrInvalidState
	}
	items, err := s.resolveItems(ctx, cmd.Items, s.now())
	if err != nil {
		return nil, err
	}
	subtotal := types.SumMoney(o.Subtotal, Subtotal(items))
	app := Append{
		OrderID:  o.ID,
		Version:  o.StatusVersion,
		Items:    items,
		Subtotal: subtotal,
		Total:    types.SumMoney(subtotal, o.DeliveryFee),
		ActorID:  actorOrSystem(cmd.ActorID),
	}
	if o.Type == TypeTable {
		app.TableID = o.TableID
	}
	updated, err := s.store.AppendItems(ctx, app)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.KindItemsAdded, updated, updated.Status)
	return updated, nil
}

// publish runs after commit; failures are logged and never undo the change.
func (s *Service) publish(ctx context.Context, kind events.Kind, o *Order, from Status) {
	if s.publisher == nil {
		return
	}
	m := events.Message{
		Kind:       kind,
		OrderID:    string(o.ID),
		ReadableID: o.ReadableID,
		Type:       string(o.Type),
		Channel:    string(o.Channel),
		To:         string(o.Status),
		Total:      o.Total.StringFixed(types.MoneyPlaces),
		At:         s.now(),
	}
	if from != StatusNone && from != o.Status {
		m.From = string(from)
	}
	if o.TableID != nil {
		m.TableID = string(*o.TableID)
	}
	if err := s.publisher.Publish(ctx, m); err != nil {
		s.log.Error("order event publish failed",
			slog.String("action", string(kind)),
			slog.String("order_id", string(o.ID)),
			slog.String("error", err.Error()),
		)
	}
}

func actorOrSystem(id string) string {
	if strings.TrimSpace(id) == "" {
		return register.SystemUser
	}
	return id
}

func actorType(id string) string {
	if strings.TrimSpace(id) == "" || id == register.SystemUser {
		return "system"
	}
	return "staff"
}
