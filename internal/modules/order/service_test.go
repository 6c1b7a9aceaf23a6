// README: Order service tests against in-memory fakes.
package order

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"yoake/internal/events"
	"yoake/internal/modules/catalog"
	"yoake/internal/modules/pricing"
	"yoake/internal/modules/register"
	"yoake/internal/types"
)

type fakeCatalog struct {
	products map[types.ID]catalog.Product
	err      error
}

func (f *fakeCatalog) Products(_ context.Context, ids []types.ID) (map[types.ID]catalog.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[types.ID]catalog.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeRepo struct {
	orders  map[types.ID]*Order
	created int
	changes []Change
	appends []Append
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[types.ID]*Order{}}
}

func (f *fakeRepo) Create(_ context.Context, o *Order) error {
	f.created++
	o.ReadableSeq = int64(f.created)
	o.ReadableID = FormatReadableID(Prefix(o.Type, o.Channel), o.ReadableSeq)
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id types.ID) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) List(context.Context, ListQuery) ([]Order, error) { return nil, nil }
func (f *fakeRepo) Events(context.Context, types.ID) ([]Event, error) { return nil, nil }

func (f *fakeRepo) Transition(_ context.Context, ch Change) (*Order, error) {
	o := f.orders[ch.OrderID]
	if o.Status != ch.From || o.StatusVersion != ch.Version {
		return nil, ErrConflict
	}
	f.changes = append(f.changes, ch)
	o.Status = ch.To
	o.StatusVersion++
	if ch.PaymentAccount != nil {
		o.PaymentAccount = ch.PaymentAccount
		o.PaymentMethod = ch.PaymentMethod
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) AppendItems(_ context.Context, app Append) (*Order, error) {
	o := f.orders[app.OrderID]
	if o.StatusVersion != app.Version {
		return nil, ErrConflict
	}
	f.appends = append(f.appends, app)
	o.Items = append(o.Items, app.Items...)
	o.Subtotal, o.Total = app.Subtotal, app.Total
	o.StatusVersion++
	cp := *o
	return &cp, nil
}

type recordingPublisher struct {
	msgs []events.Message
	err  error
}

func (r *recordingPublisher) Publish(_ context.Context, m events.Message) error {
	r.msgs = append(r.msgs, m)
	return r.err
}

var (
	burgerID = types.ID("p-burger")
	sodaID   = types.ID("p-soda")
	oldID    = types.ID("p-old")
)

func newTestService() (*Service, *fakeRepo, *fakeCatalog, *recordingPublisher) {
	repo := newFakeRepo()
	cat := &fakeCatalog{products: map[types.ID]catalog.Product{
		burgerID: {ID: burgerID, Name: "Burger", Price: decimal.RequireFromString("25.00"), Active: true},
		sodaID:   {ID: sodaID, Name: "Soda", Price: decimal.RequireFromString("6.50"), Active: true},
		oldID:    {ID: oldID, Name: "Retired", Price: decimal.RequireFromString("1.00"), Active: false},
	}}
	pub := &recordingPublisher{}
	return NewService(repo, cat, pub, nil), repo, cat, pub
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreate_ComputesTotals(t *testing.T) {
	svc, _, _, pub := newTestService()
	o, err := svc.Create(context.Background(), CreateCommand{
		Type:            TypeDelivery,
		Channel:         ChannelWhatsApp,
		Items:           []LineInput{{ProductID: burgerID, Quantity: 2}, {ProductID: sodaID, Quantity: 1}},
		DeliveryAddress: "Rua A, 10",
		DeliveryFee:     money("8.40"),
		DistanceKm:      4.2,
		FeeSource:       pricing.FeeComputed,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !o.Subtotal.Equal(money("56.50")) || !o.Total.Equal(money("64.90")) {
		t.Errorf("subtotal/total = %s/%s", o.Subtotal, o.Total)
	}
	if !o.Total.Equal(o.Subtotal.Add(o.DeliveryFee)) {
		t.Error("total must equal subtotal + fee")
	}
	if o.Status != StatusPending || o.ReadableID != "WPP-0001" {
		t.Errorf("unexpected order %s %s", o.Status, o.ReadableID)
	}
	if o.Items[0].ProductName != "Burger" || o.CreatedBy != register.SystemUser {
		t.Errorf("snapshot not taken: %+v", o.Items[0])
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Kind != events.KindCreated || pub.msgs[0].Total != "64.90" {
		t.Errorf("unexpected messages %+v", pub.msgs)
	}
}

func TestCreate_UsesCartPriceSnapshot(t *testing.T) {
	svc, _, _, _ := newTestService()
	snapshot := money("20.00")
	o, err := svc.Create(context.Background(), CreateCommand{
		Type:    TypeCounter,
		Channel: ChannelCounter,
		Items:   []LineInput{{ProductID: burgerID, Quantity: 1, UnitPrice: &snapshot}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !o.Items[0].UnitPrice.Equal(snapshot) || !o.Total.Equal(snapshot) {
		t.Errorf("snapshot price not kept: %+v", o.Items[0])
	}
}

func TestCreate_Validation(t *testing.T) {
	tableID := types.ID("t1")
	line := []LineInput{{ProductID: burgerID, Quantity: 1}}
	cases := []struct {
		name string
		cmd  CreateCommand
	}{
		{"unknown type", CreateCommand{Type: "drive", Channel: ChannelCounter, Items: line}},
		{"unknown channel", CreateCommand{Type: TypeCounter, Channel: "Fax", Items: line}},
		{"empty", CreateCommand{Type: TypeCounter, Channel: ChannelCounter}},
		{"zero quantity", CreateCommand{Type: TypeCounter, Channel: ChannelCounter, Items: []LineInput{{ProductID: burgerID}}}},
		{"mesa without table", CreateCommand{Type: TypeTable, Channel: ChannelCounter, Items: line}},
		{"table on counter order", CreateCommand{Type: TypeCounter, Channel: ChannelCounter, Items: line, TableID: &tableID}},
		{"malformed table id", CreateCommand{Type: TypeTable, Channel: ChannelCounter, Items: line, TableID: &tableID}},
		{"malformed customer id", CreateCommand{Type: TypeCounter, Channel: ChannelCounter, Items: line, CustomerID: &tableID}},
		{"delivery without address", CreateCommand{Type: TypeDelivery, Channel: ChannelWhatsApp, Items: line}},
		{"fee on counter order", CreateCommand{Type: TypeCounter, Channel: ChannelCounter, Items: line, DeliveryFee: money("3")}},
		{"fee on iFood delivery", CreateCommand{Type: TypeDelivery, Channel: ChannelIFood, Items: line, DeliveryFee: money("3")}},
		{"negative fee", CreateCommand{Type: TypeDelivery, Channel: ChannelWhatsApp, Items: line, DeliveryAddress: "x", DeliveryFee: money("-1")}},
		{"inactive product", CreateCommand{Type: TypeCounter, Channel: ChannelCounter, Items: []LineInput{{ProductID: oldID, Quantity: 1}}}},
		{"unknown product", CreateCommand{Type: TypeCounter, Channel: ChannelCounter, Items: []LineInput{{ProductID: "nope", Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _, _ := newTestService()
			_, err := svc.Create(context.Background(), tc.cmd)
			if !errors.Is(err, ErrBadRequest) {
				t.Fatalf("expected ErrBadRequest, got %v", err)
			}
			if repo.created != 0 {
				t.Fatal("rejected order must not be stored")
			}
		})
	}
}

func TestCreate_IFoodDeliveryNeedsNoAddress(t *testing.T) {
	svc, _, _, _ := newTestService()
	o, err := svc.Create(context.Background(), CreateCommand{
		Type:    TypeDelivery,
		Channel: ChannelIFood,
		Items:   []LineInput{{ProductID: sodaID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ReadableID != "IF-0001" || !o.DeliveryFee.IsZero() || o.FeeSource != pricing.FeeNone {
		t.Errorf("unexpected order %+v", o)
	}
}

func TestCreate_CatalogFailureAborts(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	cat.err = errors.New("catalog unavailable")
	_, err := svc.Create(context.Background(), CreateCommand{
		Type: TypeCounter, Channel: ChannelCounter,
		Items: []LineInput{{ProductID: burgerID, Quantity: 1}},
	})
	if !errors.Is(err, cat.err) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	if repo.created != 0 {
		t.Fatal("order must not be stored after a catalog failure")
	}
}

func mustCreate(t *testing.T, svc *Service, cmd CreateCommand) *Order {
	t.Helper()
	if len(cmd.Items) == 0 {
		cmd.Items = []LineInput{{ProductID: burgerID, Quantity: 1}}
	}
	o, err := svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestPay_FromAnyActiveStatusFreesTable(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()
	tableID := types.NewID()
	o := mustCreate(t, svc, CreateCommand{Type: TypeTable, Channel: ChannelCounter, TableID: &tableID})

	paid, err := svc.Pay(ctx, PayCommand{OrderID: o.ID, Account: register.AccountPix})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != StatusCompleted || *paid.PaymentAccount != register.AccountPix || *paid.PaymentMethod != "PIX" {
		t.Errorf("unexpected paid order %+v", paid)
	}
	ch := repo.changes[len(repo.changes)-1]
	if ch.ReleaseTable == nil || *ch.ReleaseTable != tableID || !ch.RetagRegister || ch.From != StatusPending {
		t.Errorf("unexpected change %+v", ch)
	}

	if _, err := svc.Pay(ctx, PayCommand{OrderID: o.ID, Account: register.AccountCash}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second pay: expected ErrInvalidState, got %v", err)
	}
}

func TestPay_RejectsUnknownAccount(t *testing.T) {
	svc, _, _, _ := newTestService()
	o := mustCreate(t, svc, CreateCommand{Type: TypeCounter, Channel: ChannelCounter})
	if _, err := svc.Pay(context.Background(), PayCommand{OrderID: o.ID, Account: "CARTAO"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestAdvance_DeliveryFlow(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, pub := newTestService()
	o := mustCreate(t, svc, CreateCommand{Type: TypeDelivery, Channel: ChannelWhatsApp, DeliveryAddress: "Rua B, 2"})

	want := []Status{StatusPreparing, StatusReady, StatusDispatched, StatusCompleted}
	for _, st := range want {
		got, err := svc.Advance(ctx, AdvanceCommand{OrderID: o.ID, ActorID: "cook1"})
		if err != nil {
			t.Fatalf("advance to %s: %v", st, err)
		}
		if got.Status != st {
			t.Fatalf("advance: got %s, want %s", got.Status, st)
		}
	}
	if _, err := svc.Advance(ctx, AdvanceCommand{OrderID: o.ID}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("advance past terminal: expected ErrInvalidState, got %v", err)
	}
	for _, ch := range repo.changes {
		if ch.ReleaseTable != nil {
			t.Fatal("delivery orders hold no table")
		}
		if ch.ActorType != "staff" {
			t.Errorf("actor type = %s, want staff", ch.ActorType)
		}
	}
	last := pub.msgs[len(pub.msgs)-1]
	if last.From != string(StatusDispatched) || last.To != string(StatusCompleted) {
		t.Errorf("unexpected last message %+v", last)
	}
}

func TestUpdateStatus_GuardsDeliveryCompletion(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()
	o := mustCreate(t, svc, CreateCommand{Type: TypeDelivery, Channel: ChannelWhatsApp, DeliveryAddress: "Rua C, 3"})
	for _, st := range []Status{StatusPreparing, StatusReady} {
		if _, err := svc.UpdateStatus(ctx, StatusCommand{OrderID: o.ID, To: st}); err != nil {
			t.Fatalf("to %s: %v", st, err)
		}
	}
	if _, err := svc.UpdateStatus(ctx, StatusCommand{OrderID: o.ID, To: StatusCompleted}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCourierSteps(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()
	o := mustCreate(t, svc, CreateCommand{Type: TypeDelivery, Channel: ChannelWhatsApp, DeliveryAddress: "Rua D, 4"})

	if _, err := svc.Dispatch(ctx, AdvanceCommand{OrderID: o.ID}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("dispatch before ready: expected ErrInvalidState, got %v", err)
	}
	for _, st := range []Status{StatusPreparing, StatusReady} {
		if _, err := svc.UpdateStatus(ctx, StatusCommand{OrderID: o.ID, To: st}); err != nil {
			t.Fatalf("to %s: %v", st, err)
		}
	}
	if _, err := svc.Deliver(ctx, AdvanceCommand{OrderID: o.ID}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("deliver before dispatch: expected ErrInvalidState, got %v", err)
	}
	got, err := svc.Dispatch(ctx, AdvanceCommand{OrderID: o.ID, ActorID: "courier1"})
	if err != nil || got.Status != StatusDispatched {
		t.Fatalf("dispatch: %v %+v", err, got)
	}
	got, err = svc.Deliver(ctx, AdvanceCommand{OrderID: o.ID, ActorID: "courier1"})
	if err != nil || got.Status != StatusCompleted {
		t.Fatalf("deliver: %v %+v", err, got)
	}

	counter := mustCreate(t, svc, CreateCommand{Type: TypeCounter, Channel: ChannelCounter})
	for _, st := range []Status{StatusPreparing, StatusReady} {
		if _, err := svc.UpdateStatus(ctx, StatusCommand{OrderID: counter.ID, To: st}); err != nil {
			t.Fatalf("counter to %s: %v", st, err)
		}
	}
	if _, err := svc.Dispatch(ctx, AdvanceCommand{OrderID: counter.ID}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("counter dispatch: expected ErrInvalidState, got %v", err)
	}
}

func TestCancel_TerminalRejected(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()
	tableID := types.NewID()
	o := mustCreate(t, svc, CreateCommand{Type: TypeTable, Channel: ChannelCounter, TableID: &tableID})

	got, err := svc.Cancel(ctx, CancelCommand{OrderID: o.ID, Reason: "customer left"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	ch := repo.changes[0]
	if ch.CancelReason == nil || *ch.CancelReason != "customer left" || ch.ReleaseTable == nil {
		t.Errorf("unexpected change %+v", ch)
	}
	if _, err := svc.Cancel(ctx, CancelCommand{OrderID: o.ID}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	svc, _, _, pub := newTestService()
	o := mustCreate(t, svc, CreateCommand{Type: TypeCounter, Channel: ChannelCounter})
	pub.err = errors.New("broker down")
	if _, err := svc.Advance(context.Background(), AdvanceCommand{OrderID: o.ID}); err != nil {
		t.Fatalf("advance should succeed when publishing fails: %v", err)
	}
}

func TestAddItems(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestService()
	tableID := types.NewID()
	o := mustCreate(t, svc, CreateCommand{Type: TypeTable, Channel: ChannelCounter, TableID: &tableID})

	got, err := svc.AddItems(ctx, AddItemsCommand{OrderID: o.ID, Items: []LineInput{{ProductID: sodaID, Quantity: 2}}})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	if !got.Subtotal.Equal(money("38.00")) || !got.Total.Equal(money("38.00")) || len(got.Items) != 2 {
		t.Errorf("unexpected order after append %+v", got)
	}
	if app := repo.appends[0]; app.TableID == nil || *app.TableID != tableID {
		t.Errorf("table total not refreshed: %+v", app)
	}

	if _, err := svc.Pay(ctx, PayCommand{OrderID: o.ID, Account: register.AccountCash}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if _, err := svc.AddItems(ctx, AddItemsCommand{OrderID: o.ID, Items: []LineInput{{ProductID: sodaID, Quantity: 1}}}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on a completed order, got %v", err)
	}
}
