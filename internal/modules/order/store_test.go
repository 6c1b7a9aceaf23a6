// README: DB-backed order lifecycle tests (tables, register, sequences, races).
package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"yoake/internal/modules/catalog"
	"yoake/internal/modules/register"
	"yoake/internal/modules/table"
	"yoake/internal/testutil"
	"yoake/internal/types"
)

type dbFixture struct {
	db      *pgxpool.Pool
	svc     *Service
	tables  *table.Service
	burger  types.ID
	soda    types.ID
	counter types.ID
}

func setupTestStore(t *testing.T) *dbFixture {
	t.Helper()
	db := testutil.DB(t)
	f := &dbFixture{
		db:     db,
		svc:    NewService(NewStore(db), catalog.NewService(catalog.NewStore(db)), nil, nil),
		tables: table.NewService(table.NewStore(db)),
		burger: testutil.SeedProduct(t, db, "Burger", "25.00"),
		soda:   testutil.SeedProduct(t, db, "Soda", "6.50"),
	}
	return f
}

func (f *dbFixture) table(t *testing.T, id types.ID) *table.Table {
	t.Helper()
	tbl, err := f.tables.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	return tbl
}

func TestStore_TableOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	registerID := testutil.OpenRegister(t, f.db, "100")
	tableID := testutil.SeedTable(t, f.db, "03")

	o, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeTable, Channel: ChannelCounter, TableID: &tableID,
		Items: []LineInput{{ProductID: f.burger, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ReadableID != "MESA-0001" || o.CashRegisterID == nil || *o.CashRegisterID != registerID {
		t.Fatalf("unexpected order %+v", o)
	}

	tbl := f.table(t, tableID)
	if tbl.Status != table.StatusOccupied || tbl.CurrentOrderID == nil || *tbl.CurrentOrderID != o.ID {
		t.Fatalf("table not occupied: %+v", tbl)
	}
	if !tbl.CurrentTotal.Equal(money("50")) {
		t.Fatalf("table total = %s, want 50", tbl.CurrentTotal)
	}

	// a second order for the same table is rejected and leaves nothing behind
	if _, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeTable, Channel: ChannelCounter, TableID: &tableID,
		Items: []LineInput{{ProductID: f.soda, Quantity: 1}},
	}); !errors.Is(err, table.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	o, err = f.svc.AddItems(ctx, AddItemsCommand{OrderID: o.ID, Items: []LineInput{{ProductID: f.soda, Quantity: 2}}})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}
	if !o.Total.Equal(money("63")) || len(o.Items) != 2 {
		t.Fatalf("unexpected order after append %+v", o)
	}
	if tbl := f.table(t, tableID); !tbl.CurrentTotal.Equal(money("63")) {
		t.Fatalf("table total = %s, want 63", tbl.CurrentTotal)
	}

	paid, err := f.svc.Pay(ctx, PayCommand{OrderID: o.ID, Account: register.AccountNubank, ActorID: "cashier1"})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Status != StatusCompleted || paid.CompletedAt == nil || *paid.PaymentAccount != register.AccountNubank {
		t.Fatalf("unexpected paid order %+v", paid)
	}
	if tbl := f.table(t, tableID); !tbl.Free() || !tbl.CurrentTotal.IsZero() {
		t.Fatalf("table not released: %+v", tbl)
	}

	evts, err := f.svc.Events(ctx, o.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 2 || evts[0].FromStatus != StatusNone || evts[1].ToStatus != StatusCompleted {
		t.Fatalf("unexpected events %+v", evts)
	}
	if *evts[1].ActorID != "cashier1" || evts[1].ActorType != "staff" {
		t.Fatalf("unexpected actor on %+v", evts[1])
	}

	closed, err := register.NewService(register.NewStore(f.db)).Close(ctx)
	if err != nil {
		t.Fatalf("close register: %v", err)
	}
	if !closed.Nubank.Equal(money("63")) || !closed.ClosingBalance.Decimal.Equal(money("163")) {
		t.Fatalf("unexpected register totals %+v", closed)
	}
}

func TestStore_CancelFreesTable(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	testutil.OpenRegister(t, f.db, "0")
	tableID := testutil.SeedTable(t, f.db, "04")

	o, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeTable, Channel: ChannelCounter, TableID: &tableID,
		Items: []LineInput{{ProductID: f.burger, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Advance(ctx, AdvanceCommand{OrderID: o.ID}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	cancelled, err := f.svc.Cancel(ctx, CancelCommand{OrderID: o.ID, Reason: "wrong table"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelledAt == nil || *cancelled.CancelReason != "wrong table" {
		t.Fatalf("unexpected cancelled order %+v", cancelled)
	}
	if tbl := f.table(t, tableID); !tbl.Free() {
		t.Fatalf("table not released: %+v", tbl)
	}
	if _, err := f.svc.Advance(ctx, AdvanceCommand{OrderID: o.ID}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestStore_CreateRequiresOpenRegister(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	tableID := testutil.SeedTable(t, f.db, "08")

	_, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeTable, Channel: ChannelCounter, TableID: &tableID,
		Items: []LineInput{{ProductID: f.burger, Quantity: 1}},
	})
	if !errors.Is(err, register.ErrRegisterClosed) {
		t.Fatalf("expected ErrRegisterClosed, got %v", err)
	}

	var n int
	if err := f.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
	if tbl := f.table(t, tableID); !tbl.Free() {
		t.Fatalf("table touched by failed create: %+v", tbl)
	}
}

func TestStore_CreateUnknownTableOrCustomer(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	testutil.OpenRegister(t, f.db, "0")
	missing := types.NewID()
	line := []LineInput{{ProductID: f.burger, Quantity: 1}}

	cases := []struct {
		name string
		cmd  CreateCommand
		want error
	}{
		{"unknown table", CreateCommand{Type: TypeTable, Channel: ChannelCounter, TableID: &missing, Items: line}, table.ErrNotFound},
		{"unknown customer", CreateCommand{Type: TypeCounter, Channel: ChannelCounter, CustomerID: &missing, Items: line}, catalog.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, tc.cmd); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	var n int
	if err := f.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
}

func TestStore_ReadableIDsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	testutil.OpenRegister(t, f.db, "0")

	channels := []Channel{ChannelCounter, ChannelIFood, ChannelWhatsApp, ChannelOther}
	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, CreateCommand{
				Type: TypeCounter, Channel: channels[i%len(channels)],
				Items: []LineInput{{ProductID: f.soda, Quantity: 1}},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	orders, err := f.svc.List(ctx, string(ViewHistory))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != workers {
		t.Fatalf("expected %d orders, got %d", workers, len(orders))
	}
	seen := map[int64]bool{}
	for _, o := range orders {
		if o.ReadableSeq < 1 || o.ReadableSeq > workers || seen[o.ReadableSeq] {
			t.Fatalf("unexpected sequence %d", o.ReadableSeq)
		}
		seen[o.ReadableSeq] = true
		if o.ReadableID != FormatReadableID(Prefix(o.Type, o.Channel), o.ReadableSeq) {
			t.Fatalf("readable id %s does not match seq %d", o.ReadableID, o.ReadableSeq)
		}
	}
}

func TestStore_ConcurrentPayAndCancel(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	testutil.OpenRegister(t, f.db, "0")
	tableID := testutil.SeedTable(t, f.db, "09")

	o, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeTable, Channel: ChannelCounter, TableID: &tableID,
		Items: []LineInput{{ProductID: f.burger, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.svc.Pay(ctx, PayCommand{OrderID: o.ID, Account: register.AccountCash})
			} else {
				_, err = f.svc.Cancel(ctx, CancelCommand{OrderID: o.ID})
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}

	evts, err := f.svc.Events(ctx, o.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 2 {
		t.Fatalf("expected creation plus one terminal event, got %d", len(evts))
	}
	if tbl := f.table(t, tableID); !tbl.Free() {
		t.Fatalf("table not released: %+v", tbl)
	}
}

func TestStore_PayRetagsToOpenRegister(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	registers := register.NewService(register.NewStore(f.db))

	first, err := registers.Open(ctx, register.OpenCommand{OpeningBalance: money("0")})
	if err != nil {
		t.Fatalf("open first: %v", err)
	}
	o, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeCounter, Channel: ChannelCounter,
		Items: []LineInput{{ProductID: f.burger, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := registers.Close(ctx); err != nil {
		t.Fatalf("close first: %v", err)
	}
	second, err := registers.Open(ctx, register.OpenCommand{OpeningBalance: money("0")})
	if err != nil {
		t.Fatalf("open second: %v", err)
	}

	paid, err := f.svc.Pay(ctx, PayCommand{OrderID: o.ID, Account: register.AccountPix})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.CashRegisterID == nil || *paid.CashRegisterID != second.ID || second.ID == first.ID {
		t.Fatalf("order not attached to the open register: %+v", paid.CashRegisterID)
	}

	closed, err := registers.Close(ctx)
	if err != nil {
		t.Fatalf("close second: %v", err)
	}
	if !closed.Pix.Equal(money("25")) {
		t.Fatalf("pix total = %s, want 25", closed.Pix)
	}
}

func TestStore_ListViews(t *testing.T) {
	ctx := context.Background()
	f := setupTestStore(t)
	testutil.OpenRegister(t, f.db, "0")

	delivery, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeDelivery, Channel: ChannelWhatsApp, DeliveryAddress: "Rua D, 4",
		DeliveryFee: money("5"), Items: []LineInput{{ProductID: f.burger, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create delivery: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateCommand{
		Type: TypeCounter, Channel: ChannelCounter,
		Items: []LineInput{{ProductID: f.soda, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create counter: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Advance(ctx, AdvanceCommand{OrderID: delivery.ID}); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	ready, err := f.svc.List(ctx, string(ViewReady))
	if err != nil {
		t.Fatalf("list ready: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != delivery.ID || !ready[0].Total.Equal(money("30")) {
		t.Fatalf("unexpected ready list %+v", ready)
	}

	kds, err := f.svc.List(ctx, string(ViewKitchen))
	if err != nil {
		t.Fatalf("list kds: %v", err)
	}
	if len(kds) != 1 || kds[0].Type != TypeCounter || len(kds[0].Items) != 1 {
		t.Fatalf("unexpected kitchen list %+v", kds)
	}
}
