// README: Register service tests against an in-memory repository.
package register

import (
	"context"
	"errors"
	"testing"
	"time"

	"yoake/internal/types"
)

type memoryRepo struct {
	open   *Register
	closed []*Register
	sales  []Sale
}

func (m *memoryRepo) OpenOne(_ context.Context, r *Register) error {
	if m.open != nil {
		return ErrAlreadyOpen
	}
	m.open = r
	return nil
}

func (m *memoryRepo) Current(context.Context) (*Register, error) {
	if m.open == nil {
		return nil, ErrNoOpenRegister
	}
	return m.open, nil
}

func (m *memoryRepo) LastClosed(context.Context) (*Register, error) {
	if len(m.closed) == 0 {
		return nil, nil
	}
	return m.closed[len(m.closed)-1], nil
}

func (m *memoryRepo) SalesByAccount(context.Context, types.ID) ([]Sale, error) {
	return m.sales, nil
}

func (m *memoryRepo) CloseOne(_ context.Context, at time.Time) (*Register, error) {
	if m.open == nil {
		return nil, ErrNoOpenRegister
	}
	r := m.open
	totals, closing := Summarize(r.OpeningBalance, m.sales)
	r.Totals = totals
	r.ClosingBalance.Decimal, r.ClosingBalance.Valid = closing, true
	r.Status = StatusClosed
	r.ClosedAt = &at
	m.closed = append(m.closed, r)
	m.open = nil
	return r, nil
}

func (m *memoryRepo) History(context.Context, int) ([]Register, error) {
	out := make([]Register, 0, len(m.closed))
	for i := len(m.closed) - 1; i >= 0; i-- {
		out = append(out, *m.closed[i])
	}
	return out, nil
}

func TestOpen_DefaultsUserAndRejectsSecond(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memoryRepo{})

	r, err := svc.Open(ctx, OpenCommand{OpeningBalance: d("100")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if r.UserID != SystemUser || r.Status != StatusOpen {
		t.Errorf("unexpected register %+v", r)
	}
	if _, err := svc.Open(ctx, OpenCommand{OpeningBalance: d("5"), UserID: "staff1"}); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("expected ErrAlreadyOpen, got %v", err)
	}
}

func TestOpen_RejectsNegativeBalance(t *testing.T) {
	svc := NewService(&memoryRepo{})
	if _, err := svc.Open(context.Background(), OpenCommand{OpeningBalance: d("-1")}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestStatus_ClosedWithoutHistoryReportsZero(t *testing.T) {
	v, err := NewService(&memoryRepo{}).Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if v.Status != StatusClosed || v.LastClosingBalance == nil || !v.LastClosingBalance.IsZero() {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestStatusAndClose(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{sales: []Sale{{Account: AccountCash, Amount: d("50")}, {Account: AccountPix, Amount: d("30")}}}
	svc := NewService(repo)

	if _, err := svc.Open(ctx, OpenCommand{OpeningBalance: d("100"), UserID: "staff1"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	v, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if v.Status != StatusOpen || !v.ExpectedBalance.Equal(d("180")) || !v.Totals.Cash.Equal(d("50")) {
		t.Fatalf("unexpected open view %+v", v)
	}

	closed, err := svc.Close(ctx)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.ClosingBalance.Decimal.Equal(d("180")) || closed.Status != StatusClosed {
		t.Fatalf("unexpected closed register %+v", closed)
	}

	v, err = svc.Status(ctx)
	if err != nil {
		t.Fatalf("status after close: %v", err)
	}
	if v.Status != StatusClosed || !v.LastClosingBalance.Equal(d("180")) {
		t.Fatalf("unexpected closed view %+v", v)
	}

	if _, err := svc.Close(ctx); !errors.Is(err, ErrNoOpenRegister) {
		t.Fatalf("second close: expected ErrNoOpenRegister, got %v", err)
	}
}
