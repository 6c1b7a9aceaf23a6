// README: Cash register service: open, status, close and history.
package register

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"yoake/internal/types"
)

const historyLimit = 200

type Repository interface {
	OpenOne(ctx context.Context, r *Register) error
	Current(ctx context.Context) (*Register, error)
	LastClosed(ctx context.Context) (*Register, error)
	SalesByAccount(ctx context.Context, registerID types.ID) ([]Sale, error)
	CloseOne(ctx context.Context, closedAt time.Time) (*Register, error)
	History(ctx context.Context, limit int) ([]Register, error)
}

type Service struct {
	store Repository
	now   func() time.Time
}

func NewService(store Repository) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Open(ctx context.Context, cmd OpenCommand) (*Register, error) {
	if cmd.OpeningBalance.IsNegative() {
		return nil, ErrBadRequest
	}
	user := strings.TrimSpace(cmd.UserID)
	if user == "" {
		user = SystemUser
	}
	r := &Register{
		ID:             types.NewID(),
		OpeningBalance: types.RoundMoney(cmd.OpeningBalance),
		Status:         StatusOpen,
		UserID:         user,
		OpenedAt:       s.now(),
	}
	if err := s.store.OpenOne(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Status reports the open register with live totals, or the last closing
// balance (zero if none) when everything is closed.
func (s *Service) Status(ctx context.Context) (View, error) {
	current, err := s.store.Current(ctx)
	if errors.Is(err, ErrNoOpenRegister) {
		last, err := s.store.LastClosed(ctx)
		if err != nil {
			return View{}, err
		}
		balance := decimal.Zero
		if last != nil && last.ClosingBalance.Valid {
			balance = last.ClosingBalance.Decimal
		}
		return View{Status: StatusClosed, LastClosingBalance: &balance}, nil
	}
	if err != nil {
		return View{}, err
	}

	sales, err := s.store.SalesByAccount(ctx, current.ID)
	if err != nil {
		return View{}, err
	}
	totals, expected := Summarize(current.OpeningBalance, sales)
	return View{
		Status:          StatusOpen,
		Register:        current,
		CurrentTotals:   sales,
		Totals:          &totals,
		ExpectedBalance: &expected,
	}, nil
}

// Current returns the open register or ErrNoOpenRegister.
func (s *Service) Current(ctx context.Context) (*Register, error) {
	return s.store.Current(ctx)
}

func (s *Service) Close(ctx context.Context) (*Register, error) {
	return s.store.CloseOne(ctx, s.now())
}

func (s *Service) History(ctx context.Context) ([]Register, error) {
	return s.store.History(ctx, historyLimit)
}
