// README: Table service validates commands and delegates occupancy writes to the store.
package table

import (
	"context"
	"strings"
	"time"

	"yoake/internal/types"
)

type Repository interface {
	List(ctx context.Context) ([]Table, error)
	Get(ctx context.Context, id types.ID) (*Table, error)
	Create(ctx context.Context, t *Table) error
	Seat(ctx context.Context, id types.ID, partySize int) error
	Vacate(ctx context.Context, id types.ID) error
	Mark(ctx context.Context, id types.ID, from, to Status) error
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Table, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Table, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Table, error) {
	number := strings.TrimSpace(cmd.Number)
	if number == "" || cmd.Seats < 1 {
		return nil, ErrBadRequest
	}
	now := time.Now()
	t := &Table{
		ID:        types.NewID(),
		Number:    number,
		Seats:     cmd.Seats,
		Status:    StatusFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Open seats a walk-in party at a free or reserved table.
func (s *Service) Open(ctx context.Context, cmd OpenCommand) (*Table, error) {
	if cmd.TableID == "" || cmd.PartySize < 1 {
		return nil, ErrBadRequest
	}
	if err := s.store.Seat(ctx, cmd.TableID, cmd.PartySize); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, cmd.TableID)
}

// Close frees the table. Closing a free table is a no-op.
func (s *Service) Close(ctx context.Context, id types.ID) (*Table, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	if err := s.store.Vacate(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Reserve(ctx context.Context, id types.ID) (*Table, error) {
	if err := s.store.Mark(ctx, id, StatusFree, StatusReserved); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// RequestBill flags an occupied table as waiting for payment.
func (s *Service) RequestBill(ctx context.Context, id types.ID) (*Table, error) {
	if err := s.store.Mark(ctx, id, StatusOccupied, StatusPaying); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}
