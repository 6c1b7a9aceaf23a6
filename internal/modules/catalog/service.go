// README: Catalog service; thin read facade over the store.
package catalog

import (
	"context"
	"strings"

	"yoake/internal/types"
)

type Repository interface {
	Products(ctx context.Context, ids []types.ID) (map[types.ID]Product, error)
	ListProducts(ctx context.Context, category string) ([]Product, error)
	Customer(ctx context.Context, id types.ID) (*Customer, error)
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service {
	return &Service{store: store}
}

// Products looks up ids in one query. Malformed ids are treated as unknown.
func (s *Service) Products(ctx context.Context, ids []types.ID) (map[types.ID]Product, error) {
	valid := make([]types.ID, 0, len(ids))
	for _, id := range ids {
		if types.ValidID(string(id)) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return map[types.ID]Product{}, nil
	}
	return s.store.Products(ctx, valid)
}

func (s *Service) Product(ctx context.Context, id types.ID) (*Product, error) {
	found, err := s.Products(ctx, []types.ID{id})
	if err != nil {
		return nil, err
	}
	p, ok := found[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *Service) ListProducts(ctx context.Context, category string) ([]Product, error) {
	return s.store.ListProducts(ctx, strings.TrimSpace(category))
}

func (s *Service) Customer(ctx context.Context, id types.ID) (*Customer, error) {
	if !types.ValidID(string(id)) {
		return nil, ErrNotFound
	}
	return s.store.Customer(ctx, id)
}
