// README: Settings service validates updates before they reach the store.
package settings

import (
	"context"
	"fmt"
	"strings"

	"yoake/internal/modules/location"
	"yoake/internal/types"
)

type Repository interface {
	All(ctx context.Context) (Values, error)
	Put(ctx context.Context, values Values) error
}

type Service struct {
	store Repository
}

func NewService(store Repository) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context) (Values, error) {
	return s.store.All(ctx)
}

// Update writes the given keys. Unknown keys and malformed values reject the
// whole update.
func (s *Service) Update(ctx context.Context, values Values) (Values, error) {
	clean := make(Values, len(values))
	for k, v := range values {
		if !knownKeys[k] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
		v = strings.TrimSpace(v)
		if err := validate(k, v); err != nil {
			return nil, err
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return s.store.All(ctx)
	}
	if err := s.store.Put(ctx, clean); err != nil {
		return nil, err
	}
	return s.store.All(ctx)
}

func validate(key, value string) error {
	if value == "" {
		return nil
	}
	switch key {
	case KeyCompanyLat, KeyCompanyLng:
		lat, lng := value, "0.0"
		if key == KeyCompanyLng {
			lat, lng = "0.0", value
		}
		if _, err := location.ParsePoint(lat, lng); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidValue, key)
		}
	case KeyDeliveryFeePerKm:
		d, err := types.ParseMoney(value)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%w: %s", ErrInvalidValue, key)
		}
	}
	return nil
}
