// README: Pricing service computes per-kilometre delivery quotes from settings.
package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"yoake/internal/modules/location"
	"yoake/internal/modules/settings"
	"yoake/internal/types"
)

type SettingsReader interface {
	Get(ctx context.Context) (settings.Values, error)
}

type Service struct {
	settings SettingsReader
}

func NewService(settings SettingsReader) *Service {
	return &Service{settings: settings}
}

// FeeForDistance is round(distanceKm * perKm, 2).
func FeeForDistance(distanceKm float64, perKm decimal.Decimal) decimal.Decimal {
	return types.RoundMoney(decimal.NewFromFloat(distanceKm).Mul(perKm))
}

// Quote prices a delivery to dest from the configured company location.
func (s *Service) Quote(ctx context.Context, dest types.Point) (Quote, error) {
	values, err := s.settings.Get(ctx)
	if err != nil {
		return Quote{}, err
	}
	origin, ok := values.CompanyLocation()
	if !ok {
		return Quote{}, ErrNoCoordinates
	}
	if !location.ValidPoint(dest) {
		return Quote{}, ErrNoCoordinates
	}
	km := location.RoadDistanceKm(origin, dest)
	perKm := values.FeePerKm()
	return Quote{
		DistanceKm: km,
		PerKm:      perKm,
		Fee:        FeeForDistance(km, perKm),
		Calculated: true,
	}, nil
}

// QuoteDestination resolves the destination first. Unresolvable input yields
// ErrNoCoordinates, never a zero-fee quote.
func (s *Service) QuoteDestination(ctx context.Context, d location.Destination) (Quote, error) {
	resolved, err := location.Resolve(d)
	if errors.Is(err, location.ErrNoCoordinates) {
		return Quote{}, ErrNoCoordinates
	}
	if err != nil {
		return Quote{}, err
	}
	return s.Quote(ctx, resolved.Point)
}

// Decide picks the fee for an order. A manual override always wins; otherwise a
// calculated quote is used; otherwise the fee is zero and marked FeeNone.
func Decide(quote *Quote, override *decimal.Decimal) (Decision, error) {
	if override != nil {
		if override.IsNegative() {
			return Decision{}, ErrNegativeFee
		}
		d := Decision{Fee: types.RoundMoney(*override), Source: FeeManual}
		if quote != nil && quote.Calculated {
			d.DistanceKm = quote.DistanceKm
		}
		return d, nil
	}
	if quote != nil && quote.Calculated {
		return Decision{Fee: quote.Fee, DistanceKm: quote.DistanceKm, Source: FeeComputed}, nil
	}
	return Decision{Fee: decimal.Zero, Source: FeeNone}, nil
}
