// README: Delivery quote and fee decision types.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoCoordinates = errors.New("delivery coordinates unavailable")
	ErrNegativeFee   = errors.New("delivery fee cannot be negative")
)

// FeeSource tells where an order's delivery fee came from.
type FeeSource string

const (
	FeeComputed FeeSource = "computed"
	FeeManual   FeeSource = "manual"
	FeeNone     FeeSource = "none"
)

// Quote is a computed distance-based fee.
type Quote struct {
	DistanceKm float64         `json:"distance_km"`
	PerKm      decimal.Decimal `json:"fee_per_km"`
	Fee        decimal.Decimal `json:"fee"`
	Calculated bool            `json:"calculated"`
}

// Decision is the fee finally attached to an order.
type Decision struct {
	Fee        decimal.Decimal
	DistanceKm float64
	Source     FeeSource
}
