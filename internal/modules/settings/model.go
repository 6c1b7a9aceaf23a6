// README: Restaurant settings keys and typed accessors over the raw string values.
package settings

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"yoake/internal/modules/location"
	"yoake/internal/types"
)

const (
	KeyCompanyLat       = "company_lat"
	KeyCompanyLng       = "company_lng"
	KeyCompanyLink      = "company_link"
	KeyDeliveryFeePerKm = "delivery_fee_per_km"
)

// DefaultFeePerKm applies when no rate is configured.
var DefaultFeePerKm = decimal.NewFromInt(2)

var (
	ErrUnknownKey   = errors.New("unknown settings key")
	ErrInvalidValue = errors.New("invalid settings value")
)

var knownKeys = map[string]bool{
	KeyCompanyLat:       true,
	KeyCompanyLng:       true,
	KeyCompanyLink:      true,
	KeyDeliveryFeePerKm: true,
}

// Values is the raw key/value view as persisted.
type Values map[string]string

// CompanyLocation returns the restaurant origin. Explicit coordinates win over
// coordinates extracted from the company map link.
func (v Values) CompanyLocation() (types.Point, bool) {
	lat, lng := strings.TrimSpace(v[KeyCompanyLat]), strings.TrimSpace(v[KeyCompanyLng])
	if lat != "" && lng != "" {
		if p, err := location.ParsePoint(lat, lng); err == nil {
			return p, true
		}
	}
	return location.PointFromLink(v[KeyCompanyLink])
}

// FeePerKm returns the configured delivery rate or DefaultFeePerKm.
func (v Values) FeePerKm() decimal.Decimal {
	raw := strings.TrimSpace(v[KeyDeliveryFeePerKm])
	if raw == "" {
		return DefaultFeePerKm
	}
	d, err := types.ParseMoney(raw)
	if err != nil || d.IsNegative() {
		return DefaultFeePerKm
	}
	return d
}
