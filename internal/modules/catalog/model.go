// README: Read-only product and customer snapshots consumed by carts and orders.
package catalog

import (
	"errors"

	"github.com/shopspring/decimal"

	"yoake/internal/modules/location"
	"yoake/internal/types"
)

var ErrNotFound = errors.New("catalog entry not found")

type Product struct {
	ID       types.ID        `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Active   bool            `json:"active"`
}

type Customer struct {
	ID           types.ID `json:"id"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Address      string   `json:"address"`
	LocationLink string   `json:"location_link"`
	Lat          string   `json:"lat"`
	Lng          string   `json:"lng"`
}

// Destination is the customer's delivery target as stored in the directory.
func (c *Customer) Destination() location.Destination {
	return location.Destination{
		Lat:          c.Lat,
		Lng:          c.Lng,
		LocationLink: c.LocationLink,
		Address:      c.Address,
	}
}
