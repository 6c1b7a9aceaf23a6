// README: Delivery destination inputs and resolution results.
package location

import (
	"errors"

	"yoake/internal/types"
)

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrNoCoordinates      = errors.New("no coordinates")
)

// Source records which input produced a resolved point.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceLink     Source = "link"
	SourceAddress  Source = "address"
)

// Destination is what the operator knows about where an order goes.
// Lat/Lng are kept as strings because the customer directory stores them that way.
type Destination struct {
	Lat          string
	Lng          string
	LocationLink string
	Address      string
}

type Resolved struct {
	Point  types.Point
	Source Source
}
