// README: Destination resolution; explicit coordinates, then link extraction, then a bare "lat,lng" address.
package location

import "strings"

// Resolve returns the best known point for a destination. It never geocodes
// street addresses.
func Resolve(d Destination) (Resolved, error) {
	if strings.TrimSpace(d.Lat) != "" && strings.TrimSpace(d.Lng) != "" {
		p, err := ParsePoint(d.Lat, d.Lng)
		if err == nil {
			return Resolved{Point: p, Source: SourceExplicit}, nil
		}
	}
	if p, ok := PointFromLink(d.LocationLink); ok {
		return Resolved{Point: p, Source: SourceLink}, nil
	}
	if p, ok := PointFromLink(d.Address); ok {
		return Resolved{Point: p, Source: SourceLink}, nil
	}
	if p, ok := pointFromPair(d.Address); ok {
		return Resolved{Point: p, Source: SourceAddress}, nil
	}
	return Resolved{}, ErrNoCoordinates
}
