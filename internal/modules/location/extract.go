// README: Coordinate extraction from pasted map links and free text.
package location

import (
	"fmt"
	"regexp"
	"strings"

	"googlemaps.github.io/maps"

	"yoake/internal/types"
)

// linkPatterns are tried in order; the first match wins.
var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`q=(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`search/(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`ll=(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`),
}

var barePair = regexp.MustCompile(`^\s*(-?\d+\.\d+)\s*,\s*(-?\d+\.\d+)\s*$`)

// ExtractCoordinates finds a latitude/longitude pair in text. It never fails:
// unrecognized input yields ok == false.
func ExtractCoordinates(text string) (lat, lng string, ok bool) {
	for _, re := range linkPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// ParsePoint converts extracted decimal strings into a validated point.
func ParsePoint(lat, lng string) (types.Point, error) {
	ll, err := maps.ParseLatLng(strings.TrimSpace(lat) + "," + strings.TrimSpace(lng))
	if err != nil {
		return types.Point{}, fmt.Errorf("parse coordinates: %w", err)
	}
	p := types.Point{Lat: ll.Lat, Lng: ll.Lng}
	if !ValidPoint(p) {
		return types.Point{}, ErrInvalidCoordinates
	}
	return p, nil
}

// PointFromLink extracts and parses coordinates from a map link.
func PointFromLink(link string) (types.Point, bool) {
	lat, lng, ok := ExtractCoordinates(link)
	if !ok {
		return types.Point{}, false
	}
	p, err := ParsePoint(lat, lng)
	if err != nil {
		return types.Point{}, false
	}
	return p, true
}

func pointFromPair(text string) (types.Point, bool) {
	m := barePair.FindStringSubmatch(text)
	if m == nil {
		return types.Point{}, false
	}
	p, err := ParsePoint(m[1], m[2])
	if err != nil {
		return types.Point{}, false
	}
	return p, true
}
