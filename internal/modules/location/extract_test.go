package location

import (
	"testing"

	"yoake/internal/types"
)

func TestExtractCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		lat    string
		lng    string
		wantOK bool
	}{
		{"at sign", "https://www.google.com/maps/@-3.7319,-38.5267,15z", "-3.7319", "-38.5267", true},
		{"query param", "https://maps.google.com/?q=-3.7319,-38.5267", "-3.7319", "-38.5267", true},
		{"search path", "https://www.google.com/maps/search/-3.70,-38.50?entry=ttu", "-3.70", "-38.50", true},
		{"ll param", "https://maps.google.com/maps?ll=10.5,20.25&z=16", "10.5", "20.25", true},
		{"data segment", "https://www.google.com/maps/place/X/data=!3d-3.7319!4d-38.5267", "-3.7319", "-38.5267", true},
		{"first pattern wins", "https://www.google.com/maps/place/@1.5,2.5/data=!3d-3.7!4d-38.5", "1.5", "2.5", true},
		{"integers are not matched", "https://maps.google.com/?q=3,38", "", "", false},
		{"plain text", "Rua das Flores, 123", "", "", false},
		{"empty", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng, ok := ExtractCoordinates(tt.text)
			if ok != tt.wantOK || lat != tt.lat || lng != tt.lng {
				t.Errorf("ExtractCoordinates(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.text, lat, lng, ok, tt.lat, tt.lng, tt.wantOK)
			}
		})
	}
}

func TestPointFromLink(t *testing.T) {
	p, ok := PointFromLink("https://maps.google.com/?q=-3.7319,-38.5267")
	if !ok {
		t.Fatal("expected coordinates")
	}
	if p != (types.Point{Lat: -3.7319, Lng: -38.5267}) {
		t.Errorf("unexpected point %+v", p)
	}
	if _, ok := PointFromLink("https://maps.google.com/?q=95.0,10.0"); ok {
		t.Error("out of range latitude should be rejected")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		dest       Destination
		wantSource Source
		wantErr    error
	}{
		{"explicit wins", Destination{Lat: "-3.7", Lng: "-38.5", LocationLink: "https://maps.google.com/?q=1.0,2.0"}, SourceExplicit, nil},
		{"bad explicit falls back to link", Destination{Lat: "x", Lng: "y", LocationLink: "https://maps.google.com/?q=1.0,2.0"}, SourceLink, nil},
		{"link", Destination{LocationLink: "https://www.google.com/maps/@1.0,2.0,17z"}, SourceLink, nil},
		{"link pasted as address", Destination{Address: "https://maps.google.com/?q=1.0,2.0"}, SourceLink, nil},
		{"bare pair address", Destination{Address: " -3.7319 , -38.5267 "}, SourceAddress, nil},
		{"street address", Destination{Address: "Rua das Flores, 123"}, "", ErrNoCoordinates},
		{"nothing", Destination{}, "", ErrNoCoordinates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.dest)
			if err != tt.wantErr {
				t.Fatalf("Resolve() err = %v, want %v", err, tt.wantErr)
			}
			if got.Source != tt.wantSource {
				t.Errorf("Resolve() source = %q, want %q", got.Source, tt.wantSource)
			}
		})
	}
}
