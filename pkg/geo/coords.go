// Package geo validates and canonicalizes map coordinates.
//
// Longitudes coming from an interactive map are not bounded: dragging a pin
// across the antimeridian, or clicking on one of the repeated "world copies",
// yields values such as -180.05 or 539.9. Everything stored by wayfarer goes
// through NormalizeLongitude first so that one physical location has exactly
// one representation in (-180, 180].
package geo

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	earthRadiusK = 6371.0088 // mean Earth radius in km
)

// ErrInvalidCoordinate is returned when a latitude or longitude is NaN or infinite.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a canonical latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lng)
}

// NormalizeLongitude maps any longitude into (-180, 180].
//
// The wraparound is ((lng + 180) mod 360 + 360) mod 360 - 180, which lands in
// [-180, 180); the -180 representative is then reported as 180. Normalizing a
// normalized value returns it unchanged. Non-finite input yields NaN.
func NormalizeLongitude(lng float64) float64 {
	if math.IsNaN(lng) || math.IsInf(lng, 0) {
		return math.NaN()
	}
	wrapped := math.Mod(math.Mod(lng+180, 360)+360, 360) - 180
	if wrapped <= -180 {
		return 180
	}
	return wrapped
}

// IsValidCoordinate reports whether both values are finite numbers.
// Latitude range is not checked here; see ClampLatitude.
func IsValidCoordinate(lat, lng float64) bool {
	return isFinite(lat) && isFinite(lng)
}

// ClampLatitude bounds lat to [-90, 90].
func ClampLatitude(lat float64) float64 {
	return math.Max(MinLatitude, math.Min(MaxLatitude, lat))
}

// NewPoint validates a raw map position and returns its canonical form.
// Both pin capture paths (a direct click/entry and the end of a drag) go
// through here, so they agree on the stored value for the same place.
func NewPoint(lat, lng float64) (Point, error) {
	if !IsValidCoordinate(lat, lng) {
		return Point{}, fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidCoordinate, lat, lng)
	}
	return Point{Lat: ClampLatitude(lat), Lng: NormalizeLongitude(lng)}, nil
}

// LongitudeDelta returns the shortest signed angular difference to - from,
// in (-180, 180].
func LongitudeDelta(from, to float64) float64 {
	return NormalizeLongitude(to - from)
}

// Distance returns the great-circle distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := LongitudeDelta(a.Lng, b.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusK * math.Asin(math.Min(1, math.Sqrt(h)))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
