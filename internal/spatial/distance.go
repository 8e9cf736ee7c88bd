package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the single sphere radius used for every distance in the module
// (IUGG mean radius). Both the haversine and the matrix form use it.
const EarthRadiusKm = 6371.0088

// HaversineKm calculates the great-circle distance between two points in kilometers
// using the Haversine formula. The points are put in a fixed order first so the
// result is bit-for-bit symmetric in its arguments.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 > lat2 || (lat1 == lat2 && lon1 > lon2) {
		lat1, lon1, lat2, lon2 = lat2, lon2, lat1, lon1
	}
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// ValidCoordinate reports whether lat/lon are finite and within WGS84 ranges
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// RoundTo rounds v to the given number of decimal places
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
