// Package geo provides great-circle distance and travel-time estimation.
package geo

import (
	"math"

	"github.com/tanmaydesai/gigflow/pkg/models"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371

// averageSpeedKmh is the fixed speed heuristic behind ETA estimates.
// This is not a routed ETA; it assumes steady travel in a straight line.
const averageSpeedKmh = 40

// DistanceKm returns the great-circle (Haversine) distance in kilometers
// between two coordinates. Symmetric, and zero for identical points.
func DistanceKm(a, b models.LatLng) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// ETAMinutes estimates travel time in minutes for the given distance,
// assuming the fixed average speed.
func ETAMinutes(distanceKm float64) float64 {
	return distanceKm / averageSpeedKmh * 60
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
