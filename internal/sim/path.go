// Package sim provides a simulated GPS feed: a route generator that produces
// a plausible travel path between two points, and a timed simulator that
// walks the route emitting location samples, standing in for a real
// positioning sensor during testing and demos.
package sim

import (
	"math/rand"

	"github.com/tanmaydesai/gigflow/pkg/models"
)

// routeSteps is the number of interpolated points between start and end.
const routeSteps = 20

// jitterDeg is the maximum per-axis random offset applied to interpolated
// points so the route is not a perfectly straight line.
const jitterDeg = 0.0005

// GenerateRoute returns an ordered route from start to end: the start point,
// 20 jittered intermediate points, and the end point (22 points total).
// Start and end are returned exactly; each intermediate point is the linear
// interpolation at ratio i/21 perturbed by up to ±jitterDeg on each axis.
func GenerateRoute(start, end models.LatLng) []models.LatLng {
	points := make([]models.LatLng, 0, routeSteps+2)
	points = append(points, start)

	for i := 1; i <= routeSteps; i++ {
		ratio := float64(i) / float64(routeSteps+1)
		points = append(points, models.LatLng{
			Lat: start.Lat + (end.Lat-start.Lat)*ratio + jitter(),
			Lng: start.Lng + (end.Lng-start.Lng)*ratio + jitter(),
		})
	}

	points = append(points, end)
	return points
}

func jitter() float64 {
	return (rand.Float64() - 0.5) * 2 * jitterDeg
}
