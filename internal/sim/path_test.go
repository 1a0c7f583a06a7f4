package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

var (
	routeStart = models.LatLng{Lat: 12.9716, Lng: 77.5946}
	routeEnd   = models.LatLng{Lat: 12.9352, Lng: 77.6245}
)

func TestGenerateRoute_PointCount(t *testing.T) {
	route := GenerateRoute(routeStart, routeEnd)
	assert.Len(t, route, 22)
}

func TestGenerateRoute_ExactEndpoints(t *testing.T) {
	route := GenerateRoute(routeStart, routeEnd)
	require.Len(t, route, 22)
	assert.Equal(t, routeStart, route[0])
	assert.Equal(t, routeEnd, route[21])
}

func TestGenerateRoute_IntermediatePointsNearStraightLine(t *testing.T) {
	// Jitter is bounded, so every intermediate point must sit within 0.001
	// degrees of the straight-line interpolation at its ratio.
	route := GenerateRoute(routeStart, routeEnd)
	require.Len(t, route, 22)

	for i := 1; i <= 20; i++ {
		ratio := float64(i) / 21
		wantLat := routeStart.Lat + (routeEnd.Lat-routeStart.Lat)*ratio
		wantLng := routeStart.Lng + (routeEnd.Lng-routeStart.Lng)*ratio

		if d := math.Abs(route[i].Lat - wantLat); d > 0.001 {
			t.Errorf("point %d lat deviates %v from straight line", i, d)
		}
		if d := math.Abs(route[i].Lng - wantLng); d > 0.001 {
			t.Errorf("point %d lng deviates %v from straight line", i, d)
		}
	}
}

func TestGenerateRoute_DegenerateRoute(t *testing.T) {
	// Start == end still yields 22 points hovering around the single spot.
	route := GenerateRoute(routeStart, routeStart)
	require.Len(t, route, 22)
	assert.Equal(t, routeStart, route[0])
	assert.Equal(t, routeStart, route[21])
	for _, p := range route {
		assert.InDelta(t, routeStart.Lat, p.Lat, 0.001)
		assert.InDelta(t, routeStart.Lng, p.Lng, 0.001)
	}
}
