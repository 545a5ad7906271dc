package sampler

import (
	"context"
	"math"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/navmesh"
)

// MockPathfinder replays a fixed list of random points and answers geodesic
// queries with a function.
type MockPathfinder struct {
	Points   []geometry.Vec3
	Geodesic func(a, b geometry.Vec3) float64
	Err      error

	next  int
	Draws int
}

func (m *MockPathfinder) RandomNavigablePoint(ctx context.Context) (geometry.Vec3, error) {
	if m.Err != nil {
		return geometry.Vec3{}, m.Err
	}
	p := m.Points[m.next%len(m.Points)]
	m.next++
	m.Draws++
	return p, nil
}

func (m *MockPathfinder) RandomNavigablePointNear(ctx context.Context, center geometry.Vec3, radius float64, maxTries int) (geometry.Vec3, bool, error) {
	return geometry.Vec3{}, false, nil
}

func (m *MockPathfinder) GeodesicDistance(ctx context.Context, a, b geometry.Vec3) (float64, error) {
	if m.Geodesic == nil {
		return geometry.PlanarDistance(a, b), nil
	}
	return m.Geodesic(a, b), nil
}

func (m *MockPathfinder) CastRay(ctx context.Context, origin, direction geometry.Vec3) (navmesh.Hit, bool, error) {
	return navmesh.Hit{}, false, nil
}

func unreachable(a, b geometry.Vec3) float64 { return math.Inf(1) }
