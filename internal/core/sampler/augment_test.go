package sampler

import (
	"context"
	"math"
	"testing"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/navmesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAugmenterFacesTarget(t *testing.T) {
	ctx := context.Background()
	a := &Augmenter{Pathfinder: floorMesh(4)}
	target := geometry.V(10, 0.5, 10)

	vps, err := a.Sample(ctx, target, 5, DefaultAugmentOptions())
	require.NoError(t, err)
	require.Len(t, vps, 5)

	for _, vp := range vps {
		p := vp.Position()
		assert.LessOrEqual(t, geometry.PlanarDistance(p, target), 1.5+1e-9)
		want := geometry.RotationToPoint(p, target)
		assert.Equal(t, want, vp.AgentState.Rotation)
		assert.Zero(t, vp.AgentState.Rotation.Imag)
		assert.Zero(t, vp.AgentState.Rotation.Kmag)
	}
}

// Everything west of x=9.8 is behind a wall, so only points east of it see
// the target.
func TestAugmenterPrefersVisiblePoints(t *testing.T) {
	ctx := context.Background()
	wall := navmesh.Box{Min: geometry.V(9.7, -1, 0), Max: geometry.V(9.8, 3, 20)}
	mesh := navmesh.NewStaticMesh(9, []navmesh.Region{{MinX: 0, MaxX: 20, MinZ: 0, MaxZ: 20, Y: 0}}, []navmesh.Box{wall})
	a := &Augmenter{Pathfinder: mesh}

	vps, err := a.Sample(ctx, geometry.V(10, 0.5, 10), 10, DefaultAugmentOptions())
	require.NoError(t, err)
	require.Len(t, vps, 10)
	for _, vp := range vps {
		assert.Greater(t, vp.Position().X, 9.7)
	}
}

func TestAugmenterKeepsOccludedFallback(t *testing.T) {
	ctx := context.Background()
	box := navmesh.Box{Min: geometry.V(-100, -100, -100), Max: geometry.V(100, 100, 100)}
	mesh := navmesh.NewStaticMesh(2, []navmesh.Region{{MinX: 0, MaxX: 20, MinZ: 0, MaxZ: 20, Y: 0}}, []navmesh.Box{box})
	a := &Augmenter{Pathfinder: mesh}

	opts := DefaultAugmentOptions()
	opts.MaxTries = 5
	vps, err := a.Sample(ctx, geometry.V(10, 0.5, 10), 3, opts)
	require.NoError(t, err)
	assert.Len(t, vps, 3)
}

func TestAugmenterSkipsUnusablePoints(t *testing.T) {
	ctx := context.Background()
	a := &Augmenter{Pathfinder: floorMesh(1)}

	vps, err := a.Sample(ctx, geometry.V(500, 0, 500), 4, DefaultAugmentOptions())
	require.NoError(t, err)
	assert.Empty(t, vps)
}

type nanPathfinder struct{ *MockPathfinder }

func (nanPathfinder) RandomNavigablePointNear(ctx context.Context, center geometry.Vec3, radius float64, maxTries int) (geometry.Vec3, bool, error) {
	return geometry.V(math.NaN(), 0, 0), true, nil
}

func TestAugmenterRejectsNaN(t *testing.T) {
	a := &Augmenter{Pathfinder: nanPathfinder{&MockPathfinder{}}}
	vps, err := a.Sample(context.Background(), geometry.V(0, 0, 0), 2, DefaultAugmentOptions())
	require.NoError(t, err)
	assert.Empty(t, vps)
}
