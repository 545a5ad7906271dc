package sampler

import (
	"context"
	"testing"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/core/navmesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func episodeAt(id string, pos geometry.Vec3, vps ...geometry.Vec3) model.Episode {
	ep := model.Episode{SceneID: "scene", ObjectCategory: "bed", Target: model.Instance{ObjectID: id, Position: pos}}
	for _, p := range vps {
		ep.Target.ViewPoints = append(ep.Target.ViewPoints, model.NewViewPoint(p, geometry.YawQuaternion(0)))
	}
	return ep
}

func TestSampleEpisodesSeedsViewPoints(t *testing.T) {
	ctx := context.Background()
	s := New(floorMesh(11), newRNG(11), nil)

	opts := DefaultOptions()
	opts.ExtraViewPoints = 3
	opts.Constraints.MinGeodesic = 2
	opts.Constraints.MaxGeodesic = 11

	out, err := s.SampleEpisodes(ctx, []model.Episode{episodeAt("bed_1", geometry.V(10, 0.5, 10))}, opts)
	require.NoError(t, err)
	require.Len(t, out, 1)

	ep := out[0]
	assert.Len(t, ep.Target.ViewPoints, 6)
	require.True(t, ep.HasStart())
	require.NotNil(t, ep.StartRotation)
	geo, ok := ep.Geodesic()
	require.True(t, ok)
	assert.GreaterOrEqual(t, geo, 2.0)
	assert.LessOrEqual(t, geo, 11.0)
	for _, vp := range ep.Target.ViewPoints {
		assert.LessOrEqual(t, geometry.PlanarDistance(vp.Position(), ep.Target.Position), 1.0+1e-9)
	}
}

func TestSampleEpisodesSkipsEpisodesInsideEnvelope(t *testing.T) {
	ctx := context.Background()
	pf := &MockPathfinder{Points: []geometry.Vec3{geometry.V(0, 0, 0)}}
	s := New(pf, newRNG(1), nil)

	ep := episodeAt("bed_1", geometry.V(0, 0, 0), geometry.V(1, 0, 1))
	ep.SetStart(geometry.V(5, 0, 5), geometry.YawQuaternion(1), 5, 5)

	out, err := s.SampleEpisodes(ctx, []model.Episode{ep}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, pf.Draws)
	assert.Equal(t, geometry.V(5, 0, 5), *out[0].StartPosition)
}

func TestSampleEpisodesAugmentsBelowThreshold(t *testing.T) {
	ctx := context.Background()
	s := New(floorMesh(5), newRNG(5), nil)

	opts := DefaultOptions()
	opts.UseViewPoints = true
	opts.ExtraViewPoints = 4
	opts.Constraints.MinGeodesic = 1

	ep := episodeAt("bed_1", geometry.V(10, 0.5, 10), geometry.V(9, 0, 10))
	out, err := s.SampleEpisodes(ctx, []model.Episode{ep}, opts)
	require.NoError(t, err)
	assert.Len(t, out[0].Target.ViewPoints, 5)
}

func TestSampleEpisodesUnsatisfiablePolicy(t *testing.T) {
	ctx := context.Background()
	newSampler := func() *Sampler {
		return New(&MockPathfinder{Points: []geometry.Vec3{geometry.V(0, 10, 0)}}, newRNG(1), nil)
	}
	eps := func() []model.Episode {
		return []model.Episode{
			episodeAt("bed_1", geometry.V(0, 0, 0), geometry.V(1, 0, 1)),
		}
	}
	opts := DefaultOptions()
	opts.Constraints.MaxTries = 5

	_, err := newSampler().SampleEpisodes(ctx, eps(), opts)
	var unsat *UnsatisfiableError
	require.ErrorAs(t, err, &unsat)
	assert.Equal(t, "bed_1", unsat.ObjectID)

	opts.SkipUnsatisfiable = true
	out, err := newSampler().SampleEpisodes(ctx, eps(), opts)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPrepareUsesLookupsAndTierRange(t *testing.T) {
	ctx := context.Background()
	s := New(floorMesh(21), newRNG(21), nil)

	vp := model.NewViewPoint(geometry.V(10, 0, 9), geometry.YawQuaternion(0))
	lookups := model.Lookups{
		ViewPoints: map[model.ObjectID][]model.ViewPoint{"bed_1": {vp}},
		Starts: map[model.ObjectID][]model.StartCandidate{
			"bed_1": {{Position: geometry.V(2, 0, 2), Rotation: geometry.YawQuaternion(0.5)}},
		},
	}
	eps := []model.Episode{episodeAt("bed_1", geometry.V(10, 0.5, 10))}

	out, err := s.Prepare(ctx, eps, lookups, model.Easy, true)
	require.NoError(t, err)
	require.Len(t, out, 1)

	ep := out[0]
	assert.Nil(t, ep.ClosestViewPoint)
	assert.Equal(t, vp, ep.Target.ViewPoints[0])
	assert.Len(t, ep.Target.ViewPoints, 16)

	geo, ok := ep.Geodesic()
	require.True(t, ok)
	assert.GreaterOrEqual(t, geo, 2.0)
	assert.LessOrEqual(t, geo, 4.0)
	assert.LessOrEqual(t, *ep.EuclideanDistance, 15.0)
}

func TestPrepareRejectsBadInput(t *testing.T) {
	s := New(floorMesh(1), newRNG(1), nil)

	_, err := s.Prepare(context.Background(), nil, model.Lookups{}, model.Easy, true)
	assert.Error(t, err)

	_, err = s.Prepare(context.Background(), []model.Episode{episodeAt("a", geometry.V(0, 0, 0))}, model.Lookups{}, model.Tier("extreme"), true)
	assert.ErrorIs(t, err, model.ErrUnknownTier)
}

func TestGeodesicRange(t *testing.T) {
	cases := map[model.Tier][2]float64{
		model.Easy:   {2, 4},
		model.Medium: {3, 7},
		model.Hard:   {3, 11},
	}
	for tier, want := range cases {
		lo, hi, err := GeodesicRange(tier)
		require.NoError(t, err)
		assert.Equal(t, want[0], lo, tier)
		assert.Equal(t, want[1], hi, tier)
	}
}

var _ navmesh.Pathfinder = (*MockPathfinder)(nil)
