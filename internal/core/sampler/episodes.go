package sampler

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/model"
)

// Options control SampleEpisodes.
type Options struct {
	Constraints Constraints
	// UseViewPoints adds ExtraViewPoints viewpoints to episodes with fewer
	// than ViewPointThreshold of them.
	UseViewPoints      bool
	ExtraViewPoints    int
	ViewPointThreshold int
	// SkipUnsatisfiable drops episodes without a start point instead of
	// failing the whole call.
	SkipUnsatisfiable bool
}

func DefaultOptions() Options {
	return Options{
		Constraints:        DefaultConstraints(),
		ExtraViewPoints:    30,
		ViewPointThreshold: 40,
	}
}

// GeodesicRange returns the start-to-goal geodesic bounds for a tier.
func GeodesicRange(tier model.Tier) (min, max float64, err error) {
	switch tier {
	case model.Easy:
		return 2, 4, nil
	case model.Medium:
		return 3, 7, nil
	case model.Hard:
		return 3, 11, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", model.ErrUnknownTier, tier)
}

// SampleEpisodes commits a start pose to every episode that does not already
// have one inside the distance envelope.
func (s *Sampler) SampleEpisodes(ctx context.Context, episodes []model.Episode, opts Options) ([]model.Episode, error) {
	ss := s.WithConstraints(opts.Constraints)
	aug := &Augmenter{Pathfinder: s.Pathfinder}
	c := opts.Constraints

	out := episodes[:0:0]
	for i := range episodes {
		ep := &episodes[i]

		if len(ep.Target.ViewPoints) == 0 {
			seed := ss.Augment
			seed.Radius = 1.0
			seed.MaxTries = c.MaxTries
			vps, err := aug.Sample(ctx, ep.Target.Position, opts.ExtraViewPoints*2, seed)
			if err != nil {
				return nil, err
			}
			ep.Target.ViewPoints = append(ep.Target.ViewPoints, vps...)
			ep.ClosestViewPoint = closestViewPoint(ep.Target.ViewPoints, ep.Target.Position)
		}
		if ep.ClosestViewPoint == nil {
			ep.ClosestViewPoint = closestViewPoint(ep.Target.ViewPoints, ep.Target.Position)
		}

		if withinEnvelope(ep, c) {
			out = append(out, *ep)
			continue
		}

		req := StartRequest{
			SceneID:   ep.SceneID,
			ObjectID:  ep.Target.ObjectID,
			Goals:     viewPointPositions(ep.Target.ViewPoints),
			ObjectPos: ep.Target.Position,
		}
		if ep.ClosestViewPoint != nil {
			req.ClosestViewPoint = *ep.ClosestViewPoint
		}

		start, err := ss.SampleStart(ctx, req)
		if err != nil {
			var unsat *UnsatisfiableError
			if opts.SkipUnsatisfiable && errors.As(err, &unsat) {
				s.log.Warn("dropping episode without start point", "scene", unsat.SceneID, "object", unsat.ObjectID)
				continue
			}
			return nil, err
		}

		rot := geometry.NoisyRotationToPoint(start.Position, ep.Target.Position, s.rng)
		ep.SetStart(start.Position, rot, start.Geodesic, start.Euclidean)

		if opts.UseViewPoints && len(ep.Target.ViewPoints) < opts.ViewPointThreshold {
			extra := ss.Augment
			extra.MaxTries = c.MaxTries
			vps, err := aug.Sample(ctx, ep.Target.ViewPoints[0].Position(), opts.ExtraViewPoints, extra)
			if err != nil {
				return nil, err
			}
			ep.Target.ViewPoints = append(ep.Target.ViewPoints, vps...)
		}
		out = append(out, *ep)
	}
	return out, nil
}

// Prepare attaches scene viewpoints and pre-existing start candidates to
// episodes and then samples start points with the tier's geodesic range.
func (s *Sampler) Prepare(ctx context.Context, episodes []model.Episode, lookups model.Lookups, tier model.Tier, useViewPoints bool) ([]model.Episode, error) {
	if len(episodes) == 0 {
		return nil, errors.New("no episodes to prepare")
	}
	minGeo, maxGeo, err := GeodesicRange(tier)
	if err != nil {
		return nil, err
	}

	for i := range episodes {
		ep := &episodes[i]
		id := model.ObjectID(ep.Target.ObjectID)

		if useViewPoints {
			ep.Target.ViewPoints = append([]model.ViewPoint(nil), lookups.ViewPoints[id]...)
			ep.ClosestViewPoint = closestViewPoint(ep.Target.ViewPoints, ep.Target.Position)
		}

		candidates := lookups.Starts[id]
		if len(candidates) == 0 {
			continue
		}
		pick := candidates[s.rng.IntN(len(candidates))]
		ref := ep.Target.Position
		if ep.ClosestViewPoint != nil {
			ref = *ep.ClosestViewPoint
		}
		pos, rot := pick.Position, pick.Rotation
		euclid := geometry.Distance(pos, ref)
		ep.StartPosition = &pos
		ep.StartRotation = &rot
		ep.EuclideanDistance = &euclid
	}

	opts := DefaultOptions()
	opts.Constraints.MaxTries = 200
	opts.Constraints.MinGeodesic = minGeo
	opts.Constraints.MaxGeodesic = maxGeo
	opts.Constraints.MaxHeightDiff = 0.5
	opts.UseViewPoints = useViewPoints
	opts.ExtraViewPoints = 15
	opts.SkipUnsatisfiable = s.SkipUnsatisfiable

	out, err := s.SampleEpisodes(ctx, episodes, opts)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ClosestViewPoint = nil
	}
	return out, nil
}

func withinEnvelope(ep *model.Episode, c Constraints) bool {
	if !ep.HasStart() {
		return false
	}
	euclid, geo := math.Inf(1), math.Inf(1)
	if ep.EuclideanDistance != nil {
		euclid = *ep.EuclideanDistance
	}
	if ep.GeodesicDistance != nil {
		geo = *ep.GeodesicDistance
	}
	return c.inBounds(geo, euclid)
}

func closestViewPoint(vps []model.ViewPoint, target geometry.Vec3) *geometry.Vec3 {
	positions := viewPointPositions(vps)
	i := geometry.Closest(positions, target)
	if i < 0 {
		return nil
	}
	p := positions[i]
	return &p
}

func viewPointPositions(vps []model.ViewPoint) []geometry.Vec3 {
	out := make([]geometry.Vec3, len(vps))
	for i, vp := range vps {
		out[i] = vp.Position()
	}
	return out
}
