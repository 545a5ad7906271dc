// Package sampler places navigation episodes on a navmesh. It draws start
// positions under height and distance constraints and adds viewpoints around
// goal objects.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/agenthands/personav/internal/core/navmesh"
)

type Constraints struct {
	MaxTries             int     `toml:"max_tries"`
	MinGeodesic          float64 `toml:"min_geodesic"`
	MaxGeodesic          float64 `toml:"max_geodesic"`
	MaxEuclidean         float64 `toml:"max_euclidean"`
	MaxHeightDiff        float64 `toml:"max_height_diff"`
	MaxClosestHeightDiff float64 `toml:"max_closest_height_diff"`
}

func DefaultConstraints() Constraints {
	return Constraints{
		MaxTries:             100,
		MinGeodesic:          3.0,
		MaxGeodesic:          18.0,
		MaxEuclidean:         15.0,
		MaxHeightDiff:        0.5,
		MaxClosestHeightDiff: 1.0,
	}
}

func (c Constraints) inBounds(geo, euclid float64) bool {
	return euclid <= c.MaxEuclidean && geo >= c.MinGeodesic && geo <= c.MaxGeodesic
}

// State is a step of the start-point search.
type State int

const (
	SearchingStrict State = iota
	SearchingRelaxed
	SearchingHeightOnly
	Accepted
	Failed
)

func (s State) String() string {
	switch s {
	case SearchingStrict:
		return "searching_strict"
	case SearchingRelaxed:
		return "searching_relaxed"
	case SearchingHeightOnly:
		return "searching_height_only"
	case Accepted:
		return "accepted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StartRequest describes one episode to place. Goals are the candidate goal
// positions, one per viewpoint.
type StartRequest struct {
	SceneID          string
	ObjectID         string
	Goals            []geometry.Vec3
	ObjectPos        geometry.Vec3
	ClosestViewPoint geometry.Vec3
}

// StartPoint is an accepted start position. Tier is the search state that
// produced it.
type StartPoint struct {
	Position  geometry.Vec3
	Geodesic  float64
	Euclidean float64
	Tier      State
}

// UnsatisfiableError reports that no start position satisfying even the
// height constraints could be found.
type UnsatisfiableError struct {
	SceneID  string
	ObjectID string
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("no navigable start point for scene %s object %s", e.SceneID, e.ObjectID)
}

type Sampler struct {
	Pathfinder  navmesh.Pathfinder
	Constraints Constraints
	Augment     AugmentOptions
	// SkipUnsatisfiable makes Prepare drop episodes without a start point.
	SkipUnsatisfiable bool

	rng *rand.Rand
	log *slog.Logger
}

func New(pf navmesh.Pathfinder, rng *rand.Rand, log *slog.Logger) *Sampler {
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		Pathfinder:  pf,
		Constraints: DefaultConstraints(),
		Augment:     DefaultAugmentOptions(),
		rng:         rng,
		log:         log,
	}
}

// WithConstraints returns a copy of s using c.
func (s *Sampler) WithConstraints(c Constraints) *Sampler {
	cp := *s
	cp.Constraints = c
	return &cp
}

type candidate struct {
	pos    geometry.Vec3
	geo    float64
	euclid float64
	found  bool
}

func (c *candidate) offer(pos geometry.Vec3, geo, euclid float64) {
	if !c.found || geo > c.geo {
		*c = candidate{pos: pos, geo: geo, euclid: euclid, found: true}
	}
}

type search struct {
	s      *Sampler
	req    StartRequest
	best   candidate
	chosen candidate
	tier   State
}

// SampleStart searches for a start position for req. The strict tier accepts
// the first point inside all bounds. The relaxed tier falls back to the
// height-valid reachable point with the largest geodesic distance over all
// goals. The height-only tier draws MaxTries more points against the first
// goal and keeps the farthest reachable one.
func (s *Sampler) SampleStart(ctx context.Context, req StartRequest) (StartPoint, error) {
	if len(req.Goals) == 0 {
		return StartPoint{}, &UnsatisfiableError{SceneID: req.SceneID, ObjectID: req.ObjectID}
	}

	m := &search{s: s, req: req}
	state := SearchingStrict
	for {
		var err error
		switch state {
		case SearchingStrict:
			state, err = m.strict(ctx)
		case SearchingRelaxed:
			state = m.relaxed()
		case SearchingHeightOnly:
			state, err = m.heightOnly(ctx)
		case Accepted:
			return StartPoint{
				Position:  m.chosen.pos,
				Geodesic:  m.chosen.geo,
				Euclidean: m.chosen.euclid,
				Tier:      m.tier,
			}, nil
		case Failed:
			return StartPoint{}, &UnsatisfiableError{SceneID: req.SceneID, ObjectID: req.ObjectID}
		}
		if err != nil {
			return StartPoint{}, err
		}
	}
}

func (m *search) strict(ctx context.Context) (State, error) {
	c := m.s.Constraints
	for _, goal := range m.req.Goals {
		for i := 0; i < c.MaxTries; i++ {
			pos, geo, ok, err := m.draw(ctx, goal)
			if err != nil {
				return Failed, err
			}
			if !ok {
				continue
			}
			euclid := geometry.PlanarDistance(pos, m.req.ObjectPos)
			if c.inBounds(geo, euclid) {
				m.chosen = candidate{pos: pos, geo: geo, euclid: euclid, found: true}
				m.tier = SearchingStrict
				return Accepted, nil
			}
			m.best.offer(pos, geo, euclid)
		}
	}
	return SearchingRelaxed, nil
}

func (m *search) relaxed() State {
	if !m.best.found {
		return SearchingHeightOnly
	}
	m.chosen = m.best
	m.tier = SearchingRelaxed
	m.s.log.Warn("start point outside distance bounds",
		"scene", m.req.SceneID, "object", m.req.ObjectID,
		"geodesic", m.chosen.geo, "euclidean", m.chosen.euclid)
	return Accepted
}

func (m *search) heightOnly(ctx context.Context) (State, error) {
	goal := m.req.Goals[0]
	var best candidate
	for i := 0; i < m.s.Constraints.MaxTries; i++ {
		pos, geo, ok, err := m.draw(ctx, goal)
		if err != nil {
			return Failed, err
		}
		if ok {
			best.offer(pos, geo, geometry.PlanarDistance(pos, m.req.ObjectPos))
		}
	}
	if !best.found {
		return Failed, nil
	}
	m.chosen = best
	m.tier = SearchingHeightOnly
	m.s.log.Warn("start point sampled with height constraints only",
		"scene", m.req.SceneID, "object", m.req.ObjectID, "geodesic", best.geo)
	return Accepted, nil
}

// draw samples one navigable point and checks it against both height
// constraints and reachability of goal.
func (m *search) draw(ctx context.Context, goal geometry.Vec3) (geometry.Vec3, float64, bool, error) {
	c := m.s.Constraints
	pos, err := m.s.Pathfinder.RandomNavigablePoint(ctx)
	if err != nil {
		return geometry.Vec3{}, 0, false, fmt.Errorf("failed to sample navigable point: %w", err)
	}
	if math.Abs(pos.Y-goal.Y) > c.MaxHeightDiff {
		return pos, 0, false, nil
	}
	if math.Abs(pos.Y-m.req.ClosestViewPoint.Y) > c.MaxClosestHeightDiff {
		return pos, 0, false, nil
	}
	geo, err := m.s.Pathfinder.GeodesicDistance(ctx, pos, goal)
	if err != nil {
		return geometry.Vec3{}, 0, false, fmt.Errorf("failed to compute geodesic distance: %w", err)
	}
	if math.IsInf(geo, 1) || math.IsNaN(geo) {
		return pos, 0, false, nil
	}
	return pos, geo, true, nil
}
