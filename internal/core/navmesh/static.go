package navmesh

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"github.com/agenthands/personav/internal/core/geometry"
)

// Region is a flat rectangle of walkable floor at height Y.
type Region struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
	Y          float64
}

func (r Region) contains(x, z float64) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Box is an axis-aligned obstacle used for raycasts.
type Box struct {
	Min, Max geometry.Vec3
}

// StepTolerance is how far above or below a floor a point may be and still
// count as standing on it.
const StepTolerance = 0.5

// StaticMesh is a deterministic navmesh made of disconnected floor regions.
// Geodesic distance is the planar distance inside one region and +Inf across
// regions.
type StaticMesh struct {
	Regions   []Region
	Obstacles []Box

	rng     *rand.Rand
	closed  bool
	onClose func()
}

func NewStaticMesh(seed uint64, regions []Region, obstacles []Box) *StaticMesh {
	return &StaticMesh{
		Regions:   regions,
		Obstacles: obstacles,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

var errNoRegions = errors.New("static mesh has no walkable regions")

func (m *StaticMesh) RandomNavigablePoint(ctx context.Context) (geometry.Vec3, error) {
	if err := m.check(ctx); err != nil {
		return geometry.Vec3{}, err
	}
	if len(m.Regions) == 0 {
		return geometry.Vec3{}, errNoRegions
	}
	r := m.Regions[m.rng.IntN(len(m.Regions))]
	x := r.MinX + m.rng.Float64()*(r.MaxX-r.MinX)
	z := r.MinZ + m.rng.Float64()*(r.MaxZ-r.MinZ)
	return geometry.V(x, r.Y, z), nil
}

func (m *StaticMesh) RandomNavigablePointNear(ctx context.Context, center geometry.Vec3, radius float64, maxTries int) (geometry.Vec3, bool, error) {
	if err := m.check(ctx); err != nil {
		return geometry.Vec3{}, false, err
	}
	for i := 0; i < maxTries; i++ {
		angle := m.rng.Float64() * 2 * math.Pi
		dist := radius * math.Sqrt(m.rng.Float64())
		x := center.X + dist*math.Sin(angle)
		z := center.Z + dist*math.Cos(angle)
		r, ok := m.floorBelow(x, z, center.Y)
		if !ok {
			continue
		}
		return geometry.V(x, r.Y, z), true, nil
	}
	return geometry.Vec3{}, false, nil
}

func (m *StaticMesh) GeodesicDistance(ctx context.Context, start, end geometry.Vec3) (float64, error) {
	if err := m.check(ctx); err != nil {
		return 0, err
	}
	a, okA := m.regionOf(start)
	b, okB := m.regionOf(end)
	if !okA || !okB || a != b {
		return math.Inf(1), nil
	}
	return geometry.PlanarDistance(start, end), nil
}

// CastRay returns the nearest obstacle hit along direction using the slab
// test.
func (m *StaticMesh) CastRay(ctx context.Context, origin, direction geometry.Vec3) (Hit, bool, error) {
	if err := m.check(ctx); err != nil {
		return Hit{}, false, err
	}
	n := direction.Norm()
	if n == 0 {
		return Hit{}, false, nil
	}
	dir := direction.Scale(1 / n)

	best := math.Inf(1)
	for _, b := range m.Obstacles {
		if t, ok := slab(origin, dir, b); ok && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return Hit{}, false, nil
	}
	return Hit{Point: origin.Add(dir.Scale(best)), Distance: best}, true, nil
}

func (m *StaticMesh) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.onClose != nil {
		m.onClose()
	}
	return nil
}

func (m *StaticMesh) check(ctx context.Context) error {
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *StaticMesh) regionOf(p geometry.Vec3) (int, bool) {
	for i, r := range m.Regions {
		if r.contains(p.X, p.Z) && math.Abs(p.Y-r.Y) <= StepTolerance {
			return i, true
		}
	}
	return -1, false
}

// floorBelow picks the region under (x, z) whose height is closest to y.
func (m *StaticMesh) floorBelow(x, z, y float64) (Region, bool) {
	var best Region
	found := false
	for _, r := range m.Regions {
		if !r.contains(x, z) {
			continue
		}
		if !found || math.Abs(r.Y-y) < math.Abs(best.Y-y) {
			best, found = r, true
		}
	}
	return best, found
}

func slab(origin, dir geometry.Vec3, b Box) (float64, bool) {
	tmin, tmax := 0.0, math.Inf(1)
	o := origin.Slice()
	d := dir.Slice()
	lo := b.Min.Slice()
	hi := b.Max.Slice()
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// StaticOpener hands out a fresh StaticMesh per session and refuses to open a
// second one while another is still bound.
type StaticOpener struct {
	Regions   []Region
	Obstacles []Box
	Seed      uint64

	Opened []Settings
	bound  bool
}

var ErrAlreadyBound = errors.New("a simulator session is already open")

func (o *StaticOpener) Open(ctx context.Context, settings Settings) (Simulator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.bound {
		return nil, ErrAlreadyBound
	}
	o.bound = true
	o.Opened = append(o.Opened, settings)
	mesh := NewStaticMesh(o.Seed+uint64(len(o.Opened)), o.Regions, o.Obstacles)
	mesh.onClose = func() { o.bound = false }
	return mesh, nil
}

// Bound reports whether a session is currently open.
func (o *StaticOpener) Bound() bool { return o.bound }
