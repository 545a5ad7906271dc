package ownership

import (
	"fmt"
	"math/rand/v2"

	"github.com/agenthands/personav/internal/core/model"
)

// Targets bound the metrics an accepted graph must have.
type Targets struct {
	MinDensity   float64
	MaxDensity   float64
	MinAvgDegree float64
	MaxAvgDegree float64
	MaxOverlap   float64
}

func TargetsFor(tier model.Tier) (Targets, error) {
	switch tier {
	case model.Easy:
		return Targets{MinDensity: 0, MaxDensity: 0.01, MinAvgDegree: 1.0, MaxAvgDegree: 1.1, MaxOverlap: 0}, nil
	case model.Medium:
		return Targets{MinDensity: 0.02, MaxDensity: 0.10, MinAvgDegree: 1.0, MaxAvgDegree: 3.0, MaxOverlap: 0.05}, nil
	case model.Hard:
		return Targets{MinDensity: 0.10, MaxDensity: 0.30, MinAvgDegree: 2.0, MaxAvgDegree: 4.0, MaxOverlap: 0.3}, nil
	}
	return Targets{}, fmt.Errorf("%w: %q", model.ErrUnknownTier, tier)
}

func (t Targets) Satisfied(m model.GraphMetrics) bool {
	return m.Density >= t.MinDensity && m.Density <= t.MaxDensity &&
		m.AvgDegreePerPerson >= t.MinAvgDegree && m.AvgDegreePerPerson <= t.MaxAvgDegree &&
		m.OverlapRatio <= t.MaxOverlap
}

type DegreeDist string

const (
	Poisson  DegreeDist = "poisson"
	Binomial DegreeDist = "binomial"
)

// Params drive one call to Generate.
type Params struct {
	// Mu is the mean number of objects per person.
	Mu float64
	// Overlap controls how concentrated the hard-tier object weights are.
	Overlap        float64
	DegreeDist     DegreeDist
	DegreeVariance float64
	MaxTries       int
	MinObjects     int
	MinPeople      int
	MaxPeople      int
	// MaxObjectsPerPerson caps degrees; zero means the number of objects.
	MaxObjectsPerPerson int
	// MaxObjects truncates the object list before sampling; zero keeps all.
	MaxObjects int
}

// validate rejects values the samplers cannot draw from. Overlap must lie in
// [0, 1) so the Dirichlet concentration stays positive.
func (p Params) validate() error {
	switch {
	case !(p.Overlap >= 0 && p.Overlap < 1):
		return fmt.Errorf("%w: overlap %v not in [0, 1)", ErrInvalidParams, p.Overlap)
	case !(p.Mu >= 0):
		return fmt.Errorf("%w: mu %v is negative", ErrInvalidParams, p.Mu)
	case p.MaxTries < 0:
		return fmt.Errorf("%w: max tries %d is negative", ErrInvalidParams, p.MaxTries)
	}
	return nil
}

// DefaultParams returns the parameters used for a tier when n objects are
// available. Medium and hard draw Mu and Overlap from rng.
func DefaultParams(tier model.Tier, n int, rng *rand.Rand) (Params, error) {
	p := Params{
		DegreeDist: Poisson,
		MaxTries:   10,
		MinObjects: 3,
	}
	switch tier {
	case model.Easy:
		p.Mu = 1
		p.Overlap = 0
		p.MinPeople = 2
		p.MaxPeople = min(n, 5)
		p.MaxObjectsPerPerson = 1
		p.MaxObjects = n
	case model.Medium:
		p.Mu = uniform(rng, 1, 3)
		p.Overlap = uniform(rng, 0, 0.05)
		p.MinPeople, p.MaxPeople = 3, 6
		p.MaxObjectsPerPerson = 3
		p.MaxObjects = 7
	case model.Hard:
		p.Mu = uniform(rng, 2, 4)
		p.Overlap = uniform(rng, 0.2, 0.4)
		p.MinPeople, p.MaxPeople = 4, 8
		p.MaxObjectsPerPerson = 3
		p.MaxObjects = min(n, 10)
	default:
		return Params{}, fmt.Errorf("%w: %q", model.ErrUnknownTier, tier)
	}
	return p, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
