// Package ownership assigns objects to placeholder persons so that the
// resulting bipartite graph matches a difficulty tier.
package ownership

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/agenthands/personav/internal/core/model"
)

var (
	ErrTooFewObjects   = errors.New("too few objects for an ownership graph")
	ErrDuplicateObject = errors.New("object id listed more than once")
	ErrInvalidParams   = errors.New("invalid ownership parameters")
)

// maxRedraws bounds the medium-tier degree redraw loop.
const maxRedraws = 1000

type Result struct {
	Graph    model.OwnershipGraph `json:"graph"`
	Compact  model.OwnershipGraph `json:"compact"`
	Metrics  model.GraphMetrics   `json:"metrics"`
	Accepted bool                 `json:"accepted"`
	Attempts int                  `json:"attempts"`
}

type Generator struct {
	rng *rand.Rand
	log *slog.Logger
}

func NewGenerator(rng *rand.Rand, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{rng: rng, log: log}
}

// Generate samples ownership graphs over objectIDs until one meets the tier
// targets or MaxTries is spent. In the latter case the last sample is
// returned with Accepted=false.
func (g *Generator) Generate(objectIDs []string, tier model.Tier, p Params) (Result, error) {
	targets, err := TargetsFor(tier)
	if err != nil {
		return Result{}, err
	}
	if err := p.validate(); err != nil {
		return Result{}, err
	}
	seen := make(map[string]struct{}, len(objectIDs))
	for _, id := range objectIDs {
		if _, dup := seen[id]; dup {
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicateObject, id)
		}
		seen[id] = struct{}{}
	}
	if p.MaxObjects > 0 && len(objectIDs) > p.MaxObjects {
		objectIDs = objectIDs[:p.MaxObjects]
	}
	minObjects := p.MinObjects
	if minObjects <= 0 {
		minObjects = 3
	}
	if len(objectIDs) < minObjects {
		return Result{}, fmt.Errorf("%w: need %d, got %d", ErrTooFewObjects, minObjects, len(objectIDs))
	}
	tries := max(p.MaxTries, 1)

	var res Result
	for attempt := 1; attempt <= tries; attempt++ {
		graph := g.sampleOnce(objectIDs, tier, p)
		metrics := ComputeMetrics(graph)
		res = Result{Graph: graph, Metrics: metrics, Attempts: attempt}
		if targets.Satisfied(metrics) {
			res.Accepted = true
			break
		}
	}
	res.Compact = Compact(res.Graph)

	if !res.Accepted {
		g.log.Warn("ownership graph misses tier targets, using last sample",
			"tier", tier,
			"attempts", res.Attempts,
			"density", res.Metrics.Density,
			"avg_degree_per_person", res.Metrics.AvgDegreePerPerson,
			"overlap_ratio", res.Metrics.OverlapRatio)
	}
	return res, nil
}

func (g *Generator) sampleOnce(ids []string, tier model.Tier, p Params) model.OwnershipGraph {
	M := len(ids)
	minPeople, maxPeople := p.MinPeople, p.MaxPeople
	if minPeople <= 0 {
		minPeople = 2
	}
	if maxPeople < minPeople {
		maxPeople = minPeople
	}
	P := minPeople + g.rng.IntN(maxPeople-minPeople+1)
	degCap := p.MaxObjectsPerPerson
	if degCap <= 0 {
		degCap = M
	}

	jitter := distuv.Normal{Mu: 0, Sigma: 1, Src: g.rng}.Rand()
	lam := math.Max(p.Mu+p.DegreeVariance*jitter, 0.1)

	own := model.OwnershipGraph{}
	switch tier {
	case model.Easy:
		P = min(P, M)
		for i := 0; i < P; i++ {
			own[person(i)] = []string{ids[i]}
		}

	case model.Medium:
		P = min(P, M)
		deg := g.degrees(P, lam, degCap, p.DegreeDist, 0)
		for n := 0; sum(deg) > M; n++ {
			if n >= maxRedraws {
				trim(deg, M)
				break
			}
			deg = g.degrees(P, lam, degCap, p.DegreeDist, 0)
		}
		shuffled := append([]string(nil), ids...)
		g.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		idx := 0
		for i := 0; i < P; i++ {
			own[person(i)] = append([]string{}, shuffled[idx:idx+deg[i]]...)
			idx += deg[i]
		}

	default:
		deg := g.degrees(P, lam, degCap, p.DegreeDist, 1)
		alpha := (1 - p.Overlap) / math.Max(p.Overlap, 1e-3)
		alphas := make([]float64, M)
		for i := range alphas {
			alphas[i] = alpha
		}
		weights := distmv.NewDirichlet(alphas, g.rng).Rand(nil)
		for i := 0; i < P; i++ {
			own[person(i)] = g.weightedPick(ids, weights, min(deg[i], M))
		}
	}
	return own
}

// degrees draws n degrees around lam, clipped to [lo, degCap].
func (g *Generator) degrees(n int, lam float64, degCap int, dist DegreeDist, lo int) []int {
	out := make([]int, n)
	for i := range out {
		var raw float64
		if dist == Binomial {
			raw = distuv.Binomial{N: float64(degCap), P: math.Min(lam/float64(degCap), 1), Src: g.rng}.Rand()
		} else {
			raw = distuv.Poisson{Lambda: lam, Src: g.rng}.Rand()
		}
		out[i] = clip(int(raw), lo, degCap)
	}
	return out
}

// weightedPick draws k distinct ids, each with probability proportional to its
// weight among the ones not yet drawn.
func (g *Generator) weightedPick(ids []string, weights []float64, k int) []string {
	w := sampleuv.NewWeighted(weights, g.rng)
	taken := make([]bool, len(ids))
	out := make([]string, 0, k)
	for len(out) < k {
		idx, ok := w.Take()
		if !ok {
			// Remaining weights underflowed to zero; fill uniformly.
			rest := make([]int, 0, len(ids))
			for i, t := range taken {
				if !t {
					rest = append(rest, i)
				}
			}
			g.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
			for _, i := range rest[:k-len(out)] {
				out = append(out, ids[i])
			}
			break
		}
		taken[idx] = true
		out = append(out, ids[idx])
	}
	return out
}

var personPattern = regexp.MustCompile(`^<person(\d+)>$`)

// Compact drops persons without objects and renumbers the rest from
// <person1> in their original numeric order.
func Compact(g model.OwnershipGraph) model.OwnershipGraph {
	keys := make([]string, 0, len(g))
	for k, objs := range g {
		if len(objs) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, oki := personNumber(keys[i])
		nj, okj := personNumber(keys[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		if oki != okj {
			return oki
		}
		return keys[i] < keys[j]
	})

	out := make(model.OwnershipGraph, len(keys))
	for i, k := range keys {
		out[person(i)] = append([]string(nil), g[k]...)
	}
	return out
}

func personNumber(key string) (int, bool) {
	m := personPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

func person(i int) string { return "<person" + strconv.Itoa(i+1) + ">" }

func clip(v, lo, hi int) int { return max(lo, min(v, hi)) }

func sum(xs []int) int {
	s := 0
	for _, x := range xs {
		s += x
	}
	return s
}

// trim lowers degrees from the last person backwards until they sum to limit.
func trim(deg []int, limit int) {
	over := sum(deg) - limit
	for i := len(deg) - 1; i >= 0 && over > 0; i-- {
		d := min(deg[i], over)
		deg[i] -= d
		over -= d
	}
}
