package assembler

import (
	"math/rand/v2"
	"sort"

	"github.com/agenthands/personav/internal/core/model"
)

// AssignIDs numbers eps from zero. When limit is positive and exceeded, a
// uniform random subset of limit episodes is kept in its original order
// before numbering.
func AssignIDs(eps []model.Episode, limit int, rng *rand.Rand) []model.Episode {
	if limit > 0 && len(eps) > limit {
		keep := rng.Perm(len(eps))[:limit]
		sort.Ints(keep)
		sampled := make([]model.Episode, limit)
		for i, k := range keep {
			sampled[i] = eps[k]
		}
		eps = sampled
	}
	for i := range eps {
		id := i
		eps[i].EpisodeID = &id
	}
	return eps
}
