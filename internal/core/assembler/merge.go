package assembler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agenthands/personav/internal/core/model"
)

var ErrMissingGeodesic = errors.New("episode has no sampled geodesic distance")

type mergeKey struct {
	owner, category, summary string
}

// MergeInstances folds episodes that share owner, category and summary into
// one multi-instance episode. The closest instance becomes the target and
// keeps its start pose; the others follow by increasing geodesic distance.
// Groups keep the order of their first member.
func MergeInstances(eps []model.Episode) ([]model.Episode, error) {
	var order []mergeKey
	groups := make(map[mergeKey][]int)
	for i := range eps {
		if _, ok := eps[i].Geodesic(); !ok {
			return nil, fmt.Errorf("%w: object %s", ErrMissingGeodesic, eps[i].Target.ObjectID)
		}
		k := mergeKey{eps[i].Owner, eps[i].ObjectCategory, eps[i].Summary}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	out := make([]model.Episode, 0, len(order))
	for _, k := range order {
		idx := groups[k]
		if len(idx) == 1 {
			out = append(out, eps[idx[0]].Clone())
			continue
		}
		sort.SliceStable(idx, func(a, b int) bool {
			ga, _ := eps[idx[a]].Geodesic()
			gb, _ := eps[idx[b]].Geodesic()
			return ga < gb
		})
		merged := eps[idx[0]].Clone()
		merged.Extra = nil
		for _, i := range idx[1:] {
			merged.Extra = append(merged.Extra, eps[i].Instances()...)
		}
		merged.Query = Queries(merged.ObjectCategory, merged.Owner, true, true)
		out = append(out, merged)
	}
	return out, nil
}
