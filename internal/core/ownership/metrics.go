package ownership

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"

	"github.com/agenthands/personav/internal/core/model"
)

// ComputeMetrics builds the bipartite person/object graph. Every person key
// counts, including persons without objects; objects are the ones referenced
// by at least one person.
func ComputeMetrics(g model.OwnershipGraph) model.GraphMetrics {
	people := make([]string, 0, len(g))
	for p := range g {
		people = append(people, p)
	}
	sort.Strings(people)

	objectIDs := map[string]int64{}
	for _, objs := range g {
		for _, o := range objs {
			objectIDs[o] = 0
		}
	}
	objects := make([]string, 0, len(objectIDs))
	for o := range objectIDs {
		objects = append(objects, o)
	}
	sort.Strings(objects)

	bg := simple.NewUndirectedGraph()
	for i := range people {
		bg.AddNode(simple.Node(int64(i)))
	}
	for j, o := range objects {
		id := int64(len(people) + j)
		objectIDs[o] = id
		bg.AddNode(simple.Node(id))
	}
	for i, p := range people {
		for _, o := range g[p] {
			bg.SetEdge(bg.NewEdge(simple.Node(int64(i)), simple.Node(objectIDs[o])))
		}
	}

	P, M := len(people), len(objects)
	E := len(graph.EdgesOf(bg.Edges()))

	degP := make([]float64, P)
	for i := range people {
		degP[i] = float64(bg.From(int64(i)).Len())
	}
	degO := make([]float64, M)
	shared := 0
	for j, o := range objects {
		degO[j] = float64(bg.From(objectIDs[o]).Len())
		if degO[j] > 1 {
			shared++
		}
	}

	m := model.GraphMetrics{
		NumPeople:        P,
		NumObjects:       M,
		NumEdges:         E,
		NumSharedObjects: shared,
	}
	if P > 0 {
		m.AvgDegreePerPerson = stat.Mean(degP, nil)
	}
	if M > 0 {
		m.AvgDegreePerObject = stat.Mean(degO, nil)
		m.OverlapRatio = float64(shared) / float64(M)
	}
	if P > 0 && M > 0 {
		m.Density = float64(E) / float64(P*M)
	}
	return m
}

// Aggregate averages each metric over samples, keyed "mean_<metric>".
func Aggregate(samples []model.GraphMetrics) map[string]float64 {
	out := map[string]float64{}
	if len(samples) == 0 {
		return out
	}
	cols := map[string][]float64{}
	for _, s := range samples {
		for _, v := range s.Values() {
			cols[v.Name] = append(cols[v.Name], v.Value)
		}
	}
	for name, vals := range cols {
		out["mean_"+name] = stat.Mean(vals, nil)
	}
	return out
}
