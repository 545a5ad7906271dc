package driver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/personav/internal/core/model"
)

// GraphSample is one generated ownership graph and where it was used.
type GraphSample struct {
	RunID    string
	CustomID string
	Scene    string
	Floor    string
	Tier     model.Tier
	Accepted bool
	Attempts int
	Graph    model.OwnershipGraph
	Metrics  model.GraphMetrics
}

// OwnershipStore persists ownership graph samples as Person-OWNS-Object
// subgraphs hanging off a GraphSample node.
type OwnershipStore struct {
	Driver        GraphDriver
	UUIDGenerator func() string
	Now           func() time.Time
}

func NewOwnershipStore(d GraphDriver) *OwnershipStore {
	return &OwnershipStore{
		Driver:        d,
		UUIDGenerator: func() string { return uuid.New().String() },
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// SaveGraphSample stores s and returns the uuid of its sample node.
func (st *OwnershipStore) SaveGraphSample(ctx context.Context, s GraphSample) (string, error) {
	id := st.UUIDGenerator()
	params := map[string]interface{}{
		"uuid":       id,
		"run_id":     s.RunID,
		"custom_id":  s.CustomID,
		"scene":      s.Scene,
		"floor":      s.Floor,
		"tier":       string(s.Tier),
		"accepted":   s.Accepted,
		"attempts":   s.Attempts,
		"created_at": st.Now().Format(time.RFC3339Nano),
	}
	for _, v := range s.Metrics.Values() {
		params[v.Name] = v.Value
	}
	if _, err := st.Driver.ExecuteQuery(ctx, SaveGraphSampleQuery, params); err != nil {
		return "", fmt.Errorf("failed to save graph sample: %w", err)
	}

	edges := edgeParams(s.Graph)
	if len(edges) == 0 {
		return id, nil
	}
	linkParams := map[string]interface{}{
		"uuid":  id,
		"scene": s.Scene,
		"edges": edges,
	}
	if _, err := st.Driver.ExecuteQuery(ctx, SaveOwnershipEdgesQuery, linkParams); err != nil {
		return "", fmt.Errorf("failed to save ownership edges: %w", err)
	}
	return id, nil
}

// RunMetrics returns the metrics of every sample stored for runID.
func (st *OwnershipStore) RunMetrics(ctx context.Context, runID string) ([]model.GraphMetrics, error) {
	res, err := st.Driver.ExecuteQuery(ctx, GetRunMetricsQuery, map[string]interface{}{"run_id": runID})
	if err != nil {
		return nil, fmt.Errorf("failed to load run metrics: %w", err)
	}
	out := make([]model.GraphMetrics, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, model.GraphMetrics{
			NumPeople:          int(number(rec, "num_people")),
			NumObjects:         int(number(rec, "num_objects")),
			NumEdges:           int(number(rec, "num_edges")),
			AvgDegreePerPerson: number(rec, "avg_degree_per_person"),
			AvgDegreePerObject: number(rec, "avg_degree_per_object"),
			NumSharedObjects:   int(number(rec, "num_shared_objects")),
			Density:            number(rec, "density"),
			OverlapRatio:       number(rec, "overlap_ratio"),
		})
	}
	return out, nil
}

// SampleGraph loads the ownership graph of one stored sample.
func (st *OwnershipStore) SampleGraph(ctx context.Context, sampleID string) (model.OwnershipGraph, error) {
	res, err := st.Driver.ExecuteQuery(ctx, GetSampleGraphQuery, map[string]interface{}{"uuid": sampleID})
	if err != nil {
		return nil, fmt.Errorf("failed to load sample graph: %w", err)
	}
	g := make(model.OwnershipGraph, len(res.Records))
	for _, rec := range res.Records {
		person, _ := rec.Get("person")
		objects, _ := rec.Get("objects")
		key, _ := person.(string)
		list, _ := objects.([]any)
		ids := make([]string, 0, len(list))
		for _, o := range list {
			if s, ok := o.(string); ok {
				ids = append(ids, s)
			}
		}
		sort.Strings(ids)
		g[key] = ids
	}
	return g, nil
}

func edgeParams(g model.OwnershipGraph) []interface{} {
	people := make([]string, 0, len(g))
	for p := range g {
		people = append(people, p)
	}
	sort.Strings(people)

	var edges []interface{}
	for _, p := range people {
		for _, o := range g[p] {
			edges = append(edges, map[string]interface{}{"person": p, "object_id": o})
		}
	}
	return edges
}

func number(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
