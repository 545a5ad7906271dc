package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/personav/internal/core/model"
)

func newTestStore(d GraphDriver) *OwnershipStore {
	st := NewOwnershipStore(d)
	st.UUIDGenerator = func() string { return "sample-1" }
	st.Now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return st
}

func TestSaveGraphSample(t *testing.T) {
	d := &MockDriver{}
	st := newTestStore(d)

	id, err := st.SaveGraphSample(context.Background(), GraphSample{
		RunID:    "run-1",
		CustomID: "abc_floor_0_split_2",
		Scene:    "00800-abc",
		Floor:    "0",
		Tier:     model.Hard,
		Accepted: true,
		Attempts: 3,
		Graph:    model.OwnershipGraph{"<person2>": {"bed_1"}, "<person1>": {"chair_2", "bed_1"}},
		Metrics:  model.GraphMetrics{NumPeople: 2, NumObjects: 2, NumEdges: 3, Density: 0.75},
	})
	require.NoError(t, err)
	assert.Equal(t, "sample-1", id)
	require.Len(t, d.Executed, 2)

	node := d.Executed[0]
	assert.Equal(t, SaveGraphSampleQuery, node.Query)
	assert.Equal(t, "run-1", node.Params["run_id"])
	assert.Equal(t, "hard", node.Params["tier"])
	assert.Equal(t, 0.75, node.Params["density"])
	assert.Equal(t, 2.0, node.Params["num_people"])
	assert.Equal(t, "2025-01-02T03:04:05Z", node.Params["created_at"])

	edges := d.Executed[1]
	assert.Equal(t, SaveOwnershipEdgesQuery, edges.Query)
	list := edges.Params["edges"].([]interface{})
	require.Len(t, list, 3)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "<person1>", first["person"])
	assert.Equal(t, "chair_2", first["object_id"])
	assert.Equal(t, "<person2>", list[2].(map[string]interface{})["person"])
}

func TestSaveGraphSampleWithoutEdges(t *testing.T) {
	d := &MockDriver{}
	_, err := newTestStore(d).SaveGraphSample(context.Background(), GraphSample{RunID: "r"})
	require.NoError(t, err)
	assert.Len(t, d.Executed, 1)
}

func TestSaveGraphSampleError(t *testing.T) {
	d := &MockDriver{Err: errors.New("connection refused")}
	_, err := newTestStore(d).SaveGraphSample(context.Background(), GraphSample{})
	assert.ErrorContains(t, err, "failed to save graph sample")
}

func TestRunMetrics(t *testing.T) {
	keys := []string{"num_people", "num_objects", "num_edges", "avg_degree_per_person", "avg_degree_per_object", "num_shared_objects", "density", "overlap_ratio"}
	d := &MockDriver{MockResult: neo4j.EagerResult{Records: []*neo4j.Record{
		{Keys: keys, Values: []any{int64(3), int64(5), int64(6), 2.0, 1.2, int64(1), 0.4, 0.2}},
	}}}
	out, err := newTestStore(d).RunMetrics(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].NumPeople)
	assert.Equal(t, 0.4, out[0].Density)
	assert.Equal(t, "run-1", d.Executed[0].Params["run_id"])
}

func TestSampleGraph(t *testing.T) {
	d := &MockDriver{MockResult: neo4j.EagerResult{Records: []*neo4j.Record{
		{Keys: []string{"person", "objects"}, Values: []any{"<person1>", []any{"chair_2", "bed_1"}}},
	}}}
	g, err := newTestStore(d).SampleGraph(context.Background(), "sample-1")
	require.NoError(t, err)
	assert.Equal(t, model.OwnershipGraph{"<person1>": {"bed_1", "chair_2"}}, g)
}
