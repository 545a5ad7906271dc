package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/driver"
)

type mockStore struct {
	saved   []driver.GraphSample
	metrics []model.GraphMetrics
	graph   model.OwnershipGraph
	err     error
}

func (m *mockStore) SaveGraphSample(ctx context.Context, s driver.GraphSample) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, s)
	return "sample-1", nil
}

func (m *mockStore) RunMetrics(ctx context.Context, runID string) ([]model.GraphMetrics, error) {
	return m.metrics, m.err
}

func (m *mockStore) SampleGraph(ctx context.Context, sampleID string) (model.OwnershipGraph, error) {
	return m.graph, m.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := NewServer(nil, nil).SetupRouter()
	w := do(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOwnership(t *testing.T) {
	store := &mockStore{}
	r := NewServer(store, nil).SetupRouter()

	w := do(t, r, http.MethodPost, "/v1/ownership", OwnershipRequest{
		ObjectIDs: []string{"bed_1", "lamp_2", "chair_3", "sofa_4"},
		Tier:      "easy",
		Seed:      3,
		RunID:     "run-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Compact  model.OwnershipGraph `json:"compact"`
		Accepted bool                 `json:"accepted"`
		SampleID string               `json:"sample_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sample-1", resp.SampleID)
	assert.NotEmpty(t, resp.Compact)
	for _, objs := range resp.Compact {
		assert.Len(t, objs, 1)
	}
	require.Len(t, store.saved, 1)
	assert.Equal(t, "run-1", store.saved[0].RunID)
	assert.Equal(t, model.Easy, store.saved[0].Tier)
}

func TestOwnershipDeterministicWithSeed(t *testing.T) {
	r := NewServer(nil, nil).SetupRouter()
	req := OwnershipRequest{ObjectIDs: []string{"a_1", "b_2", "c_3", "d_4", "e_5", "f_6"}, Tier: "medium", Seed: 42}

	first := do(t, r, http.MethodPost, "/v1/ownership", req)
	second := do(t, r, http.MethodPost, "/v1/ownership", req)
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestOwnershipErrors(t *testing.T) {
	r := NewServer(&mockStore{err: errors.New("down")}, nil).SetupRouter()

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing fields", map[string]any{"tier": "easy"}, http.StatusBadRequest},
		{"unknown tier", OwnershipRequest{ObjectIDs: []string{"a_1"}, Tier: "extreme"}, http.StatusBadRequest},
		{"too few objects", OwnershipRequest{ObjectIDs: []string{"a_1", "b_2"}, Tier: "easy"}, http.StatusUnprocessableEntity},
		{"duplicate objects", OwnershipRequest{ObjectIDs: []string{"a_1", "a_1", "a_1", "b_2"}, Tier: "easy"}, http.StatusUnprocessableEntity},
		{"store failure", OwnershipRequest{ObjectIDs: []string{"a_1", "b_2", "c_3"}, Tier: "easy", RunID: "r"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/v1/ownership", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestQueries(t *testing.T) {
	r := NewServer(nil, nil).SetupRouter()
	w := do(t, r, http.MethodPost, "/v1/queries", QueriesRequest{Category: "mug", Owner: "Alice", Multi: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"queries":["Find one of Alice's mugs"]}`, w.Body.String())

	w = do(t, r, http.MethodPost, "/v1/queries", map[string]string{"category": "mug"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResponseStats(t *testing.T) {
	r := NewServer(nil, nil).SetupRouter()
	records := []model.ResponseRecord{{
		SceneName: "abc",
		CustomID:  "abc_floor_0_split_0",
		Response: model.SummaryResponse{Summaries: []model.Summary{{
			Summary:       "<person1> cooks.",
			SelectedItems: []model.SelectedItem{{ObjectID: "pan_1", Owner: "<person1>", ObjectCategory: "pan"}},
		}}},
	}}
	w := do(t, r, http.MethodPost, "/v1/responses/stats", records)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Records int `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Records)
}

func TestRunRoutes(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		r := NewServer(nil, nil).SetupRouter()
		assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/v1/runs/r1/metrics", nil).Code)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/v1/graphs/g1", nil).Code)
	})

	t.Run("unknown ids", func(t *testing.T) {
		r := NewServer(&mockStore{}, nil).SetupRouter()
		assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/v1/runs/r1/metrics", nil).Code)
		assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/v1/graphs/g1", nil).Code)
	})

	t.Run("found", func(t *testing.T) {
		store := &mockStore{
			metrics: []model.GraphMetrics{{Density: 0.1}, {Density: 0.3}},
			graph:   model.OwnershipGraph{"<person1>": {"bed_1"}},
		}
		r := NewServer(store, nil).SetupRouter()

		w := do(t, r, http.MethodGet, "/v1/runs/r1/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var m struct {
			Samples int                `json:"samples"`
			Metrics map[string]float64 `json:"metrics"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
		assert.Equal(t, 2, m.Samples)
		assert.InDelta(t, 0.2, m.Metrics["mean_density"], 1e-9)

		w = do(t, r, http.MethodGet, "/v1/graphs/g1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"sample_id":"g1","graph":{"<person1>":["bed_1"]}}`, w.Body.String())
	})

	t.Run("store error", func(t *testing.T) {
		r := NewServer(&mockStore{err: errors.New("down")}, nil).SetupRouter()
		assert.Equal(t, http.StatusInternalServerError, do(t, r, http.MethodGet, "/v1/runs/r1/metrics", nil).Code)
	})
}
