package navmesh

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agenthands/personav/internal/core/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	settings Settings
	deleted  bool
}

func (f *fakeBridge) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&f.settings)
		_, _ = w.Write([]byte(`{"session_id":"s1"}`))
	})
	mux.HandleFunc("POST /sessions/s1/random_point", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"point":[1,2,3]}`))
	})
	mux.HandleFunc("POST /sessions/s1/random_point_near", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Radius float64 `json:"radius"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Radius < 1 {
			_, _ = w.Write([]byte(`{"point":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"point":[0.5,0,0.5]}`))
	})
	mux.HandleFunc("POST /sessions/s1/geodesic", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			End []float64 `json:"end"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.End[0] > 100 {
			_, _ = w.Write([]byte(`{"distance":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"distance":4.25}`))
	})
	mux.HandleFunc("POST /sessions/s1/raycast", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hit":{"point":[2,1,0],"distance":2}}`))
	})
	mux.HandleFunc("DELETE /sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		f.deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestBridgeClient(t *testing.T) {
	ctx := context.Background()
	fake := &fakeBridge{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	opener := NewBridgeOpener(srv.URL+"/", 5*time.Second)
	sim, err := opener.Open(ctx, DefaultSettings().WithScene("scene.glb"))
	require.NoError(t, err)
	assert.Equal(t, "scene.glb", fake.settings.Scene)
	assert.Equal(t, 90.0, fake.settings.HFOV)

	p, err := sim.RandomNavigablePoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, geometry.V(1, 2, 3), p)

	_, ok, err := sim.RandomNavigablePointNear(ctx, geometry.V(0, 0, 0), 0.5, 20)
	require.NoError(t, err)
	assert.False(t, ok)

	p, ok, err = sim.RandomNavigablePointNear(ctx, geometry.V(0, 0, 0), 1.5, 20)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, geometry.V(0.5, 0, 0.5), p)

	d, err := sim.GeodesicDistance(ctx, geometry.V(0, 0, 0), geometry.V(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 4.25, d)

	d, err = sim.GeodesicDistance(ctx, geometry.V(0, 0, 0), geometry.V(500, 0, 0))
	require.NoError(t, err)
	assert.True(t, math.IsInf(d, 1))

	hit, ok, err := sim.CastRay(ctx, geometry.V(0, 1, 0), geometry.V(1, 0, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.0, hit.Distance)

	require.NoError(t, sim.Close())
	assert.True(t, fake.deleted)

	_, err = sim.RandomNavigablePoint(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBridgeClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scene not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewBridgeOpener(srv.URL, time.Second).Open(context.Background(), DefaultSettings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene not found")
}
