// Package server exposes ownership-graph generation, query phrasing and run
// statistics over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/personav/internal/core/assembler"
	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/core/ownership"
	"github.com/agenthands/personav/internal/driver"
)

// Store is the part of the ownership store the server reads and writes.
type Store interface {
	SaveGraphSample(ctx context.Context, s driver.GraphSample) (string, error)
	RunMetrics(ctx context.Context, runID string) ([]model.GraphMetrics, error)
	SampleGraph(ctx context.Context, sampleID string) (model.OwnershipGraph, error)
}

type Server struct {
	// Store is optional; without it graphs are not persisted and the run
	// routes answer 503.
	Store Store
	Log   *slog.Logger
}

func NewServer(store Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{Store: store, Log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.Health)
	v1 := r.Group("/v1")
	v1.POST("/ownership", s.Ownership)
	v1.POST("/queries", s.Queries)
	v1.POST("/responses/stats", s.ResponseStats)
	v1.GET("/runs/:id/metrics", s.RunMetrics)
	v1.GET("/graphs/:id", s.Graph)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type OwnershipRequest struct {
	ObjectIDs []string `json:"object_ids" binding:"required"`
	Tier      string   `json:"tier" binding:"required"`
	// Seed makes the draw reproducible; zero picks a random seed.
	Seed uint64 `json:"seed"`
	// RunID, when set, persists the graph under that run.
	RunID string `json:"run_id"`
}

type OwnershipResponse struct {
	ownership.Result
	SampleID string `json:"sample_id,omitempty"`
}

func (s *Server) Ownership(c *gin.Context) {
	var req OwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	tier, err := model.ParseTier(req.Tier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seed := req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	params, err := ownership.DefaultParams(tier, len(req.ObjectIDs), rng)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := ownership.NewGenerator(rng, s.Log).Generate(req.ObjectIDs, tier, params)
	if errors.Is(err, ownership.ErrTooFewObjects) || errors.Is(err, ownership.ErrDuplicateObject) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.Log.Error("failed to generate ownership graph", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate ownership graph"})
		return
	}

	out := OwnershipResponse{Result: res}
	if req.RunID != "" && s.Store != nil {
		id, err := s.Store.SaveGraphSample(c.Request.Context(), driver.GraphSample{
			RunID:    req.RunID,
			Tier:     tier,
			Accepted: res.Accepted,
			Attempts: res.Attempts,
			Graph:    res.Compact,
			Metrics:  res.Metrics,
		})
		if err != nil {
			s.Log.Error("failed to store ownership graph", "run_id", req.RunID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store ownership graph"})
			return
		}
		out.SampleID = id
	}
	c.JSON(http.StatusOK, out)
}

type QueriesRequest struct {
	Category string `json:"category" binding:"required"`
	Owner    string `json:"owner" binding:"required"`
	Augment  bool   `json:"augment"`
	Multi    bool   `json:"multi"`
}

func (s *Server) Queries(c *gin.Context) {
	var req QueriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queries": assembler.Queries(req.Category, req.Owner, req.Augment, req.Multi)})
}

func (s *Server) ResponseStats(c *gin.Context) {
	var records []model.ResponseRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": len(records), "stats": assembler.AggregateResponses(records)})
}

func (s *Server) RunMetrics(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No graph store configured"})
		return
	}
	runID := c.Param("id")
	samples, err := s.Store.RunMetrics(c.Request.Context(), runID)
	if err != nil {
		s.Log.Error("failed to read run metrics", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read run metrics"})
		return
	}
	if len(samples) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "samples": len(samples), "metrics": ownership.Aggregate(samples)})
}

func (s *Server) Graph(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No graph store configured"})
		return
	}
	id := c.Param("id")
	g, err := s.Store.SampleGraph(c.Request.Context(), id)
	if err != nil {
		s.Log.Error("failed to read graph sample", "sample_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read graph sample"})
		return
	}
	if len(g) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown graph sample"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sample_id": id, "graph": g})
}
