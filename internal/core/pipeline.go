// Package core wires the dataset, ownership, sampler and assembler packages
// into the two pipeline steps: prompt batch generation and episode building.
package core

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/agenthands/personav/internal/config"
	"github.com/agenthands/personav/internal/core/assembler"
	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/core/navmesh"
	"github.com/agenthands/personav/internal/dataset"
	"github.com/agenthands/personav/internal/driver"
	"github.com/agenthands/personav/internal/llm"
)

var ErrNoLLM = errors.New("no llm client configured")

// GraphStore persists generated ownership graphs.
type GraphStore interface {
	SaveGraphSample(ctx context.Context, s driver.GraphSample) (string, error)
}

type Pipeline struct {
	Config *config.Config
	Opener navmesh.Opener
	// Store and LLM are optional.
	Store GraphStore
	LLM   llm.LLMClient
	Log   *slog.Logger

	UUIDGenerator func() string

	rng *rand.Rand
}

// NewPipeline seeds its random source from cfg.Seed; a zero seed draws a
// random one.
func NewPipeline(cfg *config.Config, opener navmesh.Opener, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Pipeline{
		Config:        cfg,
		Opener:        opener,
		Log:           log,
		UUIDGenerator: func() string { return uuid.New().String() },
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (p *Pipeline) names() []string {
	if len(p.Config.Dataset.Names) > 0 {
		return p.Config.Dataset.Names
	}
	return assembler.DefaultNames
}

// scenes lists the scene folders of a tier's annotation split, honoring the
// skip list and the scene limit.
func (p *Pipeline) scenes(tc config.TierConfig) (string, []string, error) {
	splitDir := filepath.Join(p.Config.Dataset.BasePath, tc.Split)
	all, err := dataset.ListScenes(splitDir)
	if err != nil {
		return "", nil, err
	}
	var out []string
	for _, s := range all {
		if slices.Contains(p.Config.Dataset.SkipScenes, s) {
			p.Log.Info("skipping scene", "scene", s)
			continue
		}
		out = append(out, s)
		if n := p.Config.Dataset.MaxScenes; n > 0 && len(out) >= n {
			break
		}
	}
	return splitDir, out, nil
}

func (p *Pipeline) tier(t model.Tier) (config.TierConfig, error) {
	if _, err := model.ParseTier(string(t)); err != nil {
		return config.TierConfig{}, err
	}
	return p.Config.Tier(t)
}
