package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sashabaranov/go-openai"

	"github.com/agenthands/personav/internal/core/common"
	"github.com/agenthands/personav/internal/core/model"
	"github.com/agenthands/personav/internal/core/ownership"
	"github.com/agenthands/personav/internal/dataset"
	"github.com/agenthands/personav/internal/driver"
	"github.com/agenthands/personav/internal/llm"
)

// Prompt is one rendered LLM request.
type Prompt struct {
	CustomID string
	Scene    string
	Floor    string
	Text     string
	// Graph is set when the prompt was built from an ownership graph.
	Graph *ownership.Result
}

type BatchResult struct {
	RunID    string                              `json:"run_id"`
	Tier     model.Tier                          `json:"tier"`
	Prompts  []Prompt                            `json:"-"`
	Requests []openai.BatchChatCompletionRequest `json:"-"`
	// Metrics averages the metrics of every generated ownership graph.
	Metrics    map[string]float64 `json:"metrics"`
	Graphs     int                `json:"graphs"`
	BestEffort int                `json:"best_effort_graphs"`
}

// GenerateBatch renders the prompts of a tier and wraps each one into a
// batch request line.
func (p *Pipeline) GenerateBatch(ctx context.Context, tier model.Tier) (BatchResult, error) {
	res, err := p.buildPrompts(ctx, tier)
	if err != nil {
		return BatchResult{}, err
	}
	res.Requests = make([]openai.BatchChatCompletionRequest, len(res.Prompts))
	for i, pr := range res.Prompts {
		res.Requests[i] = llm.NewBatchRequest(pr.CustomID, pr.Text, p.Config.Batch)
	}
	p.Log.Info("batch generated", "run_id", res.RunID, "tier", tier, "requests", len(res.Requests), "graphs", res.Graphs)
	return res, nil
}

// GenerateDirect renders the prompts of a tier and sends each one to the
// configured LLM, returning the answers as batch outputs.
func (p *Pipeline) GenerateDirect(ctx context.Context, tier model.Tier) ([]llm.BatchOutput, BatchResult, error) {
	if p.LLM == nil {
		return nil, BatchResult{}, ErrNoLLM
	}
	res, err := p.buildPrompts(ctx, tier)
	if err != nil {
		return nil, BatchResult{}, err
	}
	outputs := make([]llm.BatchOutput, 0, len(res.Prompts))
	for _, pr := range res.Prompts {
		content, err := p.LLM.Generate(ctx, pr.Text)
		if err != nil {
			return nil, BatchResult{}, fmt.Errorf("failed to generate response for %s: %w", pr.CustomID, err)
		}
		outputs = append(outputs, llm.BatchOutput{CustomID: pr.CustomID, Content: content})
		p.Log.Debug("response received", "custom_id", pr.CustomID)
	}
	return outputs, res, nil
}

func (p *Pipeline) buildPrompts(ctx context.Context, tier model.Tier) (BatchResult, error) {
	tc, err := p.tier(tier)
	if err != nil {
		return BatchResult{}, err
	}
	splitDir, scenes, err := p.scenes(tc)
	if err != nil {
		return BatchResult{}, err
	}

	res := BatchResult{RunID: p.UUIDGenerator(), Tier: tier}
	gen := ownership.NewGenerator(p.rng, p.Log)
	graphStrategy := p.Config.Batch.GraphStrategy
	var samples []model.GraphMetrics

	for _, scene := range scenes {
		files, err := dataset.AnnotationFiles(filepath.Join(splitDir, scene))
		if err != nil {
			return BatchResult{}, err
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return BatchResult{}, err
			}
			objs, err := dataset.ReadObjects(file)
			if err != nil {
				return BatchResult{}, err
			}
			dataset.Shuffle(objs, p.rng)
			objs = dataset.ApplyQuota(objs, p.Config.Dataset.Quota)
			base := dataset.AnnotationBase(file)

			for _, group := range dataset.GroupByFloor(objs) {
				chunks := dataset.Chunk(group.Objects, dataset.ChunkSize(len(group.Objects), tier, graphStrategy))
				count := 0
				for k, chunk := range chunks {
					if !graphStrategy {
						text, err := p.directPrompt(chunk, tier)
						if err != nil {
							return BatchResult{}, err
						}
						res.Prompts = append(res.Prompts, Prompt{
							CustomID: llm.CustomID(base, group.Floor, k),
							Scene:    scene,
							Floor:    group.Floor,
							Text:     text,
						})
						continue
					}

					for s := 0; s < tc.Summaries; s++ {
						text, graph, err := p.graphPrompt(gen, chunk, tier)
						if errors.Is(err, ownership.ErrTooFewObjects) || errors.Is(err, ownership.ErrDuplicateObject) {
							p.Log.Warn("skipping chunk", "scene", scene, "floor", group.Floor, "objects", len(chunk), "error", err)
							break
						}
						if err != nil {
							return BatchResult{}, err
						}
						pr := Prompt{
							CustomID: llm.CustomID(base, group.Floor, count),
							Scene:    scene,
							Floor:    group.Floor,
							Text:     text,
							Graph:    &graph,
						}
						count++
						if err := p.saveGraph(ctx, res.RunID, tier, pr); err != nil {
							return BatchResult{}, err
						}
						res.Prompts = append(res.Prompts, pr)
						samples = append(samples, graph.Metrics)
						if !graph.Accepted {
							res.BestEffort++
						}
					}
				}
			}
		}
	}

	res.Graphs = len(samples)
	res.Metrics = ownership.Aggregate(samples)
	return res, nil
}

func (p *Pipeline) graphPrompt(gen *ownership.Generator, chunk []model.SceneObject, tier model.Tier) (string, ownership.Result, error) {
	ids := make([]string, len(chunk))
	for i, o := range chunk {
		ids[i] = o.ObjectID
	}
	params, err := ownership.DefaultParams(tier, len(ids), p.rng)
	if err != nil {
		return "", ownership.Result{}, err
	}
	graph, err := gen.Generate(ids, tier, params)
	if err != nil {
		return "", ownership.Result{}, err
	}

	owned := make(map[string]struct{})
	for _, objs := range graph.Compact {
		for _, id := range objs {
			owned[id] = struct{}{}
		}
	}
	var referenced []model.SceneObject
	for _, o := range chunk {
		if _, ok := owned[o.ObjectID]; ok {
			referenced = append(referenced, o)
		}
	}

	prompts := p.Config.Prompts
	text := prompts.GraphPrompt(tier) + fmt.Sprintf(prompts.GraphInput, common.MustJSON(referenced), common.MustJSON(graph.Compact))
	return text, graph, nil
}

func (p *Pipeline) directPrompt(chunk []model.SceneObject, tier model.Tier) (string, error) {
	tc, err := p.Config.Tier(tier)
	if err != nil {
		return "", err
	}
	prompts := p.Config.Prompts
	return fmt.Sprintf(prompts.Direct, tier, tc.Summaries, tc.MinObjects, tc.MaxObjects) +
		fmt.Sprintf(prompts.DirectInput, common.MustJSON(chunk)), nil
}

func (p *Pipeline) saveGraph(ctx context.Context, runID string, tier model.Tier, pr Prompt) error {
	if p.Store == nil || pr.Graph == nil {
		return nil
	}
	_, err := p.Store.SaveGraphSample(ctx, driver.GraphSample{
		RunID:    runID,
		CustomID: pr.CustomID,
		Scene:    pr.Scene,
		Floor:    pr.Floor,
		Tier:     tier,
		Accepted: pr.Graph.Accepted,
		Attempts: pr.Graph.Attempts,
		Graph:    pr.Graph.Compact,
		Metrics:  pr.Graph.Metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to store ownership graph %s: %w", pr.CustomID, err)
	}
	return nil
}
